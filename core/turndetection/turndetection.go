// Package turndetection decides whether the user finished speaking and how
// long to wait before committing their turn.
package turndetection

import (
	"context"
	"strings"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
)

type Status string

const (
	StatusComplete Status = "complete"
	StatusThinking Status = "thinking"
)

// ParseStatus maps a free-form label onto a Status. Anything that does not
// mention "complete" is treated as thinking.
func ParseStatus(label string) Status {
	if strings.Contains(strings.ToLower(label), string(StatusComplete)) {
		return StatusComplete
	}
	return StatusThinking
}

type Decision struct {
	Status Status
	// Wait is how long to wait for more speech before committing the turn.
	Wait time.Duration
	// Unbounded decisions never commit on their own, the turn waits for the
	// next fragment.
	Unbounded bool
}

// Decider estimates whether the pending buffer is a finished turn.
// Implementations must not fail: when unsure they return a thinking decision.
type Decider interface {
	Decide(ctx context.Context, history []llms.Turn, buffer string) Decision
}

// FallbackDecider is implemented by deciders that know which decision to use
// when deciding fails outright.
type FallbackDecider interface {
	Fallback() Decision
}

// Fallback returns the decider's own fallback, or a thinking decision with
// the default long wait.
func Fallback(d Decider) Decision {
	if f, ok := d.(FallbackDecider); ok {
		return f.Fallback()
	}
	return Decision{Status: StatusThinking, Wait: DefaultLongWait}
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}
