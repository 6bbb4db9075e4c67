package turndetection

import (
	"context"
	"time"

	"github.com/koscakluka/ema-interview/core/llms"
)

const (
	DefaultWordThreshold      = 20
	DefaultHeuristicShortWait = 1500 * time.Millisecond
	DefaultLongWait           = 4000 * time.Millisecond
)

// Heuristic treats buffers of at least threshold words as finished turns.
type Heuristic struct {
	threshold int
	shortWait time.Duration
	longWait  time.Duration
}

type HeuristicOption func(*Heuristic)

func WithWordThreshold(threshold int) HeuristicOption {
	return func(h *Heuristic) {
		if threshold > 0 {
			h.threshold = threshold
		}
	}
}

func WithWaits(short, long time.Duration) HeuristicOption {
	return func(h *Heuristic) {
		if short > 0 {
			h.shortWait = short
		}
		if long > 0 {
			h.longWait = long
		}
	}
}

func NewHeuristic(opts ...HeuristicOption) *Heuristic {
	h := &Heuristic{
		threshold: DefaultWordThreshold,
		shortWait: DefaultHeuristicShortWait,
		longWait:  DefaultLongWait,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heuristic) Decide(_ context.Context, _ []llms.Turn, buffer string) Decision {
	words := WordCount(buffer)
	if words >= h.threshold {
		return Decision{Status: StatusComplete, Wait: h.shortWait}
	}
	if words == 0 {
		return Decision{Status: StatusThinking, Unbounded: true}
	}
	return Decision{Status: StatusThinking, Wait: h.longWait}
}

func (h *Heuristic) Fallback() Decision {
	return Decision{Status: StatusThinking, Wait: h.longWait}
}
