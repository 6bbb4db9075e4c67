package orchestration

import (
	"sync"

	"github.com/koscakluka/ema-interview/core/llms"
)

// Turns is the conversation history of a session. Only the session loop
// appends to it; snapshots may be taken from any goroutine.
type Turns struct {
	mu    sync.RWMutex
	turns []llms.Turn
}

// Push adds a new turn to the stored turns
func (t *Turns) Push(turn llms.Turn) {
	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()
}

// Snapshot returns a deep copy of the stored turns, oldest first.
func (t *Turns) Snapshot() []llms.Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return llms.CopyTurns(t.turns)
}

func (t *Turns) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Values is an iterator that goes over all the stored turns starting from the
// earliest towards the latest
func (t *Turns) Values(yield func(llms.Turn) bool) {
	for _, turn := range t.Snapshot() {
		if !yield(turn) {
			return
		}
	}
}
