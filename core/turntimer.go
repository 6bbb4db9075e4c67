package orchestration

import (
	"sync"
	"time"
)

// TurnTimer is a single debounced delay. Arming it replaces whatever was
// armed before.
type TurnTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	// generation tells fires of a replaced timer apart from the current one
	// when Stop raced with the timer already firing.
	generation uint64
}

// Arm cancels any outstanding timer and schedules onFire after wait.
func (t *TurnTimer) Arm(wait time.Duration, onFire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
	generation := t.generation
	t.timer = time.AfterFunc(wait, func() {
		t.mu.Lock()
		if t.generation != generation {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.mu.Unlock()

		onFire()
	})
}

// Cancel clears the outstanding timer. It is safe to call when nothing is
// armed.
func (t *TurnTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.generation++
}

// Armed reports whether a timer is outstanding.
func (t *TurnTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *TurnTimer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
