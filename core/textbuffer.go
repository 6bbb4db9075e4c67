package orchestration

import (
	"strings"
	"time"
)

// TranscriptAggregator collects finalized recognition fragments into the
// pending turn. It is owned by the session loop.
type TranscriptAggregator struct {
	fragments []string
	startedAt time.Time
}

// Append adds a finalized fragment. Fragments that are empty after trimming
// are ignored and Append reports false.
func (t *TranscriptAggregator) Append(fragment string) bool {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return false
	}

	if len(t.fragments) == 0 {
		t.startedAt = time.Now()
	}
	t.fragments = append(t.fragments, fragment)
	return true
}

// Peek returns the pending turn text without consuming it.
func (t *TranscriptAggregator) Peek() string {
	return strings.Join(t.fragments, " ")
}

// Commit returns the pending turn text and clears it.
func (t *TranscriptAggregator) Commit() string {
	text := t.Peek()
	t.Cancel()
	return text
}

// Cancel clears the pending turn.
func (t *TranscriptAggregator) Cancel() {
	t.fragments = nil
	t.startedAt = time.Time{}
}

// Pending reports whether a turn is being collected.
func (t *TranscriptAggregator) Pending() bool {
	return len(t.fragments) > 0
}

// StartedAt is when the first fragment of the pending turn arrived, zero when
// nothing is pending.
func (t *TranscriptAggregator) StartedAt() time.Time {
	return t.startedAt
}
