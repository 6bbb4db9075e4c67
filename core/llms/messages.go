package llms

import (
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
)

// Turn is a single entry of the conversation history.
type Turn struct {
	Role TurnRole

	// Content is what was said in the turn. In the user's turn it is the
	// committed transcript, in the model's turn it is the full response.
	Content string
}

func (t Turn) String() string {
	return fmt.Sprintf("%s: %s", t.Role, t.Content)
}

type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

// CopyTurns returns a deep copy of turns, safe to hand to work running
// outside of the goroutine that owns the history.
func CopyTurns(turns []Turn) []Turn {
	copied := []Turn{}
	copier.CopyWithOption(&copied, turns, copier.Option{DeepCopy: true})
	return copied
}

// LastTurns returns at most n most recent turns.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// JoinTurns renders turns as "role: content" joined with sep.
func JoinTurns(turns []Turn, sep string) string {
	rendered := make([]string, 0, len(turns))
	for _, turn := range turns {
		rendered = append(rendered, turn.String())
	}
	return strings.Join(rendered, sep)
}
