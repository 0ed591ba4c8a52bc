// Package turn defines the Turn type, a single role-tagged message in a
// conversation.
package turn

import (
	"strings"

	"github.com/germanamz/pollen/pkg/chats/role"
)

// Turn is one message in a conversation. Its fields are unexported so a
// Turn cannot change after construction; it is a value type that copies
// cheaply.
type Turn struct {
	role    role.Role
	content string
}

// New creates a turn with the given role and text content.
func New(r role.Role, content string) Turn {
	return Turn{role: r, content: content}
}

// System creates a system turn.
func System(content string) Turn { return New(role.System, content) }

// User creates a user turn.
func User(content string) Turn { return New(role.User, content) }

// Assistant creates an assistant turn.
func Assistant(content string) Turn { return New(role.Assistant, content) }

// Role returns the sender role of the turn.
func (t Turn) Role() role.Role { return t.role }

// Content returns the text content of the turn.
func (t Turn) Content() string { return t.content }

// Words returns the number of whitespace-delimited words in the content.
// It is used as an approximate token cost.
func (t Turn) Words() int {
	return len(strings.Fields(t.content))
}
