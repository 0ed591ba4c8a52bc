// Package transcript provides the append-only conversation history kept by a
// session.
package transcript

import (
	"github.com/germanamz/pollen/pkg/chats/role"
	"github.com/germanamz/pollen/pkg/chats/turn"
)

// Transcript is an ordered history of turns. Index 0 always holds the single
// system turn the transcript was created with; every later turn is a user or
// assistant turn appended at the tail.
// Transcript is not safe for concurrent use; callers must synchronize externally.
type Transcript struct {
	turns []turn.Turn
}

// New creates a Transcript seeded with a system turn holding systemMessage.
func New(systemMessage string) *Transcript {
	return &Transcript{turns: []turn.Turn{turn.System(systemMessage)}}
}

// AppendUser adds a user turn to the end of the transcript and returns it.
func (t *Transcript) AppendUser(content string) turn.Turn {
	return t.append(turn.User(content))
}

// AppendAssistant adds an assistant turn to the end of the transcript and
// returns it.
func (t *Transcript) AppendAssistant(content string) turn.Turn {
	return t.append(turn.Assistant(content))
}

func (t *Transcript) append(tr turn.Turn) turn.Turn {
	t.turns = append(t.turns, tr)
	return tr
}

// Len returns the number of turns, including the system turn.
func (t *Transcript) Len() int {
	return len(t.turns)
}

// At returns the turn at the given index.
// It panics if the index is out of range.
func (t *Transcript) At(index int) turn.Turn {
	return t.turns[index]
}

// Last returns the most recent turn. A transcript always holds at least its
// system turn, so Last never fails.
func (t *Transcript) Last() turn.Turn {
	return t.turns[len(t.turns)-1]
}

// Turns returns a copy of all turns in the transcript.
func (t *Transcript) Turns() []turn.Turn {
	cp := make([]turn.Turn, len(t.turns))
	copy(cp, t.turns)
	return cp
}

// Each iterates over turns, calling fn for each one. If fn returns false,
// iteration stops early.
func (t *Transcript) Each(fn func(int, turn.Turn) bool) {
	for i, tr := range t.turns {
		if !fn(i, tr) {
			return
		}
	}
}

// SystemPrompt returns the content of the system turn.
func (t *Transcript) SystemPrompt() string {
	return t.turns[0].Content()
}

// Count returns the number of turns with the given role.
func (t *Transcript) Count(r role.Role) int {
	n := 0
	for _, tr := range t.turns {
		if tr.Role() == r {
			n++
		}
	}
	return n
}
