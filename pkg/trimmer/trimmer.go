// Package trimmer computes the view of a transcript that fits an approximate
// token budget. Token cost is approximated by whitespace-delimited word
// count; no real tokenizer is involved.
package trimmer

import "github.com/germanamz/pollen/pkg/chats/turn"

// DefaultReserved is the number of tokens kept free for the model's reply.
const DefaultReserved = 100

// Cost returns the approximate token cost of turns.
func Cost(turns []turn.Turn) int {
	total := 0
	for _, t := range turns {
		total += t.Words()
	}
	return total
}

// Trim returns the turns that fit within budget once reserved tokens are set
// aside. The oldest turn after index 0 is dropped repeatedly while more than
// two turns remain and cost+reserved exceeds budget, so the first turn (the
// system turn) is always kept and the most recent turn is never dropped.
//
// Trim never modifies turns; the result is a new slice.
func Trim(turns []turn.Turn, budget, reserved int) []turn.Turn {
	out := make([]turn.Turn, len(turns))
	copy(out, turns)

	total := Cost(out)
	for len(out) > 2 && total+reserved > budget {
		total -= out[1].Words()
		out = append(out[:1], out[2:]...)
	}

	return out
}
