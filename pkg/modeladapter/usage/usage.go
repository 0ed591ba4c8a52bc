// Package usage accumulates token counts reported by completion responses.
package usage

import (
	"slices"
	"sync"
)

// TokenCount holds prompt and completion token counts for one or more calls.
type TokenCount struct {
	PromptTokens     int
	CompletionTokens int
}

// Total returns the sum of prompt and completion tokens.
func (tc TokenCount) Total() int {
	return tc.PromptTokens + tc.CompletionTokens
}

func (tc TokenCount) plus(o TokenCount) TokenCount {
	return TokenCount{
		PromptTokens:     tc.PromptTokens + o.PromptTokens,
		CompletionTokens: tc.CompletionTokens + o.CompletionTokens,
	}
}

// Tracker accumulates token usage across calls, overall and per model.
// The zero value is ready to use. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	requests int
	last     TokenCount
	total    TokenCount
	byModel  map[string]TokenCount
}

// Add records the usage of one call made against model.
func (t *Tracker) Add(model string, tc TokenCount) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.byModel == nil {
		t.byModel = make(map[string]TokenCount)
	}

	t.requests++
	t.last = tc
	t.total = t.total.plus(tc)
	t.byModel[model] = t.byModel[model].plus(tc)
}

// Last returns the most recently recorded count.
// The bool is false when nothing has been recorded.
func (t *Tracker) Last() (TokenCount, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last, t.requests > 0
}

// Total returns the aggregate count across all calls.
func (t *Tracker) Total() TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total
}

// Model returns the aggregate count for calls made against model.
func (t *Tracker) Model(model string) TokenCount {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.byModel[model]
}

// Requests returns the number of recorded calls.
func (t *Tracker) Requests() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.requests
}

// Models returns the names of every model with recorded usage, sorted.
func (t *Tracker) Models() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.byModel))
	for name := range t.byModel {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
