// Package modeladapter provides the HTTP plumbing shared by LLM endpoint
// clients.
//
// It contains:
//   - [ModelAdapter]: embeddable base struct with request building, auth, custom headers, JSON helpers and optional pacing
//   - [StatusError] and [RateLimitError]: typed failures for non-2xx responses
//   - [github.com/germanamz/pollen/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// This package contains no endpoint-specific code; concrete clients live in
// separate packages that import modeladapter.
package modeladapter
