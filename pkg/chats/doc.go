// Package chats provides the conversation data model used by pollen.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/pollen/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/pollen/pkg/chats/turn]: immutable role-tagged messages
//   - [github.com/germanamz/pollen/pkg/chats/transcript]: append-only conversation history anchored by a system turn
//
// The packages hold no HTTP or API code. The request sender and the session
// manager build on them.
package chats
