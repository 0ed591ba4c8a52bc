// Package session keeps a running conversation with a Pollinations model.
//
// A Session owns its Config and Transcript. Each Chat call appends the user
// turn, sends a trimmed view of the transcript that fits the token budget,
// and appends the reply to the full, untrimmed transcript.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/germanamz/pollen/pkg/chats/transcript"
	"github.com/germanamz/pollen/pkg/chats/turn"
	"github.com/germanamz/pollen/pkg/config"
	"github.com/germanamz/pollen/pkg/pollinations"
	"github.com/germanamz/pollen/pkg/trimmer"
)

// ErrBusy is returned when Chat is called while another Chat on the same
// session is still in flight.
var ErrBusy = errors.New("session: another Chat is already active")

// Sender issues one completion request. *pollinations.Client implements it.
type Sender interface {
	Send(ctx context.Context, turns []turn.Turn, cfg *config.Config, opts ...pollinations.SendOption) (string, error)
}

var _ Sender = (*pollinations.Client)(nil)

// Session is one conversation. Chat calls must be issued one at a time;
// overlapping calls fail with ErrBusy rather than interleaving transcript
// updates.
type Session struct {
	id         string
	sender     Sender
	cfg        *config.Config
	transcript *transcript.Transcript
	budget     int
	reserved   int
	log        *slog.Logger

	mu     sync.Mutex
	active bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithBudget overrides the token budget and the share of it reserved for the
// reply. The defaults are config.MaxTokensLimit and trimmer.DefaultReserved.
func WithBudget(budget, reserved int) Option {
	return func(s *Session) {
		s.budget = budget
		s.reserved = reserved
	}
}

// New creates a session that sends through sender using cfg. The session
// takes ownership of cfg; its transcript is seeded with cfg's system message.
func New(sender Sender, cfg *config.Config, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		sender:     sender,
		cfg:        cfg,
		transcript: transcript.New(cfg.SystemMessage()),
		budget:     config.MaxTokensLimit,
		reserved:   trimmer.DefaultReserved,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ID returns the session identifier used in log records.
func (s *Session) ID() string { return s.id }

// Config returns the session's configuration. Mutations apply to the next
// Chat call.
func (s *Session) Config() *config.Config { return s.cfg }

// Transcript returns the full conversation history.
func (s *Session) Transcript() *transcript.Transcript { return s.transcript }

// Chat sends message and returns the assistant's reply.
//
// The user turn is appended before sending and stays in the transcript when
// the request fails, so a later Chat resends it. The sender's error is
// returned unchanged.
func (s *Session) Chat(ctx context.Context, message string) (string, error) {
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.release()

	s.transcript.AppendUser(message)

	full := s.transcript.Turns()
	view := trimmer.Trim(full, s.budget, s.reserved)
	if dropped := len(full) - len(view); dropped > 0 {
		s.log.DebugContext(ctx, "session: trimmed transcript",
			"session", s.id,
			"dropped", dropped,
			"kept", len(view),
			"words", trimmer.Cost(view),
		)
	}

	reply, err := s.sender.Send(ctx, view, s.cfg)
	if err != nil {
		s.log.ErrorContext(ctx, "session: chat failed",
			"session", s.id,
			"model", s.cfg.Model(),
			"error", err,
		)
		return "", err
	}

	s.transcript.AppendAssistant(reply)

	return reply, nil
}

// Reset discards the conversation and starts a new transcript seeded with
// the current system message.
func (s *Session) Reset() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.transcript = transcript.New(s.cfg.SystemMessage())
	return nil
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("%w (session %s)", ErrBusy, s.id)
	}
	s.active = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = false
}
