package pollinations

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/germanamz/pollen/pkg/modeladapter"
)

// DefaultBaseURL is the Pollinations text API root.
const DefaultBaseURL = "https://text.pollinations.ai"

const (
	completionsPath = "/openai"
	modelsPath      = "/models"
)

// maxSeed bounds generated seeds to non-negative 31-bit integers.
const maxSeed = 1 << 31

// Client talks to the Pollinations text endpoint. A Client holds no
// conversation state and may be shared by several sessions.
type Client struct {
	modeladapter.ModelAdapter

	log     *slog.Logger
	newSeed func() int
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root (no trailing slash).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = u }
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.Client = hc }
}

// WithHeader adds a header sent with every request, such as a Referer that
// identifies the application to the API.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		c.Headers[key] = value
	}
}

// WithLogger sets the logger for retry and failure reporting.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPacing spaces requests at least minInterval apart. Zero disables
// pacing.
func WithPacing(minInterval time.Duration) Option {
	return func(c *Client) { c.Limiter = modeladapter.NewPacer(minInterval) }
}

// WithSeedSource replaces the generator used when neither the call nor the
// config fixes a seed. fn must return values in [0, 2^31).
func WithSeedSource(fn func() int) Option {
	return func(c *Client) { c.newSeed = fn }
}

// WithSleep replaces the blocking wait used between retry attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// New creates a Client for DefaultBaseURL.
func New(opts ...Option) *Client {
	c := &Client{
		ModelAdapter: modeladapter.New(DefaultBaseURL, modeladapter.Auth{}, nil),
		log:          slog.Default(),
		newSeed:      func() int { return rand.IntN(maxSeed) }, //nolint:gosec // sampling seed, not security sensitive
		sleep:        contextSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
