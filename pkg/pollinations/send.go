package pollinations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/germanamz/pollen/pkg/chats/turn"
	"github.com/germanamz/pollen/pkg/config"
	"github.com/germanamz/pollen/pkg/modeladapter"
	"github.com/germanamz/pollen/pkg/modeladapter/usage"
)

// SendOption adjusts a single Send or SendWithRetry call.
type SendOption func(*sendOptions)

type sendOptions struct {
	seed    int
	hasSeed bool
}

// WithSeed fixes the seed for one call, taking precedence over the config.
func WithSeed(seed int) SendOption {
	return func(o *sendOptions) {
		o.seed = seed
		o.hasSeed = true
	}
}

// RetryPolicy is the schedule SendWithRetry follows after a failed attempt.
type RetryPolicy struct {
	MaxAttempts int             // Total attempts including the first (values below 1 mean 1).
	Delays      []time.Duration // Wait before retry n is Delays[min(n-1, len-1)]; empty means no wait.
}

// DefaultRetryPolicy makes three attempts, waiting 5s then 10s.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	Delays:      []time.Duration{5 * time.Second, 10 * time.Second},
}

// delay returns the wait that follows the given 1-based failed attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	return p.Delays[min(attempt-1, len(p.Delays)-1)]
}

func (p RetryPolicy) attempts() int {
	return max(p.MaxAttempts, 1)
}

// Send posts turns to the completion endpoint using the parameters in cfg and
// returns the assistant reply with surrounding whitespace removed.
//
// The attempt is bounded by cfg.Timeout. Every failure, including a response
// without content, is returned as a *RequestError; empty content matches
// ErrEmptyContent via errors.Is.
func (c *Client) Send(ctx context.Context, turns []turn.Turn, cfg *config.Config, opts ...SendOption) (string, error) {
	text, err := c.complete(ctx, turns, cfg, c.resolveSeed(cfg, opts))
	if err != nil {
		return "", &RequestError{Op: "send", Err: err}
	}

	return text, nil
}

// SendWithRetry is the lightweight variant of Send. A failed attempt is
// logged and retried after the policy's delay until policy.MaxAttempts
// attempts have been made. It reports ok=false instead of an error when every
// attempt fails, when ctx is cancelled during a wait, and immediately (without
// retrying) when a response parses but carries no content.
//
// The seed is resolved once, so every attempt sends the same payload.
func (c *Client) SendWithRetry(ctx context.Context, turns []turn.Turn, cfg *config.Config, policy RetryPolicy, opts ...SendOption) (string, bool) {
	seed := c.resolveSeed(cfg, opts)
	maxAttempts := policy.attempts()

	for attempt := 1; ; attempt++ {
		text, err := c.complete(ctx, turns, cfg, seed)
		if err == nil {
			return text, true
		}

		if errors.Is(err, ErrEmptyContent) {
			c.log.WarnContext(ctx, "pollinations: response had no content",
				"model", cfg.Model(),
				"attempt", attempt,
			)
			return "", false
		}

		if attempt >= maxAttempts {
			c.log.ErrorContext(ctx, "pollinations: giving up",
				"model", cfg.Model(),
				"attempts", attempt,
				"error", err,
			)
			return "", false
		}

		wait := policy.delay(attempt)
		var rle *modeladapter.RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > wait {
			wait = rle.RetryAfter
		}
		c.log.WarnContext(ctx, "pollinations: request failed, retrying",
			"model", cfg.Model(),
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"wait", wait,
			"error", err,
		)

		if err := c.sleep(ctx, wait); err != nil {
			return "", false
		}
	}
}

func (c *Client) resolveSeed(cfg *config.Config, opts []SendOption) int {
	var o sendOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.hasSeed {
		return o.seed
	}
	if seed, ok := cfg.Seed(); ok {
		return seed
	}
	return c.newSeed()
}

// complete performs one attempt. Errors are returned unwrapped so callers
// decide how to classify them. The pacing wait happens before the attempt's
// deadline starts, so cfg.Timeout bounds only the network exchange.
func (c *Client) complete(ctx context.Context, turns []turn.Turn, cfg *config.Config, seed int) (string, error) {
	if err := c.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	req := buildRequest(turns, cfg, seed)

	var resp apiResponse
	err := c.PostJSON(ctx, completionsPath, req, &resp,
		modeladapter.WithAuth(modeladapter.Auth{Key: cfg.APIKey()}))
	if err != nil {
		return "", err
	}

	if resp.Usage != nil {
		c.Usage.Add(cfg.Model(), usage.TokenCount{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		})
	}

	return resp.content()
}

// --- request types ---

type apiRequest struct {
	Model            string       `json:"model"`
	Messages         []apiMessage `json:"messages"`
	Temperature      float64      `json:"temperature"`
	TopP             float64      `json:"top_p"`
	PresencePenalty  float64      `json:"presence_penalty"`
	FrequencyPenalty float64      `json:"frequency_penalty"`
	JSON             bool         `json:"json"`
	MaxTokens        int          `json:"max_tokens"`
	Seed             int          `json:"seed"`
	Private          bool         `json:"private"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage"`
}

type apiChoice struct {
	Message *apiRespMessage `json:"message"`
}

type apiRespMessage struct {
	Content *string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func buildRequest(turns []turn.Turn, cfg *config.Config, seed int) apiRequest {
	req := apiRequest{
		Model:            cfg.Model(),
		Messages:         make([]apiMessage, len(turns)),
		Temperature:      cfg.Temperature(),
		TopP:             cfg.TopP(),
		PresencePenalty:  cfg.PresencePenalty(),
		FrequencyPenalty: cfg.FrequencyPenalty(),
		JSON:             cfg.JSON(),
		MaxTokens:        cfg.MaxTokens(),
		Seed:             seed,
		Private:          cfg.Private(),
	}

	for i, t := range turns {
		req.Messages[i] = apiMessage{Role: t.Role().String(), Content: t.Content()}
	}

	return req
}

// content extracts the trimmed reply. A body without a choices field is
// malformed. An empty choices list, a missing message or content field, or
// content that is blank after trimming yields ErrEmptyContent.
func (r apiResponse) content() (string, error) {
	if r.Choices == nil {
		return "", errMissingChoices
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyContent)
	}

	msg := r.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", fmt.Errorf("%w: missing message content", ErrEmptyContent)
	}

	text := strings.TrimSpace(*msg.Content)
	if text == "" {
		return "", ErrEmptyContent
	}

	return text, nil
}
