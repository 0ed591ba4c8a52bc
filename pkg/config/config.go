package config

import (
	"math"
	"time"
)

// Defaults applied by New before any option runs.
const (
	DefaultModel         = "openai"
	DefaultSystemMessage = "You are a helpful AI assistant."
	DefaultTemperature   = 0.7
	DefaultTopP          = 0.9
	DefaultMaxTokens     = 800
	DefaultTimeout       = 30 * time.Second
)

// Config is the parameter set sent with every completion request. All fields
// are unexported and change only through the setters, each of which
// validates or clamps its own field independently.
//
// A Config belongs to one session and is not safe for concurrent use.
type Config struct {
	apiKey           string
	model            string
	systemMessage    string
	temperature      float64
	topP             UnitInterval
	presencePenalty  Penalty
	frequencyPenalty Penalty
	asJSON           bool
	maxTokens        TokenCap
	seed             int
	hasSeed          bool
	private          bool
	timeout          time.Duration
}

// Option configures a Config during New.
type Option func(*Config) error

// New returns a Config populated with the package defaults and then
// modified by opts in order. Options run through the same setters as later
// mutations, so the first rejected value is returned as a *ValidationError.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		model:         DefaultModel,
		systemMessage: DefaultSystemMessage,
		temperature:   DefaultTemperature,
		topP:          NewUnitInterval(DefaultTopP),
		maxTokens:     NewTokenCap(DefaultMaxTokens),
		timeout:       DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// --- options ---

// WithAPIKey sets the bearer token. An empty key sends anonymous requests.
func WithAPIKey(key string) Option {
	return func(c *Config) error { c.SetAPIKey(key); return nil }
}

// WithModel sets the model identifier.
func WithModel(model string) Option {
	return func(c *Config) error { return c.SetModel(model) }
}

// WithSystemMessage sets the system message used to seed new transcripts.
func WithSystemMessage(msg string) Option {
	return func(c *Config) error { c.SetSystemMessage(msg); return nil }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) error { return c.SetTemperature(t) }
}

// WithTopP sets nucleus sampling, clamped into [0, 1].
func WithTopP(p float64) Option {
	return func(c *Config) error { c.SetTopP(p); return nil }
}

// WithPresencePenalty sets the presence penalty, clamped into [-2, 2].
func WithPresencePenalty(p float64) Option {
	return func(c *Config) error { c.SetPresencePenalty(p); return nil }
}

// WithFrequencyPenalty sets the frequency penalty, clamped into [-2, 2].
func WithFrequencyPenalty(p float64) Option {
	return func(c *Config) error { c.SetFrequencyPenalty(p); return nil }
}

// WithJSON requests a JSON formatted reply.
func WithJSON(asJSON bool) Option {
	return func(c *Config) error { c.SetJSON(asJSON); return nil }
}

// WithMaxTokens sets the reply token cap, clamped into [0, MaxTokensLimit].
func WithMaxTokens(n int) Option {
	return func(c *Config) error { c.SetMaxTokens(n); return nil }
}

// WithSeed fixes the sampling seed.
func WithSeed(seed int) Option {
	return func(c *Config) error { return c.SetSeed(seed) }
}

// WithPrivate hides replies from the public feed.
func WithPrivate(private bool) Option {
	return func(c *Config) error { c.SetPrivate(private); return nil }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) error { return c.SetTimeout(d) }
}

// --- setters ---

// SetAPIKey sets the bearer token. Any string is accepted.
func (c *Config) SetAPIKey(key string) { c.apiKey = key }

// SetModel sets the model identifier. It must be non-empty.
func (c *Config) SetModel(model string) error {
	if model == "" {
		return invalid("model", model, "must not be empty")
	}
	c.model = model
	return nil
}

// SetSystemMessage sets the system message. Any string is accepted.
func (c *Config) SetSystemMessage(msg string) { c.systemMessage = msg }

// SetTemperature sets the sampling temperature. Unlike the clamped fields,
// values outside [0, 1] are rejected and the previous value is kept.
func (c *Config) SetTemperature(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return invalid("temperature", t, "must be within [0, 1]")
	}
	c.temperature = t
	return nil
}

// SetTopP stores p clamped into [0, 1].
func (c *Config) SetTopP(p float64) { c.topP = NewUnitInterval(p) }

// SetPresencePenalty stores p clamped into [-2, 2].
func (c *Config) SetPresencePenalty(p float64) { c.presencePenalty = NewPenalty(p) }

// SetFrequencyPenalty stores p clamped into [-2, 2].
func (c *Config) SetFrequencyPenalty(p float64) { c.frequencyPenalty = NewPenalty(p) }

// SetJSON toggles JSON formatted replies.
func (c *Config) SetJSON(asJSON bool) { c.asJSON = asJSON }

// SetMaxTokens stores n clamped into [0, MaxTokensLimit].
func (c *Config) SetMaxTokens(n int) { c.maxTokens = NewTokenCap(n) }

// SetSeed fixes the sampling seed. Negative seeds are rejected.
func (c *Config) SetSeed(seed int) error {
	if seed < 0 {
		return invalid("seed", seed, "must be non-negative")
	}
	c.seed = seed
	c.hasSeed = true
	return nil
}

// ClearSeed unsets the seed so a fresh one is generated per request.
func (c *Config) ClearSeed() {
	c.seed = 0
	c.hasSeed = false
}

// SetPrivate toggles whether replies are hidden from the public feed.
func (c *Config) SetPrivate(private bool) { c.private = private }

// SetTimeout sets the per-request timeout. It must be positive.
func (c *Config) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return invalid("timeout", d, "must be positive")
	}
	c.timeout = d
	return nil
}

// --- getters ---

// APIKey returns the bearer token, possibly empty.
func (c *Config) APIKey() string { return c.apiKey }

// Model returns the model identifier.
func (c *Config) Model() string { return c.model }

// SystemMessage returns the system message.
func (c *Config) SystemMessage() string { return c.systemMessage }

// Temperature returns the sampling temperature.
func (c *Config) Temperature() float64 { return c.temperature }

// TopP returns the nucleus sampling value.
func (c *Config) TopP() float64 { return c.topP.Float64() }

// PresencePenalty returns the presence penalty.
func (c *Config) PresencePenalty() float64 { return c.presencePenalty.Float64() }

// FrequencyPenalty returns the frequency penalty.
func (c *Config) FrequencyPenalty() float64 { return c.frequencyPenalty.Float64() }

// JSON reports whether JSON formatted replies are requested.
func (c *Config) JSON() bool { return c.asJSON }

// MaxTokens returns the reply token cap.
func (c *Config) MaxTokens() int { return c.maxTokens.Int() }

// Seed returns the fixed seed and true, or zero and false when unset.
func (c *Config) Seed() (int, bool) { return c.seed, c.hasSeed }

// Private reports whether replies are hidden from the public feed.
func (c *Config) Private() bool { return c.private }

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration { return c.timeout }
