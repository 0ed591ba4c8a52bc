package modeladapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/germanamz/pollen/pkg/modeladapter/usage"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// StatusError is returned when the API responds with a non-2xx status other
// than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Auth holds the bearer credential for an LLM endpoint. A zero Key means
// requests are sent anonymously.
type Auth struct {
	Key string
}

// apply sets the Authorization header on h. It is a no-op when no key is
// configured.
func (a Auth) apply(h http.Header) {
	if a.Key == "" {
		return
	}

	h.Set("Authorization", "Bearer "+a.Key)
}

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// WithAuth overrides the adapter's Auth for one request. Clients whose
// credentials live in per-call configuration use this instead of mutating
// the shared adapter.
func WithAuth(auth Auth) RequestOption {
	return func(r *http.Request) {
		r.Header.Del("Authorization")
		auth.apply(r.Header)
	}
}

// ModelAdapter holds shared state for endpoint clients. Embed it in concrete
// client structs to get HTTP helpers, auth, custom headers, pacing and usage
// tracking.
//
// Pacing is not applied by Do. Callers invoke Wait before they start the
// per-attempt deadline, so time spent queued never counts against it.
type ModelAdapter struct {
	BaseURL string            // API base URL (no trailing slash).
	Auth    Auth              // Default authentication settings.
	Client  *http.Client      // HTTP client; falls back to a cached default.
	Headers map[string]string // Extra headers applied to every request.
	Limiter *rate.Limiter     // Optional client-side pacing; nil disables it.
	Usage   usage.Tracker     // Token usage tracker.

	clientOnce    sync.Once
	defaultClient *http.Client
}

// New creates a ModelAdapter with the given settings.
// A nil client falls back to a default client at call time.
func New(baseURL string, auth Auth, client *http.Client) ModelAdapter {
	return ModelAdapter{
		Auth:    auth,
		BaseURL: baseURL,
		Client:  client,
	}
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// httpClient returns the configured client or a cached default client with a
// 2-minute timeout. Callers bound individual requests through their context.
func (a *ModelAdapter) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}

	a.clientOnce.Do(func() {
		a.defaultClient = &http.Client{Timeout: 2 * time.Minute}
	})

	return a.defaultClient
}

// NewRequest builds an *http.Request with the base URL, auth, and custom
// headers already applied, followed by opts.
func (a *ModelAdapter) NewRequest(ctx context.Context, method, path string, body io.Reader, opts ...RequestOption) (*http.Request, error) {
	url := a.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	a.Auth.apply(req.Header)

	for k, v := range a.Headers {
		req.Header.Set(k, v)
	}

	for _, opt := range opts {
		opt(req)
	}

	return req, nil
}

// Wait blocks until the pacing limiter admits one request or ctx is done.
// It returns immediately when no limiter is configured.
func (a *ModelAdapter) Wait(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}

	if err := a.Limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for pacing: %w", err)
	}

	return nil
}

// Do sends the request using the configured HTTP client.
func (a *ModelAdapter) Do(req *http.Request) (*http.Response, error) {
	return a.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config, not user input.
}

// PostJSON marshals payload as JSON, sends a POST to the given path, checks
// for a 2xx status, and unmarshals the response body into dest.
// If dest is nil the response body is discarded after the status check.
func (a *ModelAdapter) PostJSON(ctx context.Context, path string, payload, dest any, opts ...RequestOption) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := a.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return a.doJSON(req, dest)
}

// GetJSON sends a GET to the given path, checks for a 2xx status, and
// unmarshals the response body into dest.
func (a *ModelAdapter) GetJSON(ctx context.Context, path string, dest any, opts ...RequestOption) error {
	req, err := a.NewRequest(ctx, http.MethodGet, path, nil, opts...)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	return a.doJSON(req, dest)
}

func (a *ModelAdapter) doJSON(req *http.Request, dest any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := a.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(body)
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       string(respBody),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(body)
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if dest == nil {
		return nil
	}

	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
