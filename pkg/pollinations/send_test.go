package pollinations_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/germanamz/pollen/pkg/chats/turn"
	"github.com/germanamz/pollen/pkg/config"
	"github.com/germanamz/pollen/pkg/modeladapter"
	"github.com/germanamz/pollen/pkg/pollinations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// sleepRecorder captures retry waits without blocking.
type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...pollinations.Option) *pollinations.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []pollinations.Option{
		pollinations.WithBaseURL(srv.URL),
		pollinations.WithHTTPClient(srv.Client()),
		pollinations.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}

	return pollinations.New(append(base, opts...)...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func reply(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": text}},
		},
	}
}

func newConfig(t *testing.T, opts ...config.Option) *config.Config {
	t.Helper()

	cfg, err := config.New(opts...)
	require.NoError(t, err)

	return cfg
}

func conversation() []turn.Turn {
	return []turn.Turn{
		turn.System("You are helpful."),
		turn.User("Hi"),
	}
}

func TestSend_Success(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/openai", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		req := readBody(t, r)

		assert.Equal(t, "openai-fast", req["model"])
		assert.InDelta(t, 0.5, req["temperature"], 1e-9)
		assert.InDelta(t, 0.25, req["top_p"], 1e-9)
		assert.InDelta(t, 1.0, req["presence_penalty"], 1e-9)
		assert.InDelta(t, -1.0, req["frequency_penalty"], 1e-9)
		assert.Equal(t, true, req["json"])
		assert.InDelta(t, 1200, req["max_tokens"], 0)
		assert.InDelta(t, 99, req["seed"], 0)
		assert.Equal(t, true, req["private"])

		msgs, ok := req["messages"].([]any)
		if !assert.True(t, ok) || !assert.Len(t, msgs, 2) {
			return
		}

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You are helpful.", first["content"])

		second, _ := msgs[1].(map[string]any)
		assert.Equal(t, "user", second["role"])
		assert.Equal(t, "Hi", second["content"])

		resp := reply("  Hello there!\n")
		resp["usage"] = map[string]any{"prompt_tokens": 10, "completion_tokens": 5}
		writeJSON(t, w, resp)
	})

	cfg := newConfig(t,
		config.WithAPIKey("sk-test"),
		config.WithModel("openai-fast"),
		config.WithTemperature(0.5),
		config.WithTopP(0.25),
		config.WithPresencePenalty(1),
		config.WithFrequencyPenalty(-1),
		config.WithJSON(true),
		config.WithMaxTokens(1200),
		config.WithSeed(99),
		config.WithPrivate(true),
	)

	text, err := client.Send(context.Background(), conversation(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", text)

	last, ok := client.Usage.Last()
	require.True(t, ok)
	assert.Equal(t, 10, last.PromptTokens)
	assert.Equal(t, 5, last.CompletionTokens)
	assert.Equal(t, 15, client.Usage.Model("openai-fast").Total())
}

func TestSend_NoAuthHeaderWithoutKey(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(t, w, reply("ok"))
	})

	text, err := client.Send(context.Background(), conversation(), newConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Zero(t, client.Usage.Requests())
}

func TestSend_SeedResolution(t *testing.T) {
	var seeds []float64
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		seeds = append(seeds, req["seed"].(float64))
		writeJSON(t, w, reply("ok"))
	}, pollinations.WithSeedSource(func() int { return 1234 }))

	unseeded := newConfig(t)
	seeded := newConfig(t, config.WithSeed(7))

	_, err := client.Send(context.Background(), conversation(), unseeded)
	require.NoError(t, err)
	_, err = client.Send(context.Background(), conversation(), seeded)
	require.NoError(t, err)
	_, err = client.Send(context.Background(), conversation(), seeded, pollinations.WithSeed(3))
	require.NoError(t, err)

	assert.Equal(t, []float64{1234, 7, 3}, seeds)
}

func TestSend_DefaultSeedIsNonNegative31Bit(t *testing.T) {
	var seed float64
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seed = readBody(t, r)["seed"].(float64)
		writeJSON(t, w, reply("ok"))
	})

	_, err := client.Send(context.Background(), conversation(), newConfig(t))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, seed, 0.0)
	assert.Less(t, seed, float64(1<<31))
}

func TestSend_EmptyContentIsRequestError(t *testing.T) {
	bodies := []string{
		`{"choices":[]}`,
		`{"choices":[{}]}`,
		`{"choices":[{"message":{}}]}`,
		`{"choices":[{"message":{"content":null}}]}`,
		`{"choices":[{"message":{"content":""}}]}`,
		`{"choices":[{"message":{"content":"   "}}]}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			text, err := client.Send(context.Background(), conversation(), newConfig(t))
			assert.Empty(t, text)

			var re *pollinations.RequestError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "send", re.Op)
			assert.ErrorIs(t, err, pollinations.ErrEmptyContent)
		})
	}
}

func TestSend_MissingChoicesIsMalformed(t *testing.T) {
	for _, body := range []string{`null`, `{}`, `{"usage":{"prompt_tokens":1}}`} {
		t.Run(body, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.Send(context.Background(), conversation(), newConfig(t))

			var re *pollinations.RequestError
			require.ErrorAs(t, err, &re)
			assert.NotErrorIs(t, err, pollinations.ErrEmptyContent)
			assert.ErrorContains(t, err, "no choices field")
		})
	}
}

func TestSend_PacingWaitIsOutsideTimeout(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, reply("paced"))
	}, pollinations.WithPacing(200*time.Millisecond))

	cfg := newConfig(t, config.WithTimeout(50*time.Millisecond))

	start := time.Now()
	for i := range 2 {
		text, err := client.Send(context.Background(), conversation(), cfg)
		require.NoError(t, err, "send %d", i)
		assert.Equal(t, "paced", text)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "second send must wait for pacing")
}

func TestSend_PacingHonoursCallerContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		writeJSON(t, w, reply("ok"))
	}, pollinations.WithPacing(time.Hour))

	_, err := client.Send(context.Background(), conversation(), newConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.Send(ctx, conversation(), newConfig(t))

	var re *pollinations.RequestError
	require.ErrorAs(t, err, &re)
	assert.ErrorContains(t, err, "wait for pacing")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_WithHeader(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pollen-cli", r.Header.Get("Referer"))
		writeJSON(t, w, reply("ok"))
	}, pollinations.WithHeader("Referer", "pollen-cli"))

	_, err := client.Send(context.Background(), conversation(), newConfig(t))
	require.NoError(t, err)
}

func TestSend_ErrorStatusIsRequestError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})

	_, err := client.Send(context.Background(), conversation(), newConfig(t))

	var re *pollinations.RequestError
	require.ErrorAs(t, err, &re)

	var se *modeladapter.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.NotErrorIs(t, err, pollinations.ErrEmptyContent)
}

func TestSend_MalformedJSONIsRequestError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := client.Send(context.Background(), conversation(), newConfig(t))

	var re *pollinations.RequestError
	require.ErrorAs(t, err, &re)
	assert.ErrorContains(t, err, "decode response")
}

func TestSend_TimeoutIsRequestError(t *testing.T) {
	release := make(chan struct{})
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	cfg := newConfig(t, config.WithTimeout(50*time.Millisecond))

	_, err := client.Send(context.Background(), conversation(), cfg)

	var re *pollinations.RequestError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSend_TransportErrorIsRequestError(t *testing.T) {
	boom := errors.New("connection refused")
	client := pollinations.New(pollinations.WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom }),
	}))

	_, err := client.Send(context.Background(), conversation(), newConfig(t))

	var re *pollinations.RequestError
	require.ErrorAs(t, err, &re)
	assert.ErrorIs(t, err, boom)
}

func TestSendWithRetry_Success(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, reply(" hi "))
	})

	text, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.True(t, ok)
	assert.Equal(t, "hi", text)
}

func TestSendWithRetry_EmptyChoicesReturnsNoAnswerWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}, pollinations.WithSleep(rec.sleep))

	text, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.waits)
}

func TestSendWithRetry_ExhaustsAttemptsOnTransportFailure(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	var logs bytes.Buffer

	client := pollinations.New(
		pollinations.WithHTTPClient(&http.Client{
			Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
				calls.Add(1)
				return nil, errors.New("network unreachable")
			}),
		}),
		pollinations.WithSleep(rec.sleep),
		pollinations.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelInfo}))),
	)

	policy := pollinations.RetryPolicy{
		MaxAttempts: 3,
		Delays:      []time.Duration{5 * time.Second, 10 * time.Second},
	}

	text, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), policy)
	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.waits)

	out := logs.String()
	assert.Contains(t, out, "request failed, retrying")
	assert.Contains(t, out, "giving up")
	assert.Contains(t, out, "network unreachable")
}

func TestSendWithRetry_RetriesMissingChoices(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`null`))
	}, pollinations.WithSleep(rec.sleep))

	_, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.False(t, ok)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.waits)
}

func TestSendWithRetry_HonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	rec := &sleepRecorder{}
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}, pollinations.WithSleep(rec.sleep))

	_, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.False(t, ok)
	// A longer Retry-After wins; a shorter one keeps the scheduled delay.
	assert.Equal(t, []time.Duration{30 * time.Second, 10 * time.Second}, rec.waits)
}

func TestSendWithRetry_LastDelayRepeats(t *testing.T) {
	rec := &sleepRecorder{}
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, pollinations.WithSleep(rec.sleep))

	policy := pollinations.RetryPolicy{MaxAttempts: 4, Delays: []time.Duration{time.Second}}

	_, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), policy)
	assert.False(t, ok)
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, rec.waits)
}

func TestSendWithRetry_RecoversAfterFailure(t *testing.T) {
	var calls atomic.Int32
	var seeds []float64
	rec := &sleepRecorder{}
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seeds = append(seeds, readBody(t, r)["seed"].(float64))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(t, w, reply("finally"))
	}, pollinations.WithSleep(rec.sleep))

	text, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.True(t, ok)
	assert.Equal(t, "finally", text)
	assert.Equal(t, []time.Duration{5 * time.Second}, rec.waits)
	require.Len(t, seeds, 2)
	assert.Equal(t, seeds[0], seeds[1])
}

func TestSendWithRetry_ZeroAttemptsMeansOne(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), pollinations.RetryPolicy{})
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithRetry_CancelledDuringWait(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, pollinations.WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, ok := client.SendWithRetry(ctx, conversation(), newConfig(t), pollinations.DefaultRetryPolicy)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendWithRetry_RealSleepWaits(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, reply("ok"))
	})

	policy := pollinations.RetryPolicy{MaxAttempts: 2, Delays: []time.Duration{20 * time.Millisecond}}

	start := time.Now()
	text, ok := client.SendWithRetry(context.Background(), conversation(), newConfig(t), policy)
	assert.True(t, ok)
	assert.Equal(t, "ok", text)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestAsk(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		msgs, ok := readBody(t, r)["messages"].([]any)
		if !assert.True(t, ok) || !assert.Len(t, msgs, 2) {
			return
		}

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "be brief", first["content"])

		second, _ := msgs[1].(map[string]any)
		assert.Equal(t, "user", second["role"])
		assert.Equal(t, "why?", second["content"])

		writeJSON(t, w, reply("because"))
	})

	cfg := newConfig(t, config.WithSystemMessage("be brief"))

	text, ok := client.Ask(context.Background(), "why?", cfg, pollinations.DefaultRetryPolicy)
	assert.True(t, ok)
	assert.Equal(t, "because", text)
}
