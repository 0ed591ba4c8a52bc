package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/germanamz/pollen/pkg/config"
	"github.com/germanamz/pollen/pkg/pollinations"
)

const askSummary = `Send prompts without memory: every prompt is new to the model. Failed
requests are retried. Pass the prompt as arguments for a single answer, or
omit it to enter a prompt loop.`

func runAsk(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f := newFlags("ask", askSummary, stderr)
	maxTries := f.fs.Int("max-tries", pollinations.DefaultRetryPolicy.MaxAttempts, "attempts before giving up")
	delays := f.fs.DurationSlice("delays", pollinations.DefaultRetryPolicy.Delays, "waits between retries; the last one repeats")
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	s, err := f.load(stderr)
	if err != nil {
		return err
	}

	policy, err := retryPolicy(s.file, f.fs.Changed("max-tries"), *maxTries, f.fs.Changed("delays"), *delays)
	if err != nil {
		return err
	}

	u := newUI(stdout, f.plain)
	ask := func(prompt string) {
		reply, ok := s.client.Ask(ctx, prompt, s.cfg, policy)
		if !ok {
			u.failure("No response received.")
			return
		}
		u.reply(reply)
	}

	if prompt := strings.TrimSpace(strings.Join(f.fs.Args(), " ")); prompt != "" {
		ask(prompt)
		return nil
	}

	u.notice("Welcome to Pollinations AI. Type 'exit' or 'quit' to exit.")
	u.notice("Each prompt is new to the model; it will not remember the last message.")
	u.println("")

	return promptLoop(ctx, stdin, u, ask)
}

// retryPolicy merges the default schedule, the config file and flags, in
// increasing precedence.
func retryPolicy(file config.File, triesSet bool, tries int, delaysSet bool, delays []time.Duration) (pollinations.RetryPolicy, error) {
	policy := pollinations.DefaultRetryPolicy

	if file.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = file.Retry.MaxAttempts
	}
	fileDelays, err := file.RetryDelays()
	if err != nil {
		return pollinations.RetryPolicy{}, err
	}
	if fileDelays != nil {
		policy.Delays = fileDelays
	}

	if triesSet {
		policy.MaxAttempts = tries
	}
	if delaysSet {
		policy.Delays = delays
	}

	return policy, nil
}
