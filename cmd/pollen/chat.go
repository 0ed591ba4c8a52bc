package main

import (
	"context"
	"io"
	"strings"

	"github.com/germanamz/pollen/pkg/session"
)

const chatSummary = `Start a context-aware conversation. Earlier turns are remembered and the
oldest ones are dropped once the history nears the model's token limit.
Type "/reset" to start over, "/model <name>" to switch models, or "exit" or
"quit" to leave.`

func runChat(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f := newFlags("chat", chatSummary, stderr)
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	s, err := f.load(stderr)
	if err != nil {
		return err
	}

	sess := session.New(s.client, s.cfg, session.WithLogger(s.log))
	u := newUI(stdout, f.plain)

	u.notice("Welcome to Pollinations AI chat. Type 'exit' or 'quit' to end the program.")
	u.notice("This chat remembers previous messages, up to an estimate of the model's")
	u.notice("token limit. Past that, the oldest parts of the chat are trimmed.")
	u.println("")

	err = promptLoop(ctx, stdin, u, func(line string) {
		if fields := strings.Fields(line); fields[0] == "/model" {
			if err := sess.Config().SetModel(strings.Join(fields[1:], " ")); err != nil {
				u.failure(err.Error())
				return
			}
			u.notice("Model set to " + sess.Config().Model() + ".")
			return
		}

		if line == "/reset" {
			if err := sess.Reset(); err != nil {
				u.failure(err.Error())
				return
			}
			u.notice("Conversation cleared.")
			return
		}

		reply, err := sess.Chat(ctx, line)
		if err != nil {
			u.failure(err.Error())
			return
		}
		u.reply(reply)
	})

	u.usage(s.client.UsageTracker())

	return err
}
