package pollinations

import (
	"context"

	"github.com/germanamz/pollen/pkg/chats/turn"
	"github.com/germanamz/pollen/pkg/config"
)

// Ask sends a single prompt under cfg's system message, with no
// conversation history, through SendWithRetry. It reports ok=false when no
// answer could be obtained.
func (c *Client) Ask(ctx context.Context, prompt string, cfg *config.Config, policy RetryPolicy) (string, bool) {
	turns := []turn.Turn{
		turn.System(cfg.SystemMessage()),
		turn.User(prompt),
	}

	return c.SendWithRetry(ctx, turns, cfg, policy)
}
