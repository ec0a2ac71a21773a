package survey

import (
	"context"
	"log/slog"

	"github.com/ptoscano/intakebot/core/logger"
)

// Cleaner sweeps stale prompt/reply pairs out of the chat so only the
// current question stays visible. Every delete is best effort: messages
// may already be gone or too old, so failures are swallowed.
type Cleaner struct {
	gw      Gateway
	enabled bool
}

func NewCleaner(gw Gateway, enabled bool) *Cleaner {
	return &Cleaner{gw: gw, enabled: enabled}
}

// Sweep deletes the given messages from the chat. When cleanup is disabled
// it is a no-op and reports zero targets.
func (c *Cleaner) Sweep(ctx context.Context, chatID int64, messageIDs []int) int {
	if !c.enabled || len(messageIDs) == 0 {
		return 0
	}
	targeted := 0
	for _, id := range messageIDs {
		if id == 0 {
			continue
		}
		targeted++
		if err := c.gw.Delete(ctx, chatID, id); err != nil {
			if logger.ShouldSampleDebug() {
				logger.Debug(ctx, "survey", "cleanup.skip",
					slog.Int64("chat_id", chatID),
					slog.Int("message_id", id),
					slog.String("error", err.Error()))
			}
		}
	}
	return targeted
}
