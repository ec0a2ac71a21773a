package middleware

import (
	"context"
	"runtime/debug"

	"github.com/ptoscano/intakebot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a panicking handler into a logged error. One bad
// update must never take the dialog down for everyone else.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			attrs := []slog.Attr{
				slog.String("event", "tg.panic"),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			}
			if sender := c.Sender(); sender != nil {
				attrs = append(attrs, slog.Int64("user_id", sender.ID))
			}
			logger.TG.LogAttrs(context.Background(), slog.LevelError, "panic recovered", attrs...)
		}()
		return next(c)
	}
}
