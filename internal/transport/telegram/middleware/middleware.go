package middleware

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

// Logger assigns a rqID to every update and logs its start and duration.
func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			start := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			var chatID int64
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
				slog.Int64("chatID", chatID),
				slog.String("text", c.Text()),
			)

			err := next(c)

			attrs := []any{
				slog.String("rqID", rqID),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				slog.Error("request failed", append(attrs, slog.String("err", err.Error()))...)
			} else {
				slog.Info("request finished", attrs...)
			}

			return err
		}
	}
}
