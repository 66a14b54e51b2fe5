package httpApi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KotFed0t/invest_advice_bot/utils"
)

const requestIDHeader = "X-Request-ID"

// RequestID puts a request id into the request context and echoes it back.
// An id sent by the client is reused.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.WithRequestID(c.Request.Context(), c.GetHeader(requestIDHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, utils.GetRequestIDFromCtx(ctx))
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			slog.String("rqID", utils.GetRequestIDFromCtx(c.Request.Context())),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			slog.Warn("http request", attrs...)
			return
		}
		slog.Info("http request", attrs...)
	}
}

func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered", slog.String("rqID", utils.GetRequestIDFromCtx(c.Request.Context())), slog.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
	})
}
