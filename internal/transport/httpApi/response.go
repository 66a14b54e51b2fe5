package httpApi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/KotFed0t/invest_advice_bot/utils"
)

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Usage   *model.UsageEntry `json:"usage,omitempty"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Code: "bad_request", Message: msg})
}

// writeError maps service errors onto status codes. Anything unrecognised is a 500.
func writeError(c *gin.Context, op string, err error) {
	var validationErr *service.ValidationError
	var quotaErr *service.QuotaExceededError

	switch {
	case errors.As(err, &validationErr):
		badRequest(c, validationErr.Error())
	case errors.As(err, &quotaErr):
		usage := quotaErr.Usage
		c.JSON(http.StatusForbidden, apiError{
			Code:    "quota_exceeded",
			Message: "No credits remaining. Please upgrade your plan.",
			Usage:   &usage,
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apiError{Code: "not_found", Message: "not found"})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, apiError{Code: "not_configured", Message: "report storage is not configured"})
	case errors.Is(err, service.ErrQuoteUnavailable):
		slog.Error("quote source failed", slog.String("rqID", utils.GetRequestIDFromCtx(c.Request.Context())), slog.String("op", op), slog.String("err", err.Error()))
		c.JSON(http.StatusBadGateway, apiError{Code: "quote_unavailable", Message: "market data is unavailable"})
	default:
		slog.Error("internal error", slog.String("rqID", utils.GetRequestIDFromCtx(c.Request.Context())), slog.String("op", op), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, apiError{Code: "internal_server_error", Message: "internal server error"})
	}
}
