package service

import (
	"errors"
	"fmt"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
)

var (
	ErrNotFound         = errors.New("error not found")
	ErrValidation       = errors.New("error validation failed")
	ErrQuotaExceeded    = errors.New("error daily analysis limit reached")
	ErrQuoteUnavailable = errors.New("error quote unavailable")
	ErrPersistence      = errors.New("error persistence failed")
	ErrNotConfigured    = errors.New("error not configured")
)

// ValidationError describes rejected input. Field is empty for whole-request problems.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// QuotaExceededError carries the usage entry that triggered the rejection.
type QuotaExceededError struct {
	Usage model.UsageEntry
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily analysis limit reached: %d credits used on %s", e.Usage.CreditsUsed, e.Usage.Date)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
