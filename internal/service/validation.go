package service

import (
	"fmt"
	"strings"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
)

// ValidateHoldings checks a submission for analysis. It returns the holdings with normalized tickers.
func ValidateHoldings(holdings []model.Holding) ([]model.Holding, error) {
	if len(holdings) == 0 {
		return nil, &ValidationError{Field: "stocks", Reason: "at least one stock is required"}
	}

	normalized := make([]model.Holding, 0, len(holdings))
	for i, h := range holdings {
		ticker := NormalizeTicker(h.Ticker)
		if ticker == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("stocks[%d].ticker", i), Reason: "ticker is required"}
		}
		if h.Quantity.LessThan(model.MinQuantity) {
			return nil, &ValidationError{
				Field:  fmt.Sprintf("stocks[%d].quantity", i),
				Reason: fmt.Sprintf("quantity must be at least %s", model.MinQuantity),
			}
		}
		normalized = append(normalized, model.Holding{Ticker: ticker, Quantity: h.Quantity})
	}

	return normalized, nil
}

// NormalizeHoldings prepares holdings for storage: tickers are normalized and holdings
// with a non-positive quantity are removed.
func NormalizeHoldings(holdings []model.Holding) ([]model.Holding, error) {
	normalized := make([]model.Holding, 0, len(holdings))
	for i, h := range holdings {
		ticker := NormalizeTicker(h.Ticker)
		if ticker == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("stocks[%d].ticker", i), Reason: "ticker is required"}
		}
		if !h.Quantity.IsPositive() {
			continue
		}
		normalized = append(normalized, model.Holding{Ticker: ticker, Quantity: h.Quantity})
	}
	return normalized, nil
}

func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
