package service

import (
	"errors"
	"testing"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/shopspring/decimal"
)

func holding(ticker, qty string) model.Holding {
	return model.Holding{Ticker: ticker, Quantity: decimal.RequireFromString(qty)}
}

func TestValidateHoldings(t *testing.T) {
	tests := []struct {
		name      string
		holdings  []model.Holding
		wantErr   bool
		wantField string
	}{
		{name: "empty", holdings: nil, wantErr: true, wantField: "stocks"},
		{name: "blank ticker", holdings: []model.Holding{holding("  ", "1")}, wantErr: true, wantField: "stocks[0].ticker"},
		{name: "quantity below minimum", holdings: []model.Holding{holding("TCS.NS", "1"), holding("INFY.NS", "0.005")}, wantErr: true, wantField: "stocks[1].quantity"},
		{name: "negative quantity", holdings: []model.Holding{holding("TCS.NS", "-1")}, wantErr: true, wantField: "stocks[0].quantity"},
		{name: "minimum quantity", holdings: []model.Holding{holding("TCS.NS", "0.01")}},
		{name: "valid", holdings: []model.Holding{holding("TCS.NS", "10"), holding("INFY.NS", "2.5")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateHoldings(tt.holdings)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if !errors.Is(err, ErrValidation) {
				t.Fatalf("got=%v want ErrValidation", err)
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tt.wantField {
				t.Fatalf("field got=%v want=%s", err, tt.wantField)
			}
		})
	}
}

func TestValidateHoldingsNormalizesTickers(t *testing.T) {
	got, err := ValidateHoldings([]model.Holding{holding(" tcs.ns ", "1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Ticker != "TCS.NS" {
		t.Fatalf("got=%q want=%q", got[0].Ticker, "TCS.NS")
	}
}

func TestNormalizeHoldingsDropsNonPositive(t *testing.T) {
	got, err := NormalizeHoldings([]model.Holding{holding("tcs.ns", "0"), holding("infy.ns", "3"), holding("itc.ns", "-2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "INFY.NS" {
		t.Fatalf("got=%+v want only INFY.NS", got)
	}
}

func TestQuotaExceededErrorIs(t *testing.T) {
	err := error(&QuotaExceededError{Usage: model.UsageEntry{Date: "2024-03-15", CreditsUsed: 10}})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected errors.Is ErrQuotaExceeded")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("quota error must not match ErrValidation")
	}

	var qErr *QuotaExceededError
	if !errors.As(err, &qErr) || qErr.Usage.CreditsUsed != 10 {
		t.Fatalf("errors.As failed: %v", err)
	}
}
