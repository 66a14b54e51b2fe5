package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSector is used wherever a quote carries no sector label.
const DefaultSector = "Unknown"

type Quote struct {
	Ticker             string              `json:"ticker"`
	Name               string              `json:"name,omitempty"`
	CurrentPrice       decimal.Decimal     `json:"currentPrice"`
	DailyChange        decimal.Decimal     `json:"dailyChange"`
	DailyChangePercent decimal.Decimal     `json:"dailyChangePercent"`
	MovingAverage50    decimal.NullDecimal `json:"movingAverage50"`
	Sector             string              `json:"sector,omitempty"`
	LastUpdated        time.Time           `json:"lastUpdated"`
}

// IsResolved reports whether the quote carries a usable price.
func (q Quote) IsResolved() bool {
	return q.CurrentPrice.IsPositive()
}

func (q Quote) SectorOrDefault() string {
	if q.Sector == "" {
		return DefaultSector
	}
	return q.Sector
}

type MarketIndex struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	Change decimal.Decimal `json:"change"`
}
