package model

import "github.com/shopspring/decimal"

// MinQuantity is the smallest quantity accepted for a submitted holding.
var MinQuantity = decimal.RequireFromString("0.01")

type Holding struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
}
