package model

import "time"

const DefaultPortfolioName = "My Portfolio"

type Portfolio struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Holdings  []Holding `json:"stocks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Portfolio) Tickers() []string {
	tickers := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}
