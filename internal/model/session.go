package model

type State int

const (
	DefaultState State = iota
	ExpectingHoldings
)

type Session struct {
	State       State     `json:"state"`
	PortfolioID string    `json:"portfolioId,omitempty"`
	Holdings    []Holding `json:"holdings,omitempty"`
}
