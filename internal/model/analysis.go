package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPortfolioID marks analyses of ad-hoc submissions that belong to no stored portfolio.
const DefaultPortfolioID = "default"

type PortfolioAnalysis struct {
	ID                   string          `json:"id"`
	PortfolioID          string          `json:"portfolioId"`
	Advice               []AdviceItem    `json:"advice"`
	TotalValue           decimal.Decimal `json:"totalValue"`
	RiskLevel            string          `json:"riskLevel"`
	DiversificationScore decimal.Decimal `json:"diversificationScore"`
	CreatedAt            time.Time       `json:"createdAt"`
}

type AnalysisResult struct {
	Analysis PortfolioAnalysis `json:"analysis"`
	Quotes   []Quote           `json:"stockData"`
	Usage    UsageEntry        `json:"usage"`
}

type AnalysisReport struct {
	Portfolio    *Portfolio
	Analysis     PortfolioAnalysis
	UsageHistory []UsageEntry
}
