package dbModel

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

type Analysis struct {
	AnalysisID           string          `db:"analysis_id"`
	PortfolioID          string          `db:"portfolio_id"`
	Advice               types.JSONText  `db:"advice"`
	TotalValue           decimal.Decimal `db:"total_value"`
	RiskLevel            string          `db:"risk_level"`
	DiversificationScore decimal.Decimal `db:"diversification_score"`
	DtCreate             time.Time       `db:"dt_create"`
}
