package dbModel

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

type Portfolio struct {
	PortfolioID string         `db:"portfolio_id"`
	Name        string         `db:"name"`
	Holdings    types.JSONText `db:"holdings"`
	DtCreate    time.Time      `db:"dt_create"`
	DtUpdate    time.Time      `db:"dt_update"`
}
