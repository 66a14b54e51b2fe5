package dbModel

type Usage struct {
	UsageDate         string `db:"usage_date"`
	AnalysesPerformed int    `db:"analyses_performed"`
	CreditsUsed       int    `db:"credits_used"`
	CreditsRemaining  int    `db:"credits_remaining"`
}
