package model

type UsageEntry struct {
	Date              string `json:"date"`
	AnalysesPerformed int    `json:"portfolioAnalyses"`
	CreditsUsed       int    `json:"creditsUsed"`
	CreditsRemaining  int    `json:"creditsRemaining"`
}

type UsageSummary struct {
	Today           UsageEntry   `json:"today"`
	MonthlyAnalyses int          `json:"monthlyAnalyses"`
	History         []UsageEntry `json:"history"`
}
