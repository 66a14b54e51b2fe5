package dbConverter

import (
	"encoding/json"
	"fmt"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/dbModel"
)

func ConvertPortfolio(dbPortfolio dbModel.Portfolio) (model.Portfolio, error) {
	holdings := make([]model.Holding, 0)
	if len(dbPortfolio.Holdings) > 0 {
		if err := json.Unmarshal(dbPortfolio.Holdings, &holdings); err != nil {
			return model.Portfolio{}, fmt.Errorf("unmarshal holdings of portfolio %s: %w", dbPortfolio.PortfolioID, err)
		}
	}

	return model.Portfolio{
		ID:        dbPortfolio.PortfolioID,
		Name:      dbPortfolio.Name,
		Holdings:  holdings,
		CreatedAt: dbPortfolio.DtCreate,
		UpdatedAt: dbPortfolio.DtUpdate,
	}, nil
}

func ToDbPortfolio(portfolio model.Portfolio) (dbModel.Portfolio, error) {
	holdings := portfolio.Holdings
	if holdings == nil {
		holdings = []model.Holding{}
	}

	raw, err := json.Marshal(holdings)
	if err != nil {
		return dbModel.Portfolio{}, fmt.Errorf("marshal holdings: %w", err)
	}

	return dbModel.Portfolio{
		PortfolioID: portfolio.ID,
		Name:        portfolio.Name,
		Holdings:    raw,
		DtCreate:    portfolio.CreatedAt,
		DtUpdate:    portfolio.UpdatedAt,
	}, nil
}

func ConvertAnalysis(dbAnalysis dbModel.Analysis) (model.PortfolioAnalysis, error) {
	advice := make([]model.AdviceItem, 0)
	if len(dbAnalysis.Advice) > 0 {
		if err := json.Unmarshal(dbAnalysis.Advice, &advice); err != nil {
			return model.PortfolioAnalysis{}, fmt.Errorf("unmarshal advice of analysis %s: %w", dbAnalysis.AnalysisID, err)
		}
	}

	return model.PortfolioAnalysis{
		ID:                   dbAnalysis.AnalysisID,
		PortfolioID:          dbAnalysis.PortfolioID,
		Advice:               advice,
		TotalValue:           dbAnalysis.TotalValue,
		RiskLevel:            dbAnalysis.RiskLevel,
		DiversificationScore: dbAnalysis.DiversificationScore,
		CreatedAt:            dbAnalysis.DtCreate,
	}, nil
}

func ToDbAnalysis(analysis model.PortfolioAnalysis) (dbModel.Analysis, error) {
	advice := analysis.Advice
	if advice == nil {
		advice = []model.AdviceItem{}
	}

	raw, err := json.Marshal(advice)
	if err != nil {
		return dbModel.Analysis{}, fmt.Errorf("marshal advice: %w", err)
	}

	return dbModel.Analysis{
		AnalysisID:           analysis.ID,
		PortfolioID:          analysis.PortfolioID,
		Advice:               raw,
		TotalValue:           analysis.TotalValue,
		RiskLevel:            analysis.RiskLevel,
		DiversificationScore: analysis.DiversificationScore,
		DtCreate:             analysis.CreatedAt,
	}, nil
}

func ConvertUsage(dbUsage dbModel.Usage) model.UsageEntry {
	return model.UsageEntry{
		Date:              dbUsage.UsageDate,
		AnalysesPerformed: dbUsage.AnalysesPerformed,
		CreditsUsed:       dbUsage.CreditsUsed,
		CreditsRemaining:  dbUsage.CreditsRemaining,
	}
}

func ToDbUsage(entry model.UsageEntry) dbModel.Usage {
	return dbModel.Usage{
		UsageDate:         entry.Date,
		AnalysesPerformed: entry.AnalysesPerformed,
		CreditsUsed:       entry.CreditsUsed,
		CreditsRemaining:  entry.CreditsRemaining,
	}
}
