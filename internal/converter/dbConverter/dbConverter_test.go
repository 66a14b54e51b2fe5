package dbConverter

import (
	"testing"
	"time"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func TestPortfolioRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	portfolio := model.Portfolio{
		ID:   "p-1",
		Name: "Long term",
		Holdings: []model.Holding{
			{Ticker: "TCS.NS", Quantity: decimal.RequireFromString("10.5")},
			{Ticker: "INFY.NS", Quantity: decimal.NewFromInt(3)},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbPortfolio, err := ToDbPortfolio(portfolio)
	if err != nil {
		t.Fatalf("ToDbPortfolio: %v", err)
	}

	got, err := ConvertPortfolio(dbPortfolio)
	if err != nil {
		t.Fatalf("ConvertPortfolio: %v", err)
	}

	if got.ID != portfolio.ID || got.Name != portfolio.Name || len(got.Holdings) != 2 {
		t.Fatalf("got=%+v want=%+v", got, portfolio)
	}
	if !got.Holdings[0].Quantity.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("quantity got=%s want=10.5", got.Holdings[0].Quantity)
	}
}

func TestConvertPortfolioEmptyHoldings(t *testing.T) {
	got, err := ConvertPortfolio(dbModel.Portfolio{PortfolioID: "p-1"})
	if err != nil {
		t.Fatalf("ConvertPortfolio: %v", err)
	}
	if got.Holdings == nil || len(got.Holdings) != 0 {
		t.Fatalf("holdings got=%v want empty non-nil slice", got.Holdings)
	}
}

func TestConvertAnalysisBadJSON(t *testing.T) {
	_, err := ConvertAnalysis(dbModel.Analysis{AnalysisID: "a-1", Advice: []byte("{")})
	if err == nil {
		t.Fatalf("expected error for malformed advice")
	}
}

func TestToDbAnalysisNilAdvice(t *testing.T) {
	dbAnalysis, err := ToDbAnalysis(model.PortfolioAnalysis{ID: "a-1"})
	if err != nil {
		t.Fatalf("ToDbAnalysis: %v", err)
	}
	if string(dbAnalysis.Advice) != "[]" {
		t.Fatalf("advice got=%s want=[]", dbAnalysis.Advice)
	}
}
