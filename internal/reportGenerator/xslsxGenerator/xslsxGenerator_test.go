package xslsxGenerator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestGenerate(t *testing.T) {
	report := model.AnalysisReport{
		Portfolio: &model.Portfolio{
			ID:       "p-1",
			Name:     "Core",
			Holdings: []model.Holding{{Ticker: "TCS.NS", Quantity: decimal.NewFromInt(10)}},
		},
		Analysis: model.PortfolioAnalysis{
			ID:          "a-1",
			PortfolioID: "p-1",
			Advice: []model.AdviceItem{
				{Type: model.AdviceSell, Ticker: "TCS.NS", Message: "Strong momentum", Confidence: model.ConfidenceHigh, Icon: "📈"},
			},
			TotalValue:           decimal.NewFromInt(35000),
			RiskLevel:            "High",
			DiversificationScore: decimal.Zero,
			CreatedAt:            time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		},
		UsageHistory: []model.UsageEntry{
			{Date: "2024-03-15", AnalysesPerformed: 2, CreditsUsed: 2, CreditsRemaining: 8},
			{Date: "2024-03-14", AnalysesPerformed: 1, CreditsUsed: 1, CreditsRemaining: 9},
		},
	}

	fileBytes, ext, err := New().Generate(context.Background(), report)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if ext != ".xlsx" {
		t.Fatalf("ext got=%s want=.xlsx", ext)
	}

	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != AnalysisSheet || sheets[1] != UsageSheet {
		t.Fatalf("sheets got=%v", sheets)
	}

	if got, _ := f.GetCellValue(AnalysisSheet, "B2"); got != "Core" {
		t.Fatalf("portfolio name got=%q want=Core", got)
	}
	if got, _ := f.GetCellValue(AnalysisSheet, "E13"); got != "Strong momentum" {
		t.Fatalf("advice message got=%q", got)
	}
	if got, _ := f.GetCellValue(UsageSheet, "A3"); got != "2024-03-15" {
		t.Fatalf("usage date got=%q", got)
	}
	if got, _ := f.GetCellValue(UsageSheet, "D4"); got != "9" {
		t.Fatalf("credits remaining got=%q want=9", got)
	}
}

func TestGenerateEmptyAnalysis(t *testing.T) {
	if _, _, err := New().Generate(context.Background(), model.AnalysisReport{}); err == nil {
		t.Fatalf("expected error for empty analysis")
	}
}
