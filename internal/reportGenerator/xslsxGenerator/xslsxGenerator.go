package xslsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/xuri/excelize/v2"
)

const (
	AnalysisSheet = "Analysis"
	UsageSheet    = "Usage"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

func (g *XSLSXGenerator) Generate(ctx context.Context, report model.AnalysisReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.Generate"

	if report.Analysis.ID == "" {
		return nil, "", errors.New("empty analysis")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("analysisID", report.Analysis.ID))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := f.SetSheetName("Sheet1", AnalysisSheet); err != nil {
		return nil, "", fmt.Errorf("rename default sheet: %w", err)
	}

	if err := g.fillAnalysisSheet(f, report); err != nil {
		slog.Error("got error while filling analysis sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	if err := g.fillUsageSheet(f, report.UsageHistory); err != nil {
		slog.Error("got error while filling usage sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

// sectionTitle writes a merged, filled title row spanning from..to.
func sectionTitle(f *excelize.File, sheet, from, to, title, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}

	if err := f.SetCellStr(sheet, from, title); err != nil {
		return err
	}

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func (g *XSLSXGenerator) fillAnalysisSheet(f *excelize.File, report model.AnalysisReport) error {
	sheet := AnalysisSheet
	analysis := report.Analysis

	portfolioName := model.DefaultPortfolioName
	if report.Portfolio != nil && report.Portfolio.Name != "" {
		portfolioName = report.Portfolio.Name
	}

	// summary
	if err := sectionTitle(f, sheet, "A1", "B1", "Summary", "#cfe2f3"); err != nil {
		return err
	}

	summary := [][2]any{
		{"portfolio", portfolioName},
		{"portfolio id", analysis.PortfolioID},
		{"analysis id", analysis.ID},
		{"created at", analysis.CreatedAt},
		{"total value", analysis.TotalValue.InexactFloat64()},
		{"risk level", analysis.RiskLevel},
		{"diversification score", analysis.DiversificationScore.InexactFloat64()},
	}
	for i, row := range summary {
		_ = f.SetCellValue(sheet, cell("A", i+2), row[0])
		_ = f.SetCellValue(sheet, cell("B", i+2), row[1])
	}

	// advice
	rowNum := len(summary) + 4
	if err := sectionTitle(f, sheet, cell("A", rowNum), cell("E", rowNum), "Advice", "#d9ead3"); err != nil {
		return err
	}

	rowNum++
	_ = f.SetCellStr(sheet, cell("A", rowNum), "type")
	_ = f.SetCellStr(sheet, cell("B", rowNum), "ticker")
	_ = f.SetCellStr(sheet, cell("C", rowNum), "confidence")
	_ = f.SetCellStr(sheet, cell("D", rowNum), "icon")
	_ = f.SetCellStr(sheet, cell("E", rowNum), "message")

	for _, item := range analysis.Advice {
		rowNum++
		_ = f.SetCellStr(sheet, cell("A", rowNum), string(item.Type))
		_ = f.SetCellStr(sheet, cell("B", rowNum), item.Ticker)
		_ = f.SetCellStr(sheet, cell("C", rowNum), string(item.Confidence))
		_ = f.SetCellStr(sheet, cell("D", rowNum), item.Icon)
		_ = f.SetCellStr(sheet, cell("E", rowNum), item.Message)
	}

	if report.Portfolio == nil || len(report.Portfolio.Holdings) == 0 {
		return nil
	}

	// holdings
	rowNum += 3
	if err := sectionTitle(f, sheet, cell("A", rowNum), cell("B", rowNum), "Holdings", "#f9cb9c"); err != nil {
		return err
	}

	rowNum++
	_ = f.SetCellStr(sheet, cell("A", rowNum), "ticker")
	_ = f.SetCellStr(sheet, cell("B", rowNum), "quantity")

	for _, h := range report.Portfolio.Holdings {
		rowNum++
		_ = f.SetCellStr(sheet, cell("A", rowNum), h.Ticker)
		_ = f.SetCellValue(sheet, cell("B", rowNum), h.Quantity.InexactFloat64())
	}

	return nil
}

func (g *XSLSXGenerator) fillUsageSheet(f *excelize.File, history []model.UsageEntry) error {
	sheet := UsageSheet

	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := sectionTitle(f, sheet, "A1", "D1", "Usage history", "#cccccc"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheet, "A2", "date")
	_ = f.SetCellStr(sheet, "B2", "analyses")
	_ = f.SetCellStr(sheet, "C2", "credits used")
	_ = f.SetCellStr(sheet, "D2", "credits remaining")

	for i, entry := range history {
		_ = f.SetCellStr(sheet, cell("A", i+3), entry.Date)
		_ = f.SetCellInt(sheet, cell("B", i+3), int64(entry.AnalysesPerformed))
		_ = f.SetCellInt(sheet, cell("C", i+3), int64(entry.CreditsUsed))
		_ = f.SetCellInt(sheet, cell("D", i+3), int64(entry.CreditsRemaining))
	}

	return nil
}
