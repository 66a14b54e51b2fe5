package telebotConverter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KotFed0t/invest_advice_bot/internal/adviceEngine"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const (
	ReportBtnUnique = "report"
	UsageBtnUnique  = "usage"
)

var ErrBadHoldingsFormat = errors.New("expected holdings like: TCS.NS 10, INFY.NS 5")

// ParseHoldings reads "TICKER QTY" pairs separated by commas, semicolons or new lines.
func ParseHoldings(text string) ([]model.Holding, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	holdings := make([]model.Holding, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: got %q", ErrBadHoldingsFormat, strings.TrimSpace(part))
		}

		quantity, err := decimal.NewFromString(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad quantity %q", ErrBadHoldingsFormat, fields[1])
		}

		holdings = append(holdings, model.Holding{Ticker: fields[0], Quantity: quantity})
	}

	if len(holdings) == 0 {
		return nil, ErrBadHoldingsFormat
	}

	return holdings, nil
}

func AnalysisResponse(result model.AnalysisResult) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder
	analysis := result.Analysis

	sb.WriteString("🧠 Portfolio analysis\n")
	sb.WriteString(fmt.Sprintf("💰 Total value: ₹%s\n", adviceEngine.FormatINR(analysis.TotalValue)))
	sb.WriteString(fmt.Sprintf("⚠️ Risk level: %s\n", analysis.RiskLevel))
	sb.WriteString(fmt.Sprintf("🧩 Diversification score: %s\n\n", analysis.DiversificationScore.StringFixed(2)))

	if len(result.Quotes) > 0 {
		sb.WriteString("📋 Stocks:\n")
		for _, quote := range result.Quotes {
			sb.WriteString(fmt.Sprintf(" ▸ %s ₹%s (%s%%)\n", quote.Ticker, adviceEngine.FormatINR(quote.CurrentPrice), signed(quote.DailyChangePercent)))
		}
		sb.WriteString("\n")
	}

	if len(analysis.Advice) == 0 {
		sb.WriteString("No advice for this portfolio.\n")
	} else {
		sb.WriteString("💡 Advice:\n\n")
		for i, item := range analysis.Advice {
			sb.WriteString(fmt.Sprintf("%d. %s %s", i+1, item.Icon, item.Type))
			if item.Ticker != "" {
				sb.WriteString(" " + item.Ticker)
			}
			sb.WriteString(fmt.Sprintf(" (%s)\n   %s\n\n", item.Confidence, item.Message))
		}
	}

	sb.WriteString(fmt.Sprintf("🎟 Credits left today: %d", result.Usage.CreditsRemaining))

	reportBtn := markup.Data("📄 Excel report", ReportBtnUnique, analysis.PortfolioID)
	usageBtn := markup.Data("📊 Usage", UsageBtnUnique)
	markup.Inline(markup.Row(reportBtn, usageBtn))

	return sb.String(), markup
}

func UsageResponse(summary model.UsageSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 Usage for %s\n", summary.Today.Date))
	sb.WriteString(fmt.Sprintf(" ▸ Analyses: %d\n", summary.Today.AnalysesPerformed))
	sb.WriteString(fmt.Sprintf(" ▸ Credits used: %d\n", summary.Today.CreditsUsed))
	sb.WriteString(fmt.Sprintf(" ▸ Credits remaining: %d\n", summary.Today.CreditsRemaining))
	sb.WriteString(fmt.Sprintf("📅 This month: %d analyses", summary.MonthlyAnalyses))

	return sb.String()
}

func QuotaExceededResponse(usage model.UsageEntry) string {
	return fmt.Sprintf(
		"🚫 Daily analysis limit reached: %d of %d credits used today.\nUpgrade to Pro for unlimited analyses, or come back tomorrow.",
		usage.CreditsUsed,
		usage.CreditsUsed+usage.CreditsRemaining,
	)
}

func QuoteResponse(quote model.Quote) string {
	var sb strings.Builder

	title := quote.Ticker
	if quote.Name != "" {
		title = fmt.Sprintf("%s (%s)", quote.Ticker, quote.Name)
	}

	sb.WriteString(fmt.Sprintf("📈 %s\n", title))
	sb.WriteString(fmt.Sprintf(" ▸ Price: ₹%s\n", adviceEngine.FormatINR(quote.CurrentPrice)))
	sb.WriteString(fmt.Sprintf(" ▸ Change: %s (%s%%)\n", signed(quote.DailyChange), signed(quote.DailyChangePercent)))
	if quote.MovingAverage50.Valid {
		sb.WriteString(fmt.Sprintf(" ▸ 50-day MA: ₹%s\n", adviceEngine.FormatINR(quote.MovingAverage50.Decimal)))
	}
	sb.WriteString(fmt.Sprintf(" ▸ Sector: %s", quote.SectorOrDefault()))

	return sb.String()
}

func signed(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsPositive() {
		return "+" + s
	}
	return s
}
