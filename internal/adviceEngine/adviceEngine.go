// Package adviceEngine turns holdings and their quotes into a ranked list of advice items.
//
// The engine is pure: it performs no I/O, reads no clock and never mutates its inputs.
package adviceEngine

import (
	"fmt"
	"sort"

	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/shopspring/decimal"
)

const MaxAdviceItems = 5

const (
	RiskLevelHigh   = "High"
	RiskLevelMedium = "Medium"
	RiskLevelLow    = "Low"
)

var (
	hundred = decimal.NewFromInt(100)

	momentumChange  = decimal.NewFromInt(3)
	momentumAboveMA = decimal.NewFromInt(5)

	dipChange       = decimal.NewFromInt(-2)
	dipBelowMA      = decimal.NewFromInt(-5)
	overweightShare = decimal.RequireFromString("0.4")

	volatileChange = decimal.NewFromInt(2)

	stableChange = decimal.NewFromInt(2)
	stableMA     = decimal.NewFromInt(3)

	highConcentration   = decimal.RequireFromString("0.65")
	mediumConcentration = decimal.RequireFromString("0.45")

	smallPortfolioValue     = decimal.NewFromInt(50_000)
	largePortfolioValue     = decimal.NewFromInt(500_000)
	largePortfolioMinStocks = 5
	lakh                    = decimal.NewFromInt(100_000)
)

type stockMetrics struct {
	dailyChangePercent decimal.Decimal
	currentPrice       decimal.Decimal
	movingAverage50    decimal.NullDecimal
	value              decimal.Decimal
	weightage          decimal.Decimal
	hasWeightage       bool // false while the running total is zero, neither weightage rule applies then
	sector             string
	name               string
}

type Summary struct {
	TotalValue           decimal.Decimal
	SectorDistribution   map[string]decimal.Decimal
	DominantSector       string
	SectorConcentration  decimal.Decimal
	RiskLevel            string
	DiversificationScore decimal.Decimal
	ResolvedHoldings     int
}

// GenerateAdvice evaluates per-stock rules and portfolio-level rules, then returns at most
// MaxAdviceItems items ordered by confidence. quotes is indexed like holdings; a nil quote
// excludes its holding from metrics and advice.
func GenerateAdvice(holdings []model.Holding, quotes []*model.Quote) []model.AdviceItem {
	metrics, summary := collectMetrics(holdings, quotes)
	if summary.ResolvedHoldings == 0 {
		return []model.AdviceItem{}
	}

	advice := make([]model.AdviceItem, 0, len(holdings)+2)

	for i, holding := range holdings {
		if quoteAt(quotes, i) == nil {
			continue
		}
		m, ok := metrics[holding.Ticker]
		if !ok {
			continue
		}
		if item, ok := stockAdvice(holding.Ticker, m); ok {
			advice = append(advice, item)
		}
	}

	advice = append(advice, portfolioAdvice(summary, len(holdings))...)

	return rank(advice)
}

// Summarize returns the aggregates GenerateAdvice works with.
func Summarize(holdings []model.Holding, quotes []*model.Quote) Summary {
	_, summary := collectMetrics(holdings, quotes)
	return summary
}

func quoteAt(quotes []*model.Quote, i int) *model.Quote {
	if i >= len(quotes) {
		return nil
	}
	return quotes[i]
}

// collectMetrics computes weightage against the running total accumulated so far, so the
// value depends on holding order.
func collectMetrics(holdings []model.Holding, quotes []*model.Quote) (map[string]stockMetrics, Summary) {
	metrics := make(map[string]stockMetrics, len(holdings))
	summary := Summary{
		TotalValue:         decimal.Zero,
		SectorDistribution: make(map[string]decimal.Decimal),
	}
	sectorOrder := make([]string, 0)

	for i, holding := range holdings {
		quote := quoteAt(quotes, i)
		if quote == nil {
			continue
		}
		summary.ResolvedHoldings++

		value := holding.Quantity.Mul(quote.CurrentPrice)
		summary.TotalValue = summary.TotalValue.Add(value)

		weightage := decimal.Zero
		hasWeightage := !summary.TotalValue.IsZero()
		if hasWeightage {
			weightage = value.Div(summary.TotalValue)
		}

		sector := quote.SectorOrDefault()
		if _, ok := summary.SectorDistribution[sector]; !ok {
			sectorOrder = append(sectorOrder, sector)
		}
		summary.SectorDistribution[sector] = summary.SectorDistribution[sector].Add(value)

		metrics[holding.Ticker] = stockMetrics{
			dailyChangePercent: quote.DailyChangePercent,
			currentPrice:       quote.CurrentPrice,
			movingAverage50:    quote.MovingAverage50,
			value:              value,
			weightage:          weightage,
			hasWeightage:       hasWeightage,
			sector:             sector,
			name:               quote.Name,
		}
	}

	// ties keep the sector seen first
	dominantValue := decimal.Zero
	for _, sector := range sectorOrder {
		if v := summary.SectorDistribution[sector]; summary.DominantSector == "" || v.GreaterThan(dominantValue) {
			summary.DominantSector = sector
			dominantValue = v
		}
	}

	summary.SectorConcentration = decimal.Zero
	if summary.DominantSector != "" && !summary.TotalValue.IsZero() {
		summary.SectorConcentration = dominantValue.Div(summary.TotalValue)
	}

	summary.RiskLevel = riskLevel(summary.SectorConcentration)
	summary.DiversificationScore = decimal.Zero
	if !summary.TotalValue.IsZero() {
		summary.DiversificationScore = decimal.NewFromInt(1).Sub(summary.SectorConcentration).Round(2)
	}

	return metrics, summary
}

func riskLevel(concentration decimal.Decimal) string {
	switch {
	case concentration.GreaterThan(highConcentration):
		return RiskLevelHigh
	case concentration.GreaterThan(mediumConcentration):
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

func priceVsMA(m stockMetrics) decimal.Decimal {
	if !m.movingAverage50.Valid || m.movingAverage50.Decimal.IsZero() {
		return decimal.Zero
	}
	ma := m.movingAverage50.Decimal
	return m.currentPrice.Sub(ma).Div(ma).Mul(hundred)
}

// stockAdvice applies the per-stock rules in priority order; the first match wins.
func stockAdvice(ticker string, m stockMetrics) (model.AdviceItem, bool) {
	name := m.name
	if name == "" {
		name = ticker
	}

	vsMA := priceVsMA(m)
	change := m.dailyChangePercent

	switch {
	case change.GreaterThan(momentumChange) && vsMA.GreaterThan(momentumAboveMA):
		return model.AdviceItem{
			Type:   model.AdviceSell,
			Ticker: ticker,
			Message: fmt.Sprintf(
				"%s shows strong momentum (+%s%% today, %s%% above 50-day MA). Consider booking partial profits to lock in gains.",
				name, change.StringFixed(1), vsMA.StringFixed(1),
			),
			Confidence: model.ConfidenceHigh,
			Icon:       "📈",
		}, true
	case change.LessThan(dipChange) && vsMA.LessThan(dipBelowMA) && m.hasWeightage && m.weightage.LessThan(overweightShare):
		return model.AdviceItem{
			Type:   model.AdviceBuy,
			Ticker: ticker,
			Message: fmt.Sprintf(
				"%s is undervalued (%s%% below 50-day MA). Quality %s stock trading at attractive levels - consider accumulating.",
				name, vsMA.Abs().StringFixed(1), m.sector,
			),
			Confidence: model.ConfidenceHigh,
			Icon:       "💎",
		}, true
	case change.Abs().GreaterThan(volatileChange) && m.hasWeightage && m.weightage.GreaterThan(overweightShare):
		return model.AdviceItem{
			Type:   model.AdviceSell,
			Ticker: ticker,
			Message: fmt.Sprintf(
				"%s makes up %s%% of your portfolio and shows high volatility. Consider reducing position to manage risk.",
				name, m.weightage.Mul(hundred).StringFixed(1),
			),
			Confidence: model.ConfidenceMed,
			Icon:       "⚖️",
		}, true
	case change.Abs().LessThan(stableChange) && vsMA.Abs().LessThan(stableMA):
		return model.AdviceItem{
			Type:   model.AdviceHold,
			Ticker: ticker,
			Message: fmt.Sprintf(
				"%s trades near fair value with stable performance. Good core holding - maintain current position and monitor quarterly results.",
				name,
			),
			Confidence: model.ConfidenceMed,
			Icon:       "🤝",
		}, true
	}

	return model.AdviceItem{}, false
}

// portfolioAdvice evaluates sector concentration and portfolio size independently.
func portfolioAdvice(s Summary, holdingsCount int) []model.AdviceItem {
	advice := make([]model.AdviceItem, 0, 2)
	concentrationPct := s.SectorConcentration.Mul(hundred).StringFixed(0)

	switch {
	case s.SectorConcentration.GreaterThan(highConcentration):
		advice = append(advice, model.AdviceItem{
			Type: model.AdviceDiversify,
			Message: fmt.Sprintf(
				"Portfolio is heavily concentrated (%s%%) in %s sector. Consider adding Banking, FMCG, or Healthcare stocks for better diversification.",
				concentrationPct, s.DominantSector,
			),
			Confidence: model.ConfidenceHigh,
			Icon:       "🔄",
		})
	case s.SectorConcentration.GreaterThan(mediumConcentration):
		advice = append(advice, model.AdviceItem{
			Type: model.AdviceDiversify,
			Message: fmt.Sprintf(
				"Good sector mix, but %s dominates at %s%%. Consider adding small positions in defensive sectors like Pharmaceuticals or Utilities.",
				s.DominantSector, concentrationPct,
			),
			Confidence: model.ConfidenceMed,
			Icon:       "📊",
		})
	}

	switch {
	case s.TotalValue.LessThan(smallPortfolioValue):
		advice = append(advice, model.AdviceItem{
			Type: model.AdviceBuy,
			Message: fmt.Sprintf(
				"Small portfolio size (₹%s). Focus on 2-3 quality large-cap stocks and consider SIP investment to build substantial wealth over time.",
				FormatINR(s.TotalValue),
			),
			Confidence: model.ConfidenceHigh,
			Icon:       "📈",
		})
	case s.TotalValue.GreaterThan(largePortfolioValue) && holdingsCount < largePortfolioMinStocks:
		advice = append(advice, model.AdviceItem{
			Type: model.AdviceDiversify,
			Message: fmt.Sprintf(
				"Substantial portfolio (₹%sL) with only %d stocks. Consider adding 2-3 more quality stocks across different sectors.",
				s.TotalValue.Div(lakh).StringFixed(1), holdingsCount,
			),
			Confidence: model.ConfidenceMed,
			Icon:       "🚀",
		})
	}

	return advice
}

// rank orders by confidence, keeping generation order among equals, and truncates.
func rank(advice []model.AdviceItem) []model.AdviceItem {
	sort.SliceStable(advice, func(i, j int) bool {
		return advice[i].Confidence.Rank() > advice[j].Confidence.Rank()
	})

	if len(advice) > MaxAdviceItems {
		advice = advice[:MaxAdviceItems]
	}

	return advice
}
