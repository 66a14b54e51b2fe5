package analysisService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/data/repository"
	"github.com/KotFed0t/invest_advice_bot/internal/adviceEngine"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/KotFed0t/invest_advice_bot/internal/usageLedger"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const creditsPerAnalysis = 1

type QuoteSource interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
}

type QuoteCache interface {
	SetQuote(ctx context.Context, quote model.Quote) error
}

type UsageLedger interface {
	GetTodayUsage(ctx context.Context) (model.UsageEntry, error)
	ConsumeCredits(ctx context.Context, creditsUsed int) (model.UsageEntry, error)
}

type Repository interface {
	GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error)
	SaveAnalysis(ctx context.Context, analysis model.PortfolioAnalysis) error
	GetLatestAnalysis(ctx context.Context, portfolioID string) (model.PortfolioAnalysis, error)
}

type AnalysisService struct {
	repo             Repository
	ledger           UsageLedger
	quoteSource      QuoteSource
	cache            QuoteCache
	fetchConcurrency int
	now              func() time.Time
}

func New(cfg *config.Config, repo Repository, ledger UsageLedger, quoteSource QuoteSource, cache QuoteCache) *AnalysisService {
	concurrency := cfg.Analysis.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &AnalysisService{
		repo:             repo,
		ledger:           ledger,
		quoteSource:      quoteSource,
		cache:            cache,
		fetchConcurrency: concurrency,
		now:              time.Now,
	}
}

// AnalyzePortfolio runs one credit-consuming analysis of holdings.
// An empty portfolioID records the analysis under model.DefaultPortfolioID.
//
// Usage is debited before the analysis record is written, so a persistence
// failure is returned with the credit already spent.
func (s *AnalysisService) AnalyzePortfolio(ctx context.Context, portfolioID string, holdings []model.Holding) (result model.AnalysisResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AnalysisService.AnalyzePortfolio"

	slog.Debug("AnalyzePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID), slog.Int("holdings", len(holdings)))
	defer func() {
		slog.Debug("AnalyzePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))
	}()

	holdings, err = service.ValidateHoldings(holdings)
	if err != nil {
		slog.Info("holdings rejected", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalysisResult{}, err
	}

	if portfolioID == "" {
		portfolioID = model.DefaultPortfolioID
	}

	usage, err := s.ledger.GetTodayUsage(ctx)
	if err != nil {
		slog.Error("got error from ledger.GetTodayUsage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalysisResult{}, fmt.Errorf("get today usage: %w", err)
	}

	if usage.CreditsRemaining <= 0 {
		slog.Info("daily analysis limit reached", slog.String("rqID", rqID), slog.String("op", op), slog.Any("usage", usage))
		return model.AnalysisResult{}, &service.QuotaExceededError{Usage: usage}
	}

	quotes := s.fetchQuotes(ctx, holdings)

	resolvedHoldings := make([]model.Holding, 0, len(holdings))
	resolvedQuotes := make([]*model.Quote, 0, len(holdings))
	stockData := make([]model.Quote, 0, len(holdings))
	for i, quote := range quotes {
		if quote == nil {
			continue
		}
		resolvedHoldings = append(resolvedHoldings, holdings[i])
		resolvedQuotes = append(resolvedQuotes, quote)
		stockData = append(stockData, *quote)
	}

	advice := adviceEngine.GenerateAdvice(resolvedHoldings, resolvedQuotes)
	summary := adviceEngine.Summarize(resolvedHoldings, resolvedQuotes)

	analysis := model.PortfolioAnalysis{
		ID:                   uuid.NewString(),
		PortfolioID:          portfolioID,
		Advice:               advice,
		TotalValue:           summary.TotalValue,
		RiskLevel:            summary.RiskLevel,
		DiversificationScore: summary.DiversificationScore,
		CreatedAt:            s.now().UTC(),
	}

	// the gate above is advisory, concurrent requests can pass it on the last credit
	usage, err = s.ledger.ConsumeCredits(ctx, creditsPerAnalysis)
	if errors.Is(err, usageLedger.ErrCreditsExhausted) {
		slog.Info("credits ran out during analysis", slog.String("rqID", rqID), slog.String("op", op), slog.Any("usage", usage))
		return model.AnalysisResult{}, &service.QuotaExceededError{Usage: usage}
	}
	if err != nil {
		slog.Error("got error from ledger.ConsumeCredits", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalysisResult{}, fmt.Errorf("consume credits: %w", err)
	}

	err = s.repo.SaveAnalysis(ctx, analysis)
	if err != nil {
		slog.Error("got error from repo.SaveAnalysis", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalysisResult{}, fmt.Errorf("%w: %w", service.ErrPersistence, err)
	}

	slog.Info(
		"portfolio analyzed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("analysisID", analysis.ID),
		slog.Int("resolved", len(resolvedQuotes)),
		slog.Int("requested", len(holdings)),
		slog.Int("creditsRemaining", usage.CreditsRemaining),
	)

	return model.AnalysisResult{
		Analysis: analysis,
		Quotes:   stockData,
		Usage:    usage,
	}, nil
}

// AnalyzeSavedPortfolio analyzes the holdings currently stored for portfolioID.
func (s *AnalysisService) AnalyzeSavedPortfolio(ctx context.Context, portfolioID string) (model.AnalysisResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AnalysisService.AnalyzeSavedPortfolio"

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.AnalysisResult{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AnalysisResult{}, err
	}

	return s.AnalyzePortfolio(ctx, portfolio.ID, portfolio.Holdings)
}

func (s *AnalysisService) GetLatestAnalysis(ctx context.Context, portfolioID string) (model.PortfolioAnalysis, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AnalysisService.GetLatestAnalysis"

	if portfolioID == "" {
		portfolioID = model.DefaultPortfolioID
	}

	analysis, err := s.repo.GetLatestAnalysis(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PortfolioAnalysis{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetLatestAnalysis", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioAnalysis{}, err
	}

	return analysis, nil
}

// fetchQuotes resolves one quote per holding. The result is index-aligned with holdings,
// nil marks a holding whose quote is unavailable.
func (s *AnalysisService) fetchQuotes(ctx context.Context, holdings []model.Holding) []*model.Quote {
	quotes := make([]*model.Quote, len(holdings))

	var g errgroup.Group
	g.SetLimit(s.fetchConcurrency)

	for i, h := range holdings {
		g.Go(func() error {
			quote, err := s.fetchQuote(ctx, h.Ticker)
			if err != nil {
				slog.Warn(
					"quote unavailable, holding skipped",
					slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
					slog.String("ticker", h.Ticker),
					slog.String("err", err.Error()),
				)
				// one ticker never fails the whole analysis
				return nil
			}
			quotes[i] = &quote
			return nil
		})
	}
	_ = g.Wait()

	return quotes
}

func (s *AnalysisService) fetchQuote(ctx context.Context, ticker string) (model.Quote, error) {
	quote, err := s.quoteSource.GetQuote(ctx, ticker)
	if err != nil {
		return model.Quote{}, fmt.Errorf("%w: %s: %w", service.ErrQuoteUnavailable, ticker, err)
	}

	if !quote.IsResolved() {
		return model.Quote{}, fmt.Errorf("%w: %s: no usable price", service.ErrQuoteUnavailable, ticker)
	}

	if err := s.cache.SetQuote(ctx, quote); err != nil {
		slog.Warn("can't cache quote", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("ticker", ticker), slog.String("err", err.Error()))
	}

	return quote, nil
}
