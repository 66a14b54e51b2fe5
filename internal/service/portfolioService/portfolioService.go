package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/invest_advice_bot/data/repository"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/google/uuid"
)

// reportFilePrefix must match googleDriveApi.ReportFilePrefix for cleanup to find the files.
const reportFilePrefix = "portfolio-analysis-"

// MarketIndices are the indices reported by GetMarketOverview, in display order.
var MarketIndices = []model.MarketIndex{
	{Symbol: "^NSEI", Name: "NIFTY 50"},
	{Symbol: "^BSESN", Name: "SENSEX"},
	{Symbol: "^NSEBANK", Name: "Bank NIFTY"},
}

type QuoteSource interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
}

type QuoteCache interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
	SetQuotes(ctx context.Context, quotes []model.Quote) error
}

type Repository interface {
	CreatePortfolio(ctx context.Context, portfolio model.Portfolio) error
	GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolio model.Portfolio) error
	DeletePortfolio(ctx context.Context, portfolioID string) error
	GetLatestAnalysis(ctx context.Context, portfolioID string) (model.PortfolioAnalysis, error)
}

type UsageLedger interface {
	GetUsageHistory(ctx context.Context) ([]model.UsageEntry, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.AnalysisReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) (int, error)
}

type PortfolioService struct {
	repo            Repository
	cache           QuoteCache
	quoteSource     QuoteSource
	ledger          UsageLedger
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
	now             func() time.Time
}

// New builds the service. cloudStorage may be nil, report export then fails with service.ErrNotConfigured.
func New(
	repo Repository,
	cache QuoteCache,
	quoteSource QuoteSource,
	ledger UsageLedger,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		repo:            repo,
		cache:           cache,
		quoteSource:     quoteSource,
		ledger:          ledger,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
		now:             time.Now,
	}
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func (s *PortfolioService) CreatePortfolio(ctx context.Context, name string, holdings []model.Holding) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreatePortfolio"

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug("CreatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolio.ID))
	}()

	holdings, err = service.NormalizeHoldings(holdings)
	if err != nil {
		return model.Portfolio{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = model.DefaultPortfolioName
	}

	now := s.now().UTC()
	portfolio = model.Portfolio{
		ID:        uuid.NewString(),
		Name:      name,
		Holdings:  holdings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.CreatePortfolio(ctx, portfolio)
	if err != nil {
		slog.Error("got error from repo.CreatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error) {
	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, mapRepoError(err)
	}
	return portfolio, nil
}

func (s *PortfolioService) ListPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	return s.repo.ListPortfolios(ctx)
}

// UpdatePortfolio replaces name and holdings. An empty name keeps the stored one.
func (s *PortfolioService) UpdatePortfolio(ctx context.Context, portfolioID, name string, holdings []model.Holding) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdatePortfolio"

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))
	defer func() {
		slog.Debug("UpdatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))
	}()

	holdings, err := service.NormalizeHoldings(holdings)
	if err != nil {
		return model.Portfolio{}, err
	}

	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, mapRepoError(err)
	}

	if name = strings.TrimSpace(name); name != "" {
		portfolio.Name = name
	}
	portfolio.Holdings = holdings
	portfolio.UpdatedAt = s.now().UTC()

	err = s.repo.UpdatePortfolio(ctx, portfolio)
	if err != nil {
		slog.Error("got error from repo.UpdatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, mapRepoError(err)
	}

	return portfolio, nil
}

func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID string) error {
	return mapRepoError(s.repo.DeletePortfolio(ctx, portfolioID))
}

// GetQuote serves a cached quote when present, otherwise fetches and caches it.
func (s *PortfolioService) GetQuote(ctx context.Context, ticker string) (quote model.Quote, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetQuote"
	ticker = service.NormalizeTicker(ticker)

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
	}()

	if ticker == "" {
		return model.Quote{}, &service.ValidationError{Field: "ticker", Reason: "ticker is required"}
	}

	quote, err = s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}

	slog.Debug("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	quote, err = s.quoteSource.GetQuote(ctx, ticker)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("quote not found in quote source", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
			return model.Quote{}, service.ErrNotFound
		}
		slog.Error("can't get quote from quote source", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Quote{}, fmt.Errorf("%w: %w", service.ErrQuoteUnavailable, err)
	}

	if !quote.IsResolved() {
		return model.Quote{}, service.ErrQuoteUnavailable
	}

	if err := s.cache.SetQuote(ctx, quote); err != nil {
		slog.Warn("can't cache quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return quote, nil
}

// GetQuotes batch-fetches fresh quotes in the order of tickers, skipping unknown ones.
func (s *PortfolioService) GetQuotes(ctx context.Context, tickers []string) ([]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetQuotes"

	normalized := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		if ticker = service.NormalizeTicker(ticker); ticker != "" {
			normalized = append(normalized, ticker)
		}
	}

	if len(normalized) == 0 {
		return nil, &service.ValidationError{Field: "tickers", Reason: "at least one ticker is required"}
	}

	fetched, err := s.quoteSource.GetQuotes(ctx, normalized)
	if err != nil && !errors.Is(err, externalApi.ErrNotFound) {
		slog.Error("can't get quotes from quote source", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", service.ErrQuoteUnavailable, err)
	}

	quotes := make([]model.Quote, 0, len(normalized))
	for _, ticker := range normalized {
		if quote, ok := fetched[ticker]; ok && quote.IsResolved() {
			quotes = append(quotes, quote)
		}
	}

	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Warn("can't cache quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return quotes, nil
}

// GetMarketOverview reports MarketIndices, omitting indices the quote source cannot resolve.
func (s *PortfolioService) GetMarketOverview(ctx context.Context) ([]model.MarketIndex, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetMarketOverview"

	symbols := make([]string, 0, len(MarketIndices))
	for _, index := range MarketIndices {
		symbols = append(symbols, index.Symbol)
	}

	quotes, err := s.quoteSource.GetQuotes(ctx, symbols)
	if err != nil && !errors.Is(err, externalApi.ErrNotFound) {
		slog.Error("can't get index quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: %w", service.ErrQuoteUnavailable, err)
	}

	overview := make([]model.MarketIndex, 0, len(MarketIndices))
	for _, index := range MarketIndices {
		quote, ok := quotes[index.Symbol]
		if !ok || !quote.IsResolved() {
			continue
		}
		index.Value = quote.CurrentPrice
		index.Change = quote.DailyChangePercent
		overview = append(overview, index)
	}

	return overview, nil
}

// RefreshQuoteCache re-fetches quotes of every stored holding.
// Sectors already cached are kept when the batch response carries none.
func (s *PortfolioService) RefreshQuoteCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshQuoteCache"

	slog.Debug("RefreshQuoteCache start", slog.String("rqID", rqID), slog.String("op", op))

	portfolios, err := s.repo.ListPortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.ListPortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	seen := make(map[string]struct{})
	tickers := make([]string, 0)
	for _, portfolio := range portfolios {
		for _, ticker := range portfolio.Tickers() {
			if _, ok := seen[ticker]; ok {
				continue
			}
			seen[ticker] = struct{}{}
			tickers = append(tickers, ticker)
		}
	}

	if len(tickers) == 0 {
		slog.Debug("no tickers to refresh", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	fetched, err := s.quoteSource.GetQuotes(ctx, tickers)
	if err != nil && !errors.Is(err, externalApi.ErrNotFound) {
		slog.Error("can't get quotes from quote source", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	cached, err := s.cache.GetQuotes(ctx, tickers)
	if err != nil {
		slog.Warn("can't read cached quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		cached = map[string]model.Quote{}
	}

	quotes := make([]model.Quote, 0, len(fetched))
	for _, ticker := range tickers {
		quote, ok := fetched[ticker]
		if !ok || !quote.IsResolved() {
			continue
		}
		if quote.Sector == "" {
			quote.Sector = cached[ticker].Sector
		}
		quotes = append(quotes, quote)
	}

	if err := s.cache.SetQuotes(ctx, quotes); err != nil {
		slog.Error("can't cache quotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("quote cache refreshed", slog.String("rqID", rqID), slog.Int("tickers", len(tickers)), slog.Int("refreshed", len(quotes)))

	return nil
}

// ExportAnalysisReport uploads a workbook of the latest analysis of portfolioID and returns its link.
func (s *PortfolioService) ExportAnalysisReport(ctx context.Context, portfolioID string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportAnalysisReport"

	slog.Debug("ExportAnalysisReport start", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))
	defer func() {
		slog.Debug("ExportAnalysisReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("portfolioID", portfolioID))
	}()

	if s.cloudStorage == nil {
		return "", service.ErrNotConfigured
	}

	if portfolioID == "" {
		portfolioID = model.DefaultPortfolioID
	}

	report := model.AnalysisReport{}

	if portfolioID != model.DefaultPortfolioID {
		portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
		if err != nil {
			return "", mapRepoError(err)
		}
		report.Portfolio = &portfolio
	}

	report.Analysis, err = s.repo.GetLatestAnalysis(ctx, portfolioID)
	if err != nil {
		return "", mapRepoError(err)
	}

	report.UsageHistory, err = s.ledger.GetUsageHistory(ctx)
	if err != nil {
		slog.Error("got error from ledger.GetUsageHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	fileBytes, fileExtension, err := s.reportGenerator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("%s%s-%s%s", reportFilePrefix, portfolioID, s.now().UTC().Format("20060102-150405"), fileExtension)

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// CleanupReports deletes uploaded reports past their TTL.
func (s *PortfolioService) CleanupReports(ctx context.Context) error {
	if s.cloudStorage == nil {
		return nil
	}

	_, err := s.cloudStorage.DeleteOldFiles(ctx)
	return err
}
