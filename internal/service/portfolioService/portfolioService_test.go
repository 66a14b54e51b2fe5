package portfolioService

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/invest_advice_bot/data/cache"
	"github.com/KotFed0t/invest_advice_bot/data/repository/memory"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/shopspring/decimal"
)

type fakeQuoteSource struct {
	quotes      map[string]model.Quote
	err         error
	singleCalls int
	batchCalls  [][]string
}

func (f *fakeQuoteSource) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	f.singleCalls++
	if f.err != nil {
		return model.Quote{}, f.err
	}
	quote, ok := f.quotes[ticker]
	if !ok {
		return model.Quote{}, externalApi.ErrNotFound
	}
	return quote, nil
}

func (f *fakeQuoteSource) GetQuotes(_ context.Context, tickers []string) (map[string]model.Quote, error) {
	f.batchCalls = append(f.batchCalls, tickers)
	if f.err != nil {
		return nil, f.err
	}
	res := make(map[string]model.Quote)
	for _, ticker := range tickers {
		if quote, ok := f.quotes[ticker]; ok {
			res[ticker] = quote
		}
	}
	return res, nil
}

type fakeCache struct {
	quotes map[string]model.Quote
}

func newFakeCache() *fakeCache {
	return &fakeCache{quotes: make(map[string]model.Quote)}
}

func (f *fakeCache) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	quote, ok := f.quotes[ticker]
	if !ok {
		return model.Quote{}, cache.ErrNotFound
	}
	return quote, nil
}

func (f *fakeCache) GetQuotes(_ context.Context, tickers []string) (map[string]model.Quote, error) {
	res := make(map[string]model.Quote)
	for _, ticker := range tickers {
		if quote, ok := f.quotes[ticker]; ok {
			res[ticker] = quote
		}
	}
	return res, nil
}

func (f *fakeCache) SetQuote(_ context.Context, quote model.Quote) error {
	f.quotes[quote.Ticker] = quote
	return nil
}

func (f *fakeCache) SetQuotes(_ context.Context, quotes []model.Quote) error {
	for _, quote := range quotes {
		f.quotes[quote.Ticker] = quote
	}
	return nil
}

type fakeLedger struct {
	history []model.UsageEntry
}

func (f fakeLedger) GetUsageHistory(context.Context) ([]model.UsageEntry, error) {
	return f.history, nil
}

type fakeGenerator struct {
	report model.AnalysisReport
}

func (f *fakeGenerator) Generate(_ context.Context, report model.AnalysisReport) ([]byte, string, error) {
	f.report = report
	return []byte("xlsx"), ".xlsx", nil
}

type fakeStorage struct {
	filename string
	content  string
	deleted  int
}

func (f *fakeStorage) UploadFile(_ context.Context, reader io.Reader, filename string) (string, error) {
	raw, _ := io.ReadAll(reader)
	f.filename = filename
	f.content = string(raw)
	return "https://drive.example/" + filename, nil
}

func (f *fakeStorage) DeleteOldFiles(context.Context) (int, error) {
	f.deleted++
	return 1, nil
}

func price(ticker, p string) model.Quote {
	return model.Quote{Ticker: ticker, CurrentPrice: decimal.RequireFromString(p), DailyChangePercent: decimal.RequireFromString("1.5")}
}

type fixture struct {
	svc       *PortfolioService
	repo      *memory.Memory
	source    *fakeQuoteSource
	cache     *fakeCache
	generator *fakeGenerator
	storage   *fakeStorage
}

func newFixture(quotes ...model.Quote) fixture {
	repo := memory.New()
	source := &fakeQuoteSource{quotes: make(map[string]model.Quote)}
	for _, q := range quotes {
		source.quotes[q.Ticker] = q
	}
	c := newFakeCache()
	generator := &fakeGenerator{}
	storage := &fakeStorage{}

	svc := New(repo, c, source, fakeLedger{history: []model.UsageEntry{{Date: "2024-03-15", AnalysesPerformed: 1}}}, generator, storage)
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC) }

	return fixture{svc: svc, repo: repo, source: source, cache: c, generator: generator, storage: storage}
}

func holding(ticker, qty string) model.Holding {
	return model.Holding{Ticker: ticker, Quantity: decimal.RequireFromString(qty)}
}

func TestPortfolioLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.CreatePortfolio(ctx, "  ", []model.Holding{holding("tcs.ns", "10"), holding("ITC.NS", "0")})
	if err != nil {
		t.Fatalf("CreatePortfolio: %v", err)
	}
	if created.Name != model.DefaultPortfolioName {
		t.Fatalf("name got=%q want=%q", created.Name, model.DefaultPortfolioName)
	}
	if len(created.Holdings) != 1 || created.Holdings[0].Ticker != "TCS.NS" {
		t.Fatalf("holdings got=%+v want only TCS.NS", created.Holdings)
	}

	updated, err := f.svc.UpdatePortfolio(ctx, created.ID, "Core", []model.Holding{holding("TCS.NS", "-1"), holding("INFY.NS", "4")})
	if err != nil {
		t.Fatalf("UpdatePortfolio: %v", err)
	}
	if updated.Name != "Core" || len(updated.Holdings) != 1 || updated.Holdings[0].Ticker != "INFY.NS" {
		t.Fatalf("updated got=%+v", updated)
	}

	got, err := f.svc.GetPortfolio(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPortfolio: %v", err)
	}
	if got.Name != "Core" {
		t.Fatalf("stored name got=%q want=Core", got.Name)
	}

	list, _ := f.svc.ListPortfolios(ctx)
	if len(list) != 1 {
		t.Fatalf("list got=%d want=1", len(list))
	}

	if err := f.svc.DeletePortfolio(ctx, created.ID); err != nil {
		t.Fatalf("DeletePortfolio: %v", err)
	}
	if _, err := f.svc.GetPortfolio(ctx, created.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotFound)
	}
	if _, err := f.svc.UpdatePortfolio(ctx, created.ID, "", nil); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotFound)
	}
	if err := f.svc.DeletePortfolio(ctx, created.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotFound)
	}
}

func TestCreatePortfolioRejectsBlankTicker(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreatePortfolio(context.Background(), "x", []model.Holding{holding(" ", "1")})
	if !errors.Is(err, service.ErrValidation) {
		t.Fatalf("got=%v want=%v", err, service.ErrValidation)
	}
}

func TestGetQuoteCacheFirst(t *testing.T) {
	f := newFixture(price("TCS.NS", "3500"))
	ctx := context.Background()

	quote, err := f.svc.GetQuote(ctx, "tcs.ns")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if !quote.CurrentPrice.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("price got=%s want=3500", quote.CurrentPrice)
	}
	if _, ok := f.cache.quotes["TCS.NS"]; !ok {
		t.Fatalf("quote was not cached")
	}

	if _, err := f.svc.GetQuote(ctx, "TCS.NS"); err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if f.source.singleCalls != 1 {
		t.Fatalf("quote source calls got=%d want=1", f.source.singleCalls)
	}
}

func TestGetQuoteErrors(t *testing.T) {
	f := newFixture(price("ZERO.NS", "0"))
	ctx := context.Background()

	if _, err := f.svc.GetQuote(ctx, "MISSING.NS"); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotFound)
	}
	if _, err := f.svc.GetQuote(ctx, "ZERO.NS"); !errors.Is(err, service.ErrQuoteUnavailable) {
		t.Fatalf("got=%v want=%v", err, service.ErrQuoteUnavailable)
	}
	if _, err := f.svc.GetQuote(ctx, ""); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("got=%v want=%v", err, service.ErrValidation)
	}

	f.source.err = errors.New("timeout")
	if _, err := f.svc.GetQuote(ctx, "TCS.NS"); !errors.Is(err, service.ErrQuoteUnavailable) {
		t.Fatalf("got=%v want=%v", err, service.ErrQuoteUnavailable)
	}
}

func TestGetQuotes(t *testing.T) {
	f := newFixture(price("TCS.NS", "3500"), price("INFY.NS", "1500"))

	quotes, err := f.svc.GetQuotes(context.Background(), []string{"infy.ns", "MISSING", "TCS.NS", " "})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}
	if len(quotes) != 2 || quotes[0].Ticker != "INFY.NS" || quotes[1].Ticker != "TCS.NS" {
		t.Fatalf("quotes got=%+v", quotes)
	}
	if len(f.cache.quotes) != 2 {
		t.Fatalf("cached got=%d want=2", len(f.cache.quotes))
	}

	if _, err := f.svc.GetQuotes(context.Background(), nil); !errors.Is(err, service.ErrValidation) {
		t.Fatalf("got=%v want=%v", err, service.ErrValidation)
	}
}

func TestGetMarketOverview(t *testing.T) {
	f := newFixture(price("^NSEI", "22000"), price("^NSEBANK", "47000"))

	overview, err := f.svc.GetMarketOverview(context.Background())
	if err != nil {
		t.Fatalf("GetMarketOverview: %v", err)
	}
	if len(overview) != 2 {
		t.Fatalf("overview got=%+v want 2 indices", overview)
	}
	if overview[0].Name != "NIFTY 50" || overview[1].Name != "Bank NIFTY" {
		t.Fatalf("overview order got=%+v", overview)
	}
	if !overview[0].Change.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("change got=%s want=1.5", overview[0].Change)
	}
}

func TestRefreshQuoteCache(t *testing.T) {
	f := newFixture(price("TCS.NS", "3600"), price("INFY.NS", "1500"))
	ctx := context.Background()

	_, _ = f.svc.CreatePortfolio(ctx, "a", []model.Holding{holding("TCS.NS", "1"), holding("INFY.NS", "1")})
	_, _ = f.svc.CreatePortfolio(ctx, "b", []model.Holding{holding("TCS.NS", "2"), holding("GONE.NS", "1")})

	f.cache.quotes["TCS.NS"] = model.Quote{Ticker: "TCS.NS", CurrentPrice: decimal.NewFromInt(3500), Sector: "Technology"}

	if err := f.svc.RefreshQuoteCache(ctx); err != nil {
		t.Fatalf("RefreshQuoteCache: %v", err)
	}

	if len(f.source.batchCalls) != 1 || len(f.source.batchCalls[0]) != 3 {
		t.Fatalf("batch calls got=%v want one call with 3 unique tickers", f.source.batchCalls)
	}

	tcs := f.cache.quotes["TCS.NS"]
	if !tcs.CurrentPrice.Equal(decimal.NewFromInt(3600)) || tcs.Sector != "Technology" {
		t.Fatalf("TCS.NS got=%+v want refreshed price with cached sector", tcs)
	}
	if _, ok := f.cache.quotes["INFY.NS"]; !ok {
		t.Fatalf("INFY.NS not cached")
	}
}

func TestRefreshQuoteCacheNoPortfolios(t *testing.T) {
	f := newFixture()
	if err := f.svc.RefreshQuoteCache(context.Background()); err != nil {
		t.Fatalf("RefreshQuoteCache: %v", err)
	}
	if len(f.source.batchCalls) != 0 {
		t.Fatalf("quote source called without tickers")
	}
}

func TestExportAnalysisReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	portfolio, _ := f.svc.CreatePortfolio(ctx, "Core", []model.Holding{holding("TCS.NS", "1")})

	if _, err := f.svc.ExportAnalysisReport(ctx, portfolio.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotFound)
	}

	_ = f.repo.SaveAnalysis(ctx, model.PortfolioAnalysis{ID: "a-1", PortfolioID: portfolio.ID, CreatedAt: time.Now()})

	link, err := f.svc.ExportAnalysisReport(ctx, portfolio.ID)
	if err != nil {
		t.Fatalf("ExportAnalysisReport: %v", err)
	}

	wantName := reportFilePrefix + portfolio.ID + "-20240315-123000.xlsx"
	if f.storage.filename != wantName || !strings.HasSuffix(link, wantName) {
		t.Fatalf("filename got=%s link=%s want=%s", f.storage.filename, link, wantName)
	}
	if f.storage.content != "xlsx" {
		t.Fatalf("uploaded content got=%q", f.storage.content)
	}
	if f.generator.report.Portfolio == nil || f.generator.report.Portfolio.Name != "Core" || len(f.generator.report.UsageHistory) != 1 {
		t.Fatalf("report got=%+v", f.generator.report)
	}
}

func TestExportDefaultAnalysisReport(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_ = f.repo.SaveAnalysis(ctx, model.PortfolioAnalysis{ID: "a-1", PortfolioID: model.DefaultPortfolioID})

	if _, err := f.svc.ExportAnalysisReport(ctx, ""); err != nil {
		t.Fatalf("ExportAnalysisReport: %v", err)
	}
	if f.generator.report.Portfolio != nil {
		t.Fatalf("ad-hoc report must not carry a portfolio")
	}
}

func TestExportWithoutCloudStorage(t *testing.T) {
	svc := New(memory.New(), newFakeCache(), &fakeQuoteSource{}, fakeLedger{}, &fakeGenerator{}, nil)

	if _, err := svc.ExportAnalysisReport(context.Background(), ""); !errors.Is(err, service.ErrNotConfigured) {
		t.Fatalf("got=%v want=%v", err, service.ErrNotConfigured)
	}
	if err := svc.CleanupReports(context.Background()); err != nil {
		t.Fatalf("CleanupReports: %v", err)
	}
}

func TestCleanupReports(t *testing.T) {
	f := newFixture()
	if err := f.svc.CleanupReports(context.Background()); err != nil {
		t.Fatalf("CleanupReports: %v", err)
	}
	if f.storage.deleted != 1 {
		t.Fatalf("DeleteOldFiles calls got=%d want=1", f.storage.deleted)
	}
}
