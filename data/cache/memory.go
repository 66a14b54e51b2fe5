package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/dgraph-io/ristretto"
)

// MemoryCache keeps quotes in process memory. Every entry costs 1, so MaxQuotes bounds the entry count.
type MemoryCache struct {
	cache *ristretto.Cache
	cfg   *config.Config
}

func NewMemoryCache(cfg *config.Config) (*MemoryCache, error) {
	maxQuotes := cfg.Cache.MaxQuotes
	if maxQuotes <= 0 {
		maxQuotes = 10000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxQuotes * 10,
		MaxCost:     maxQuotes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &MemoryCache{cache: c, cfg: cfg}, nil
}

func (m *MemoryCache) SetQuote(ctx context.Context, quote model.Quote) error {
	return m.SetQuotes(ctx, []model.Quote{quote})
}

func (m *MemoryCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	for _, quote := range quotes {
		if !m.cache.SetWithTTL(quoteKey(quote.Ticker), quote, 1, m.cfg.Cache.QuotesExpiration) {
			slog.Warn("quote dropped by memory cache", slog.String("rqID", rqID), slog.String("ticker", quote.Ticker))
		}
	}
	// make writes visible to the next Get
	m.cache.Wait()

	return nil
}

func (m *MemoryCache) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	value, ok := m.cache.Get(quoteKey(ticker))
	if !ok {
		return model.Quote{}, ErrNotFound
	}

	quote, ok := value.(model.Quote)
	if !ok {
		return model.Quote{}, ErrNotFound
	}
	return quote, nil
}

func (m *MemoryCache) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	quotes := make(map[string]model.Quote, len(tickers))
	for _, ticker := range tickers {
		if quote, err := m.GetQuote(ctx, ticker); err == nil {
			quotes[ticker] = quote
		}
	}
	return quotes, nil
}

func (m *MemoryCache) Close() {
	m.cache.Close()
}
