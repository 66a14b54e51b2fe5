package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/redis/go-redis/v9"
)

const quoteKeyPrefix = "quote:"

func quoteKey(ticker string) string {
	return quoteKeyPrefix + ticker
}

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetQuote(ctx context.Context, quote model.Quote) error {
	return r.SetQuotes(ctx, []model.Quote{quote})
}

func (r *RedisCache) SetQuotes(ctx context.Context, quotes []model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetQuotes", slog.String("rqID", rqID), slog.Int("count", len(quotes)))

	if len(quotes) == 0 {
		return nil
	}

	pipe := r.redis.Pipeline()
	for _, quote := range quotes {
		quoteJson, err := json.Marshal(quote)
		if err != nil {
			slog.Error(
				"can't marshall quote in SetQuotes",
				slog.String("rqID", rqID),
				slog.String("err", err.Error()),
				slog.Any("quote", quote),
			)
			return fmt.Errorf("marshall quote %s: %w", quote.Ticker, err)
		}

		pipe.Set(ctx, quoteKey(quote.Ticker), quoteJson, r.cfg.Cache.QuotesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetQuotes completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("ticker", ticker))

	res, err := r.redis.Get(ctx, quoteKey(ticker)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Quote{}, ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", quoteKey(ticker)))
		return model.Quote{}, err
	}

	quote := model.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Quote{}, fmt.Errorf("unmarshall quote %s: %w", ticker, err)
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID))

	return quote, nil
}

// GetQuotes returns the cached subset of tickers. Missing tickers are absent from the map.
func (r *RedisCache) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuotes start", slog.String("rqID", rqID), slog.Int("count", len(tickers)))

	quotes := make(map[string]model.Quote, len(tickers))
	if len(tickers) == 0 {
		return quotes, nil
	}

	keys := make([]string, 0, len(tickers))
	for _, ticker := range tickers {
		keys = append(keys, quoteKey(ticker))
	}

	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.MGet", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return nil, err
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		quote := model.Quote{}
		if err := json.Unmarshal([]byte(raw), &quote); err != nil {
			slog.Warn("can't unmarshall quote in GetQuotes", slog.String("rqID", rqID), slog.String("ticker", tickers[i]), slog.String("err", err.Error()))
			continue
		}
		quotes[tickers[i]] = quote
	}

	slog.Debug("GetQuotes finished", slog.String("rqID", rqID), slog.Int("found", len(quotes)))

	return quotes, nil
}
