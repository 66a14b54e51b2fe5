package yahooApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/yahooModel"
	"github.com/KotFed0t/invest_advice_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const (
	quoteUrl        = "/v7/finance/quote"
	quoteSummaryUrl = "/v10/finance/quoteSummary/{ticker}"
)

type YahooApi struct {
	client *resty.Client
	now    func() time.Time
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", cfg.API.YahooApi.UserAgent).
		SetHeader("Accept", "application/json")
	return &YahooApi{client: client, now: time.Now}
}

// GetQuote returns a quote enriched with the sector label. A failed sector lookup leaves the sector empty.
func (a *YahooApi) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuote"

	slog.Debug("start YahooApi.GetQuote request", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	quotes, err := a.GetQuotes(ctx, []string{ticker})
	if err != nil {
		return model.Quote{}, err
	}

	quote, ok := quotes[ticker]
	if !ok {
		slog.Warn("ticker not found in yahoo response", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))
		return model.Quote{}, externalApi.ErrNotFound
	}

	sector, err := a.getSector(ctx, ticker)
	if err != nil {
		slog.Warn("can't get sector from yahoo", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
	}
	quote.Sector = sector

	slog.Debug("YahooApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker))

	return quote, nil
}

// GetQuotes fetches prices for several tickers in one request. Tickers unknown to yahoo are absent from the result.
func (a *YahooApi) GetQuotes(ctx context.Context, tickers []string) (map[string]model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.GetQuotes"

	if len(tickers) == 0 {
		return map[string]model.Quote{}, nil
	}

	slog.Debug("start YahooApi.GetQuotes request", slog.String("rqID", rqID), slog.String("op", op), slog.Any("tickers", tickers))

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("symbols", strings.Join(tickers, ",")).
		Get(quoteUrl)
	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
		return nil, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("YahooApi responded with error status", slog.String("rqID", rqID), slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: status %d", externalApi.ErrBadResponse, resp.StatusCode())
	}

	rawQuotes := yahooModel.RawQuoteResponse{}
	err = json.Unmarshal(resp.Body(), &rawQuotes)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawQuoteResponse", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("op", op))
		return nil, err
	}

	if rawQuotes.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("%w: %s", externalApi.ErrBadResponse, rawQuotes.QuoteResponse.Error.Description)
	}

	res := make(map[string]model.Quote, len(rawQuotes.QuoteResponse.Result))
	for _, raw := range rawQuotes.QuoteResponse.Result {
		quote, err := a.convertRawQuote(raw)
		if err != nil {
			slog.Warn("skip unusable quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", raw.Symbol), slog.String("err", err.Error()))
			continue
		}
		res[quote.Ticker] = quote
	}

	slog.Debug("YahooApi.GetQuotes request complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("quotes", len(res)))

	return res, nil
}

func (a *YahooApi) getSector(ctx context.Context, ticker string) (string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("ticker", ticker).
		SetQueryParam("modules", "assetProfile").
		Get(quoteSummaryUrl)
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", externalApi.ErrBadResponse, resp.StatusCode())
	}

	summary := yahooModel.RawQuoteSummaryResponse{}
	if err = json.Unmarshal(resp.Body(), &summary); err != nil {
		return "", err
	}

	if len(summary.QuoteSummary.Result) == 0 || summary.QuoteSummary.Result[0].AssetProfile == nil {
		return "", errors.New("asset profile is missing")
	}

	return summary.QuoteSummary.Result[0].AssetProfile.Sector, nil
}

func (a *YahooApi) convertRawQuote(raw yahooModel.RawQuote) (model.Quote, error) {
	if raw.Symbol == "" {
		return model.Quote{}, errors.New("empty symbol")
	}

	if raw.RegularMarketPrice == nil {
		return model.Quote{}, errors.New("regularMarketPrice is missing")
	}

	quote := model.Quote{
		Ticker:       raw.Symbol,
		Name:         firstNonEmpty(raw.ShortName, raw.DisplayName, raw.LongName, strings.TrimSuffix(raw.Symbol, ".NS")),
		CurrentPrice: decimal.NewFromFloat(*raw.RegularMarketPrice),
		LastUpdated:  a.now().UTC(),
	}

	if raw.RegularMarketChange != nil {
		quote.DailyChange = decimal.NewFromFloat(*raw.RegularMarketChange)
	}

	if raw.RegularMarketChangePercent != nil {
		quote.DailyChangePercent = decimal.NewFromFloat(*raw.RegularMarketChangePercent)
	}

	if raw.FiftyDayAverage != nil && *raw.FiftyDayAverage != 0 {
		quote.MovingAverage50 = decimal.NewNullDecimal(decimal.NewFromFloat(*raw.FiftyDayAverage))
	}

	return quote, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
