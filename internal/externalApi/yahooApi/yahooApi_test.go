package yahooApi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/externalApi"
	"github.com/shopspring/decimal"
)

const quoteBody = `{"quoteResponse":{"result":[
	{"symbol":"TCS.NS","shortName":"TATA CONSULTANCY SERV LT","regularMarketPrice":3500,"regularMarketChange":134.6,"regularMarketChangePercent":4,"fiftyDayAverage":3300},
	{"symbol":"NOPRICE.NS","shortName":"No Price"}
],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{"assetProfile":{"sector":"Technology","industry":"Information Technology Services"}}],"error":null}}`

func newTestApi(t *testing.T, handler http.HandlerFunc) *YahooApi {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 2 * time.Second
	cfg.API.YahooApi.Url = srv.URL
	cfg.API.YahooApi.UserAgent = "test"

	api := New(cfg)
	api.now = func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) }
	return api
}

func TestGetQuotes(t *testing.T) {
	var gotSymbols string
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != quoteUrl {
			t.Errorf("path=%s want=%s", r.URL.Path, quoteUrl)
		}
		gotSymbols = r.URL.Query().Get("symbols")
		_, _ = w.Write([]byte(quoteBody))
	})

	quotes, err := api.GetQuotes(context.Background(), []string{"TCS.NS", "NOPRICE.NS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotSymbols != "TCS.NS,NOPRICE.NS" {
		t.Fatalf("symbols=%q", gotSymbols)
	}
	if len(quotes) != 1 {
		t.Fatalf("len(quotes)=%d want=1", len(quotes))
	}

	q := quotes["TCS.NS"]
	if !q.CurrentPrice.Equal(decimal.NewFromInt(3500)) {
		t.Fatalf("price=%s want=3500", q.CurrentPrice)
	}
	if !q.DailyChangePercent.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("changePercent=%s want=4", q.DailyChangePercent)
	}
	if !q.MovingAverage50.Valid || !q.MovingAverage50.Decimal.Equal(decimal.NewFromInt(3300)) {
		t.Fatalf("ma50=%v want=3300", q.MovingAverage50)
	}
	if q.Name != "TATA CONSULTANCY SERV LT" {
		t.Fatalf("name=%q", q.Name)
	}
	if q.Sector != "" {
		t.Fatalf("batch quotes should not carry sector, got %q", q.Sector)
	}
}

func TestGetQuote_WithSector(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == quoteUrl:
			_, _ = w.Write([]byte(quoteBody))
		case strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/TCS.NS"):
			if r.URL.Query().Get("modules") != "assetProfile" {
				t.Errorf("modules=%s", r.URL.Query().Get("modules"))
			}
			_, _ = w.Write([]byte(summaryBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	q, err := api.GetQuote(context.Background(), "TCS.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Sector != "Technology" {
		t.Fatalf("sector=%q want=Technology", q.Sector)
	}
	if !q.LastUpdated.Equal(time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("lastUpdated=%v", q.LastUpdated)
	}
}

func TestGetQuote_SectorFailureIsNotFatal(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == quoteUrl {
			_, _ = w.Write([]byte(quoteBody))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	q, err := api.GetQuote(context.Background(), "TCS.NS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Sector != "" {
		t.Fatalf("sector=%q want empty", q.Sector)
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	})

	_, err := api.GetQuote(context.Background(), "UNKNOWN")
	if !errors.Is(err, externalApi.ErrNotFound) {
		t.Fatalf("err=%v want=%v", err, externalApi.ErrNotFound)
	}
}

func TestGetQuotes_ErrorStatus(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := api.GetQuotes(context.Background(), []string{"TCS.NS"})
	if !errors.Is(err, externalApi.ErrBadResponse) {
		t.Fatalf("err=%v want=%v", err, externalApi.ErrBadResponse)
	}
}
