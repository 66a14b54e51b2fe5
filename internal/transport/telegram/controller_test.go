package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/data/session"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const chatID int64 = 42

// teleCtx implements the parts of tele.Context the controller uses. Anything else panics.
type teleCtx struct {
	tele.Context
	msg       *tele.Message
	callback  *tele.Callback
	store     map[string]any
	sent      []any
	responded int
}

func newTeleCtx(text, payload string) *teleCtx {
	return &teleCtx{
		msg:   &tele.Message{Text: text, Payload: payload},
		store: make(map[string]any),
	}
}

func (c *teleCtx) Message() *tele.Message { return c.msg }
func (c *teleCtx) Callback() *tele.Callback { return c.callback }
func (c *teleCtx) Chat() *tele.Chat { return &tele.Chat{ID: chatID} }
func (c *teleCtx) Get(key string) any { return c.store[key] }
func (c *teleCtx) Set(key string, val any) { c.store[key] = val }

func (c *teleCtx) Send(what any, _ ...any) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *teleCtx) Respond(_ ...*tele.CallbackResponse) error {
	c.responded++
	return nil
}

func (c *teleCtx) lastSent(t *testing.T) string {
	t.Helper()
	if len(c.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	text, ok := c.sent[len(c.sent)-1].(string)
	if !ok {
		t.Fatalf("sent %T, want string", c.sent[len(c.sent)-1])
	}
	return text
}

type fakeAnalysisService struct {
	calls       int
	gotHoldings []model.Holding
	err         error
}

func (f *fakeAnalysisService) AnalyzePortfolio(_ context.Context, portfolioID string, holdings []model.Holding) (model.AnalysisResult, error) {
	f.calls++
	f.gotHoldings = holdings
	if f.err != nil {
		return model.AnalysisResult{}, f.err
	}
	if portfolioID == "" {
		portfolioID = model.DefaultPortfolioID
	}
	return model.AnalysisResult{
		Analysis: model.PortfolioAnalysis{ID: "a1", PortfolioID: portfolioID, RiskLevel: "Low"},
		Usage:    model.UsageEntry{Date: "2025-01-15", AnalysesPerformed: 1, CreditsUsed: 1, CreditsRemaining: 9},
	}, nil
}

type fakePortfolioService struct {
	gotReportID string
	link        string
	err         error
}

func (f *fakePortfolioService) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	return model.Quote{Ticker: ticker, CurrentPrice: decimal.NewFromInt(100)}, f.err
}

func (f *fakePortfolioService) ExportAnalysisReport(_ context.Context, portfolioID string) (string, error) {
	f.gotReportID = portfolioID
	return f.link, f.err
}

type fakeLedger struct{}

func (fakeLedger) GetUsageSummary(context.Context, int) (model.UsageSummary, error) {
	return model.UsageSummary{Today: model.UsageEntry{Date: "2025-01-15", CreditsRemaining: 10}}, nil
}

type fakeSession struct {
	sessions map[int64]model.Session
	getErr   error
}

func (f *fakeSession) GetSession(_ context.Context, id int64) (model.Session, error) {
	if f.getErr != nil {
		return model.Session{}, f.getErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return model.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeSession) SetSession(_ context.Context, id int64, s model.Session) error {
	f.sessions[id] = s
	return nil
}

type controllerFixture struct {
	ctrl      *Controller
	analysis  *fakeAnalysisService
	portfolio *fakePortfolioService
	sessions  *fakeSession
}

func newControllerFixture() controllerFixture {
	cfg := &config.Config{}
	cfg.Usage.HistoryLimit = 30

	f := controllerFixture{
		analysis:  &fakeAnalysisService{},
		portfolio: &fakePortfolioService{link: "https://drive.example/report"},
		sessions:  &fakeSession{sessions: make(map[int64]model.Session)},
	}
	f.ctrl = NewController(cfg, f.analysis, f.portfolio, fakeLedger{}, f.sessions)
	return f
}

func TestBareAnalyzeWaitsForHoldings(t *testing.T) {
	f := newControllerFixture()

	c := newTeleCtx("/analyze", "")
	if err := f.ctrl.Analyze(c); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := c.lastSent(t); got != askHoldingsMsg {
		t.Fatalf("sent=%q want=%q", got, askHoldingsMsg)
	}
	if state := f.sessions.sessions[chatID].State; state != model.ExpectingHoldings {
		t.Fatalf("state=%v want=%v", state, model.ExpectingHoldings)
	}
	if f.analysis.calls != 0 {
		t.Fatal("bare /analyze must not run an analysis")
	}

	c = newTeleCtx("TCS.NS 10, INFY.NS 5", "")
	if err := f.ctrl.Text(c); err != nil {
		t.Fatalf("Text: %v", err)
	}

	if f.analysis.calls != 1 || len(f.analysis.gotHoldings) != 2 || f.analysis.gotHoldings[1].Ticker != "INFY.NS" {
		t.Fatalf("analysis calls=%d holdings=%+v", f.analysis.calls, f.analysis.gotHoldings)
	}
	if got := c.lastSent(t); !strings.Contains(got, "Portfolio analysis") {
		t.Fatalf("sent=%q want analysis response", got)
	}

	stored := f.sessions.sessions[chatID]
	if stored.State != model.DefaultState || stored.PortfolioID != model.DefaultPortfolioID || len(stored.Holdings) != 2 {
		t.Fatalf("session after analysis=%+v", stored)
	}
}

func TestTextOutsideFlow(t *testing.T) {
	f := newControllerFixture()

	c := newTeleCtx("hello", "")
	if err := f.ctrl.Text(c); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got := c.lastSent(t); got != noFlowMsg {
		t.Fatalf("sent=%q want=%q", got, noFlowMsg)
	}
	if f.analysis.calls != 0 {
		t.Fatal("plain text outside a flow must not run an analysis")
	}
}

func TestTextSessionStorageFailure(t *testing.T) {
	f := newControllerFixture()
	f.sessions.getErr = errors.New("redis down")

	c := newTeleCtx("TCS.NS 1", "")
	if err := f.ctrl.Text(c); err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got := c.lastSent(t); got != internalErrMsg {
		t.Fatalf("sent=%q want=%q", got, internalErrMsg)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		err       error
		wantText  string
		wantCalls int
	}{
		{
			name:      "quota exceeded",
			payload:   "TCS.NS 1",
			err:       &service.QuotaExceededError{Usage: model.UsageEntry{Date: "2025-01-15", AnalysesPerformed: 10, CreditsUsed: 10}},
			wantText:  "10 of 10 credits used today.\nUpgrade to Pro",
			wantCalls: 1,
		},
		{
			name:      "validation",
			payload:   "TCS.NS 0.001",
			err:       &service.ValidationError{Field: "stocks[0].quantity", Reason: "must be at least 0.01"},
			wantText:  "Invalid holdings: stocks[0].quantity: must be at least 0.01",
			wantCalls: 1,
		},
		{
			name:      "internal",
			payload:   "TCS.NS 1",
			err:       service.ErrPersistence,
			wantText:  internalErrMsg,
			wantCalls: 1,
		},
		{
			name:     "unparsable",
			payload:  "TCS.NS",
			wantText: "expected holdings like",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture()
			f.analysis.err = tt.err
			f.sessions.sessions[chatID] = model.Session{State: model.ExpectingHoldings}

			c := newTeleCtx("/analyze "+tt.payload, tt.payload)
			if err := f.ctrl.Analyze(c); err != nil {
				t.Fatalf("Analyze: %v", err)
			}

			if got := c.lastSent(t); !strings.Contains(got, tt.wantText) {
				t.Fatalf("sent=%q want contains %q", got, tt.wantText)
			}
			if f.analysis.calls != tt.wantCalls {
				t.Fatalf("analysis calls=%d want=%d", f.analysis.calls, tt.wantCalls)
			}

			state := f.sessions.sessions[chatID].State
			if errors.Is(tt.err, service.ErrQuotaExceeded) && state != model.DefaultState {
				t.Fatalf("quota error should reset state, got=%v", state)
			}
		})
	}
}

func TestReanalyze(t *testing.T) {
	f := newControllerFixture()

	c := newTeleCtx("/reanalyze", "")
	if err := f.ctrl.Reanalyze(c); err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if got := c.lastSent(t); got != noHoldingsMsg {
		t.Fatalf("sent=%q want=%q", got, noHoldingsMsg)
	}

	last := []model.Holding{{Ticker: "TCS.NS", Quantity: decimal.NewFromInt(3)}}
	f.sessions.sessions[chatID] = model.Session{PortfolioID: model.DefaultPortfolioID, Holdings: last}

	c = newTeleCtx("/reanalyze", "")
	if err := f.ctrl.Reanalyze(c); err != nil {
		t.Fatalf("Reanalyze: %v", err)
	}
	if f.analysis.calls != 1 || len(f.analysis.gotHoldings) != 1 || !f.analysis.gotHoldings[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("analysis calls=%d holdings=%+v", f.analysis.calls, f.analysis.gotHoldings)
	}
}

func TestReportPortfolioSelection(t *testing.T) {
	tests := []struct {
		name      string
		callback  *tele.Callback
		session   *model.Session
		wantID    string
		wantReply int
	}{
		{
			name:      "button data wins",
			callback:  &tele.Callback{Data: "p-button"},
			session:   &model.Session{PortfolioID: "p-session"},
			wantID:    "p-button",
			wantReply: 1,
		},
		{
			name:    "session portfolio",
			session: &model.Session{PortfolioID: "p-session"},
			wantID:  "p-session",
		},
		{
			name:      "empty button data falls back to session",
			callback:  &tele.Callback{},
			session:   &model.Session{PortfolioID: "p-session"},
			wantID:    "p-session",
			wantReply: 1,
		},
		{
			name:   "nothing known",
			wantID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture()
			if tt.session != nil {
				f.sessions.sessions[chatID] = *tt.session
			}

			c := newTeleCtx("/report", "")
			c.callback = tt.callback
			if err := f.ctrl.Report(c); err != nil {
				t.Fatalf("Report: %v", err)
			}

			if f.portfolio.gotReportID != tt.wantID {
				t.Fatalf("portfolioID=%q want=%q", f.portfolio.gotReportID, tt.wantID)
			}
			if c.responded != tt.wantReply {
				t.Fatalf("callback responses=%d want=%d", c.responded, tt.wantReply)
			}
			if got := c.lastSent(t); !strings.Contains(got, f.portfolio.link) {
				t.Fatalf("sent=%q want link", got)
			}
		})
	}
}

func TestReportErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
	}{
		{name: "no analysis", err: service.ErrNotFound, wantText: "No analysis yet"},
		{name: "storage disabled", err: service.ErrNotConfigured, wantText: notConfiguredMsg},
		{name: "upload failed", err: errors.New("quota"), wantText: internalErrMsg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newControllerFixture()
			f.portfolio.err = tt.err

			c := newTeleCtx("/report", "")
			if err := f.ctrl.Report(c); err != nil {
				t.Fatalf("Report: %v", err)
			}
			if got := c.lastSent(t); !strings.Contains(got, tt.wantText) {
				t.Fatalf("sent=%q want contains %q", got, tt.wantText)
			}
		})
	}
}
