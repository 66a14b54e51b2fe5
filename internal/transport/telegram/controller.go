package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/data/session"
	"github.com/KotFed0t/invest_advice_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/service"
	"github.com/KotFed0t/invest_advice_bot/utils"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg   = "Something went wrong, please try again later."
	startMsg         = "Hello! I analyze Indian stock portfolios.\n\n/analyze TCS.NS 10, INFY.NS 5 - get advice\n/reanalyze - analyze your last holdings again\n/quote TCS.NS - latest quote\n/usage - today's credits\n/report - Excel report of the last analysis"
	askHoldingsMsg   = "Send your holdings as TICKER QUANTITY pairs, for example:\nTCS.NS 10, INFY.NS 5"
	notConfiguredMsg = "Reports are not available right now."
	noFlowMsg        = "Send /analyze to get portfolio advice or /start for help."
	noHoldingsMsg    = "No holdings to analyze yet. Send /analyze first."
)

type AnalysisService interface {
	AnalyzePortfolio(ctx context.Context, portfolioID string, holdings []model.Holding) (model.AnalysisResult, error)
}

type PortfolioService interface {
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)
	ExportAnalysisReport(ctx context.Context, portfolioID string) (downloadLink string, err error)
}

type UsageLedger interface {
	GetUsageSummary(ctx context.Context, historyLimit int) (model.UsageSummary, error)
}

type Session interface {
	GetSession(ctx context.Context, chatID int64) (model.Session, error)
	SetSession(ctx context.Context, chatID int64, session model.Session) error
}

type Controller struct {
	analysisService  AnalysisService
	portfolioService PortfolioService
	ledger           UsageLedger
	session          Session
	historyLimit     int
}

func NewController(cfg *config.Config, analysisService AnalysisService, portfolioService PortfolioService, ledger UsageLedger, session Session) *Controller {
	return &Controller{
		analysisService:  analysisService,
		portfolioService: portfolioService,
		ledger:           ledger,
		session:          session,
		historyLimit:     cfg.Usage.HistoryLimit,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = ctrl.setState(ctx, c, model.DefaultState)
	return c.Send(startMsg)
}

// Analyze runs an analysis of the holdings passed with the command, or asks for them.
func (ctrl *Controller) Analyze(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	if strings.TrimSpace(c.Message().Payload) == "" {
		if err := ctrl.setState(ctx, c, model.ExpectingHoldings); err != nil {
			return c.Send(internalErrMsg)
		}
		return c.Send(askHoldingsMsg)
	}

	return ctrl.analyze(ctx, c, c.Message().Payload)
}

// Text routes a plain message by the chat state.
func (ctrl *Controller) Text(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.session.GetSession(ctx, c.Chat().ID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	c.Set("session", chatSession)

	switch chatSession.State {
	case model.ExpectingHoldings:
		return ctrl.ProcessHoldings(c)
	default:
		slog.Debug("text outside of a flow", slog.String("rqID", rqID), slog.Any("state", chatSession.State))
		return c.Send(noFlowMsg)
	}
}

// ProcessHoldings handles the holdings message sent after a bare /analyze.
func (ctrl *Controller) ProcessHoldings(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	return ctrl.analyze(ctx, c, c.Message().Text)
}

// Reanalyze runs a fresh analysis of the holdings from the chat's last successful analysis.
func (ctrl *Controller) Reanalyze(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	holdings := ctrl.getSessionFromTeleCtxOrStorage(ctx, c).Holdings
	if len(holdings) == 0 {
		return c.Send(noHoldingsMsg)
	}

	return ctrl.analyzeHoldings(ctx, c, holdings)
}

func (ctrl *Controller) analyze(ctx context.Context, c tele.Context, text string) error {
	holdings, err := telebotConverter.ParseHoldings(text)
	if err != nil {
		return c.Send(err.Error())
	}

	return ctrl.analyzeHoldings(ctx, c, holdings)
}

func (ctrl *Controller) analyzeHoldings(ctx context.Context, c tele.Context, holdings []model.Holding) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	result, err := ctrl.analysisService.AnalyzePortfolio(ctx, "", holdings)
	if err != nil {
		var quotaErr *service.QuotaExceededError
		var validationErr *service.ValidationError
		switch {
		case errors.As(err, &quotaErr):
			_ = ctrl.setState(ctx, c, model.DefaultState)
			return c.Send(telebotConverter.QuotaExceededResponse(quotaErr.Usage))
		case errors.As(err, &validationErr):
			return c.Send("Invalid holdings: " + validationErr.Error())
		default:
			slog.Error("got error from analysisService.AnalyzePortfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}
	}

	chatSession := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	chatSession.State = model.DefaultState
	chatSession.PortfolioID = result.Analysis.PortfolioID
	chatSession.Holdings = holdings
	if err := ctrl.session.SetSession(ctx, c.Chat().ID, chatSession); err != nil {
		slog.Warn("can't save session", slog.String("rqID", rqID), slog.String("err", err.Error()))
	}

	return c.Send(telebotConverter.AnalysisResponse(result))
}

func (ctrl *Controller) Usage(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	summary, err := ctrl.ledger.GetUsageSummary(ctx, ctrl.historyLimit)
	if err != nil {
		slog.Error("got error from ledger.GetUsageSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	if c.Callback() != nil {
		_ = c.Respond()
	}

	return c.Send(telebotConverter.UsageResponse(summary))
}

func (ctrl *Controller) Quote(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	ticker := strings.TrimSpace(c.Message().Payload)
	if ticker == "" {
		return c.Send("Usage: /quote TCS.NS")
	}

	quote, err := ctrl.portfolioService.GetQuote(ctx, ticker)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrQuoteUnavailable) {
			return c.Send("Couldn't find a quote for " + strings.ToUpper(ticker))
		}
		slog.Error("got error from portfolioService.GetQuote", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.QuoteResponse(quote))
}

// Report exports the latest analysis. The portfolio comes from the button data,
// then from the session, then falls back to the ad-hoc portfolio.
func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	portfolioID := ""
	if cb := c.Callback(); cb != nil {
		portfolioID = cb.Data
		_ = c.Respond(&tele.CallbackResponse{Text: "Preparing report..."})
	}
	if portfolioID == "" {
		portfolioID = ctrl.getSessionFromTeleCtxOrStorage(ctx, c).PortfolioID
	}

	link, err := ctrl.portfolioService.ExportAnalysisReport(ctx, portfolioID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return c.Send("No analysis yet. Run /analyze first.")
		case errors.Is(err, service.ErrNotConfigured):
			return c.Send(notConfiguredMsg)
		default:
			slog.Error("got error from portfolioService.ExportAnalysisReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
			return c.Send(internalErrMsg)
		}
	}

	return c.Send("📄 Your report: " + link)
}

func (ctrl *Controller) setState(ctx context.Context, c tele.Context, state model.State) error {
	chatSession := ctrl.getSessionFromTeleCtxOrStorage(ctx, c)
	chatSession.State = state

	err := ctrl.session.SetSession(ctx, c.Chat().ID, chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
	}
	return err
}

// getSessionFromTeleCtxOrStorage returns an empty session when none is stored or it can't be read.
func (ctrl *Controller) getSessionFromTeleCtxOrStorage(ctx context.Context, c tele.Context) model.Session {
	chatSession, ok := c.Get("session").(model.Session)
	if ok {
		return chatSession
	}

	chatSession, err := ctrl.session.GetSession(ctx, c.Chat().ID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("err", err.Error()))
		}
		return model.Session{}
	}
	return chatSession
}
