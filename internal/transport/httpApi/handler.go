package httpApi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
)

type AnalysisService interface {
	AnalyzePortfolio(ctx context.Context, portfolioID string, holdings []model.Holding) (model.AnalysisResult, error)
	AnalyzeSavedPortfolio(ctx context.Context, portfolioID string) (model.AnalysisResult, error)
	GetLatestAnalysis(ctx context.Context, portfolioID string) (model.PortfolioAnalysis, error)
}

type PortfolioService interface {
	CreatePortfolio(ctx context.Context, name string, holdings []model.Holding) (model.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID string) (model.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, portfolioID, name string, holdings []model.Holding) (model.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID string) error
	GetQuotes(ctx context.Context, tickers []string) ([]model.Quote, error)
	GetMarketOverview(ctx context.Context) ([]model.MarketIndex, error)
	ExportAnalysisReport(ctx context.Context, portfolioID string) (string, error)
}

type UsageLedger interface {
	GetUsageSummary(ctx context.Context, historyLimit int) (model.UsageSummary, error)
}

type Handler struct {
	analysisService  AnalysisService
	portfolioService PortfolioService
	ledger           UsageLedger
	historyLimit     int
	now              func() time.Time
}

func NewHandler(cfg *config.Config, analysisService AnalysisService, portfolioService PortfolioService, ledger UsageLedger) *Handler {
	return &Handler{
		analysisService:  analysisService,
		portfolioService: portfolioService,
		ledger:           ledger,
		historyLimit:     cfg.Usage.HistoryLimit,
		now:              time.Now,
	}
}

type stockDataRequest struct {
	Tickers []string `json:"tickers"`
}

type analyzeRequest struct {
	PortfolioID string          `json:"portfolioId"`
	Stocks      []model.Holding `json:"stocks"`
}

type portfolioRequest struct {
	Name   string          `json:"name"`
	Stocks []model.Holding `json:"stocks"`
}

type reportResponse struct {
	DownloadLink string `json:"downloadLink"`
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/stock-data", h.stockData)
	api.POST("/analyze-portfolio", h.analyzePortfolio)
	api.GET("/usage", h.usage)
	api.GET("/market-overview", h.marketOverview)

	portfolios := api.Group("/portfolios")
	portfolios.GET("", h.listPortfolios)
	portfolios.POST("", h.createPortfolio)
	portfolios.GET("/:id", h.getPortfolio)
	portfolios.PUT("/:id", h.updatePortfolio)
	portfolios.DELETE("/:id", h.deletePortfolio)
	portfolios.POST("/:id/analyze", h.analyzeSavedPortfolio)
	portfolios.GET("/:id/analysis", h.latestAnalysis)
	portfolios.POST("/:id/report", h.exportReport)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339)})
}

func (h *Handler) stockData(c *gin.Context) {
	var req stockDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "tickers must be an array")
		return
	}

	quotes, err := h.portfolioService.GetQuotes(c.Request.Context(), req.Tickers)
	if err != nil {
		writeError(c, "stockData", err)
		return
	}

	c.JSON(http.StatusOK, quotes)
}

func (h *Handler) analyzePortfolio(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.analysisService.AnalyzePortfolio(c.Request.Context(), req.PortfolioID, req.Stocks)
	if err != nil {
		writeError(c, "analyzePortfolio", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) usage(c *gin.Context) {
	summary, err := h.ledger.GetUsageSummary(c.Request.Context(), h.historyLimit)
	if err != nil {
		writeError(c, "usage", err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) marketOverview(c *gin.Context) {
	indices, err := h.portfolioService.GetMarketOverview(c.Request.Context())
	if err != nil {
		writeError(c, "marketOverview", err)
		return
	}

	c.JSON(http.StatusOK, indices)
}

func (h *Handler) listPortfolios(c *gin.Context) {
	portfolios, err := h.portfolioService.ListPortfolios(c.Request.Context())
	if err != nil {
		writeError(c, "listPortfolios", err)
		return
	}

	c.JSON(http.StatusOK, portfolios)
}

func (h *Handler) createPortfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	portfolio, err := h.portfolioService.CreatePortfolio(c.Request.Context(), req.Name, req.Stocks)
	if err != nil {
		writeError(c, "createPortfolio", err)
		return
	}

	c.JSON(http.StatusCreated, portfolio)
}

func (h *Handler) getPortfolio(c *gin.Context) {
	portfolio, err := h.portfolioService.GetPortfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "getPortfolio", err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) updatePortfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	portfolio, err := h.portfolioService.UpdatePortfolio(c.Request.Context(), c.Param("id"), req.Name, req.Stocks)
	if err != nil {
		writeError(c, "updatePortfolio", err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

func (h *Handler) deletePortfolio(c *gin.Context) {
	if err := h.portfolioService.DeletePortfolio(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, "deletePortfolio", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) analyzeSavedPortfolio(c *gin.Context) {
	result, err := h.analysisService.AnalyzeSavedPortfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "analyzeSavedPortfolio", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) latestAnalysis(c *gin.Context) {
	analysis, err := h.analysisService.GetLatestAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "latestAnalysis", err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *Handler) exportReport(c *gin.Context) {
	link, err := h.portfolioService.ExportAnalysisReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "exportReport", err)
		return
	}

	c.JSON(http.StatusOK, reportResponse{DownloadLink: link})
}
