package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/dbModel"
	"github.com/KotFed0t/invest_advice_bot/utils"
)

func (r *Postgres) SaveAnalysis(ctx context.Context, analysis model.PortfolioAnalysis) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolio_analyses(analysis_id, portfolio_id, advice, total_value, risk_level, diversification_score, dt_create)
		VALUES(:analysis_id, :portfolio_id, :advice, :total_value, :risk_level, :diversification_score, :dt_create)`

	slog.Debug("SaveAnalysis start", slog.String("rqID", rqID), slog.String("analysisID", analysis.ID), slog.String("portfolioID", analysis.PortfolioID))
	defer func() {
		if err != nil {
			slog.Error("SaveAnalysis failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveAnalysis completed", slog.String("rqID", rqID))
		}
	}()

	dbAnalysis, err := dbConverter.ToDbAnalysis(analysis)
	if err != nil {
		return err
	}

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbAnalysis)
	return mapError(err)
}

func (r *Postgres) GetLatestAnalysis(ctx context.Context, portfolioID string) (analysis model.PortfolioAnalysis, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT analysis_id, portfolio_id, advice, total_value, risk_level, diversification_score, dt_create
		FROM portfolio_analyses
		WHERE portfolio_id = $1
		ORDER BY dt_create DESC
		LIMIT 1`

	slog.Debug("GetLatestAnalysis start", slog.String("rqID", rqID), slog.String("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Warn("GetLatestAnalysis failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestAnalysis completed", slog.String("rqID", rqID))
		}
	}()

	var dbAnalysis dbModel.Analysis
	err = r.txOrDb(ctx).GetContext(ctx, &dbAnalysis, query, portfolioID)
	if err != nil {
		return model.PortfolioAnalysis{}, mapError(err)
	}

	return dbConverter.ConvertAnalysis(dbAnalysis)
}
