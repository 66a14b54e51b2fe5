package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/data/repository"
	"github.com/KotFed0t/invest_advice_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/dbModel"
	"github.com/KotFed0t/invest_advice_bot/utils"
)

func (r *Postgres) CreatePortfolio(ctx context.Context, portfolio model.Portfolio) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO portfolios(portfolio_id, name, holdings, dt_create, dt_update)
		VALUES(:portfolio_id, :name, :holdings, :dt_create, :dt_update)`

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("portfolioID", portfolio.ID))
	defer func() {
		if err != nil {
			slog.Error("CreatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolio, err := dbConverter.ToDbPortfolio(portfolio)
	if err != nil {
		return err
	}

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbPortfolio)
	return mapError(err)
}

func (r *Postgres) GetPortfolio(ctx context.Context, portfolioID string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT portfolio_id, name, holdings, dt_create, dt_update
		FROM portfolios
		WHERE portfolio_id = $1`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Warn("GetPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	var dbPortfolio dbModel.Portfolio
	err = r.txOrDb(ctx).GetContext(ctx, &dbPortfolio, query, portfolioID)
	if err != nil {
		return model.Portfolio{}, mapError(err)
	}

	return dbConverter.ConvertPortfolio(dbPortfolio)
}

func (r *Postgres) ListPortfolios(ctx context.Context) (portfolios []model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT portfolio_id, name, holdings, dt_create, dt_update
		FROM portfolios
		ORDER BY dt_create, portfolio_id`

	slog.Debug("ListPortfolios start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("ListPortfolios failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListPortfolios completed", slog.String("rqID", rqID), slog.Int("count", len(portfolios)))
		}
	}()

	var dbPortfolios []dbModel.Portfolio
	err = r.txOrDb(ctx).SelectContext(ctx, &dbPortfolios, query)
	if err != nil {
		return nil, err
	}

	portfolios = make([]model.Portfolio, 0, len(dbPortfolios))
	for _, dbPortfolio := range dbPortfolios {
		portfolio, err := dbConverter.ConvertPortfolio(dbPortfolio)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, portfolio)
	}

	return portfolios, nil
}

func (r *Postgres) UpdatePortfolio(ctx context.Context, portfolio model.Portfolio) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE portfolios
		SET name = :name, holdings = :holdings, dt_update = :dt_update
		WHERE portfolio_id = :portfolio_id`

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("portfolioID", portfolio.ID))
	defer func() {
		if err != nil {
			slog.Error("UpdatePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	dbPortfolio, err := dbConverter.ToDbPortfolio(portfolio)
	if err != nil {
		return err
	}

	res, err := r.txOrDb(ctx).NamedExecContext(ctx, query, dbPortfolio)
	if err != nil {
		return mapError(err)
	}

	return requireAffected(res)
}

func (r *Postgres) DeletePortfolio(ctx context.Context, portfolioID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM portfolios WHERE portfolio_id = $1`

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("DeletePortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePortfolio completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, portfolioID)
	if err != nil {
		return mapError(err)
	}

	return requireAffected(res)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
