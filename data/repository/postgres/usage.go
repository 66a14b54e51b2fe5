package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/internal/model/dbModel"
	"github.com/KotFed0t/invest_advice_bot/utils"
)

const usageColumns = `usage_date::text AS usage_date, analyses_performed, credits_used, credits_remaining`

func (r *Postgres) GetUsage(ctx context.Context, date string) (model.UsageEntry, error) {
	return r.getUsage(ctx, date, `SELECT `+usageColumns+` FROM usage_ledger WHERE usage_date = $1`)
}

// GetUsageForUpdate locks the day row until the surrounding transaction ends.
func (r *Postgres) GetUsageForUpdate(ctx context.Context, date string) (model.UsageEntry, error) {
	return r.getUsage(ctx, date, `SELECT `+usageColumns+` FROM usage_ledger WHERE usage_date = $1 FOR UPDATE`)
}

func (r *Postgres) getUsage(ctx context.Context, date, query string) (entry model.UsageEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("getUsage start", slog.String("rqID", rqID), slog.String("date", date), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Debug("getUsage failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getUsage completed", slog.String("rqID", rqID))
		}
	}()

	var dbUsage dbModel.Usage
	err = r.txOrDb(ctx).GetContext(ctx, &dbUsage, query, date)
	if err != nil {
		return model.UsageEntry{}, mapError(err)
	}

	return dbConverter.ConvertUsage(dbUsage), nil
}

func (r *Postgres) CreateUsageIfNotExists(ctx context.Context, entry model.UsageEntry) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO usage_ledger(usage_date, analyses_performed, credits_used, credits_remaining)
		VALUES(:usage_date, :analyses_performed, :credits_used, :credits_remaining)
		ON CONFLICT (usage_date) DO NOTHING`

	slog.Debug("CreateUsageIfNotExists start", slog.String("rqID", rqID), slog.String("date", entry.Date))
	defer func() {
		if err != nil {
			slog.Error("CreateUsageIfNotExists failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateUsageIfNotExists completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbUsage(entry))
	return err
}

func (r *Postgres) SaveUsage(ctx context.Context, entry model.UsageEntry) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE usage_ledger
		SET analyses_performed = :analyses_performed, credits_used = :credits_used, credits_remaining = :credits_remaining
		WHERE usage_date = :usage_date`

	slog.Debug("SaveUsage start", slog.String("rqID", rqID), slog.Any("usage", entry))
	defer func() {
		if err != nil {
			slog.Error("SaveUsage failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("SaveUsage completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.ToDbUsage(entry))
	if err != nil {
		return err
	}

	return requireAffected(res)
}

func (r *Postgres) GetUsageHistory(ctx context.Context) (history []model.UsageEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `SELECT ` + usageColumns + ` FROM usage_ledger ORDER BY usage_date DESC`

	slog.Debug("GetUsageHistory start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("GetUsageHistory failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUsageHistory completed", slog.String("rqID", rqID), slog.Int("count", len(history)))
		}
	}()

	var dbHistory []dbModel.Usage
	err = r.txOrDb(ctx).SelectContext(ctx, &dbHistory, query)
	if err != nil {
		return nil, err
	}

	history = make([]model.UsageEntry, 0, len(dbHistory))
	for _, dbUsage := range dbHistory {
		history = append(history, dbConverter.ConvertUsage(dbUsage))
	}

	return history, nil
}
