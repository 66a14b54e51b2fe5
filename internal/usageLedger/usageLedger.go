package usageLedger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/data/repository"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
	"github.com/KotFed0t/invest_advice_bot/utils"
)

const dateLayout = "2006-01-02"

// ErrCreditsExhausted is returned by ConsumeCredits when the day has no credits left.
var ErrCreditsExhausted = errors.New("error daily credits exhausted")

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
	GetUsage(ctx context.Context, date string) (model.UsageEntry, error)
	GetUsageForUpdate(ctx context.Context, date string) (model.UsageEntry, error)
	CreateUsageIfNotExists(ctx context.Context, entry model.UsageEntry) error
	SaveUsage(ctx context.Context, entry model.UsageEntry) error
	GetUsageHistory(ctx context.Context) ([]model.UsageEntry, error)
}

// Ledger keeps one usage entry per calendar day. Increments are serialized in-process by mu
// and across processes by the row lock taken inside the repository transaction.
type Ledger struct {
	repo         Repository
	dailyCredits int
	location     *time.Location
	now          func() time.Time
	mu           sync.Mutex
}

func New(cfg *config.Config, repo Repository) *Ledger {
	location, err := time.LoadLocation(cfg.Usage.Timezone)
	if err != nil {
		slog.Error("can't load usage timezone, falling back to UTC", slog.String("timezone", cfg.Usage.Timezone), slog.String("err", err.Error()))
		location = time.UTC
	}

	return &Ledger{
		repo:         repo,
		dailyCredits: cfg.Usage.DailyCredits,
		location:     location,
		now:          time.Now,
	}
}

func (l *Ledger) today() string {
	return l.now().In(l.location).Format(dateLayout)
}

func (l *Ledger) freshEntry(date string) model.UsageEntry {
	return model.UsageEntry{
		Date:              date,
		AnalysesPerformed: 0,
		CreditsUsed:       0,
		CreditsRemaining:  l.dailyCredits,
	}
}

// GetTodayUsage returns today's entry, creating it on first access.
func (l *Ledger) GetTodayUsage(ctx context.Context) (model.UsageEntry, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Ledger.GetTodayUsage"
	date := l.today()

	slog.Debug("GetTodayUsage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date))

	entry, err := l.repo.GetUsage(ctx, date)
	if err == nil {
		return entry, nil
	}

	if !errors.Is(err, repository.ErrNotFound) {
		slog.Error("got error from repo.GetUsage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UsageEntry{}, err
	}

	err = l.repo.CreateUsageIfNotExists(ctx, l.freshEntry(date))
	if err != nil {
		slog.Error("got error from repo.CreateUsageIfNotExists", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UsageEntry{}, err
	}

	return l.repo.GetUsage(ctx, date)
}

// IncrementUsage records one analysis that consumed creditsUsed credits.
func (l *Ledger) IncrementUsage(ctx context.Context, creditsUsed int) (model.UsageEntry, error) {
	return l.record(ctx, "Ledger.IncrementUsage", creditsUsed, false)
}

// ConsumeCredits is IncrementUsage that refuses to record anything once creditsRemaining
// reaches zero. The check and the write happen under the same row lock, so concurrent
// callers cannot overdraw the day. The exhausted entry is returned with ErrCreditsExhausted.
func (l *Ledger) ConsumeCredits(ctx context.Context, creditsUsed int) (model.UsageEntry, error) {
	return l.record(ctx, "Ledger.ConsumeCredits", creditsUsed, true)
}

func (l *Ledger) record(ctx context.Context, op string, creditsUsed int, requireCredits bool) (entry model.UsageEntry, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if creditsUsed < 0 {
		return model.UsageEntry{}, fmt.Errorf("credits used must not be negative, got %d", creditsUsed)
	}

	date := l.today()

	slog.Debug("record usage start", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", date), slog.Int("creditsUsed", creditsUsed))
	defer func() {
		switch {
		case errors.Is(err, ErrCreditsExhausted):
			slog.Info("daily credits exhausted", slog.String("rqID", rqID), slog.String("op", op), slog.Any("usage", entry))
		case err != nil:
			slog.Error("record usage failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		default:
			slog.Debug("record usage completed", slog.String("rqID", rqID), slog.String("op", op), slog.Any("usage", entry))
		}
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	var current model.UsageEntry
	err = l.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := l.repo.CreateUsageIfNotExists(ctx, l.freshEntry(date)); err != nil {
			return err
		}

		var err error
		current, err = l.repo.GetUsageForUpdate(ctx, date)
		if err != nil {
			return err
		}

		if requireCredits && current.CreditsRemaining <= 0 {
			return ErrCreditsExhausted
		}

		entry = increment(current, creditsUsed)

		return l.repo.SaveUsage(ctx, entry)
	})
	if errors.Is(err, ErrCreditsExhausted) {
		entry = current
		return entry, err
	}
	if err != nil {
		return model.UsageEntry{}, err
	}

	return entry, nil
}

func increment(entry model.UsageEntry, creditsUsed int) model.UsageEntry {
	return model.UsageEntry{
		Date:              entry.Date,
		AnalysesPerformed: entry.AnalysesPerformed + 1,
		CreditsUsed:       entry.CreditsUsed + creditsUsed,
		CreditsRemaining:  max(0, entry.CreditsRemaining-creditsUsed),
	}
}

// GetUsageHistory returns all entries, newest date first.
func (l *Ledger) GetUsageHistory(ctx context.Context) ([]model.UsageEntry, error) {
	return l.repo.GetUsageHistory(ctx)
}

// GetMonthlyAnalyses sums analyses performed in the current calendar month.
func (l *Ledger) GetMonthlyAnalyses(ctx context.Context) (int, error) {
	history, err := l.repo.GetUsageHistory(ctx)
	if err != nil {
		return 0, err
	}
	return l.monthlyAnalyses(history), nil
}

func (l *Ledger) monthlyAnalyses(history []model.UsageEntry) int {
	prefix := l.now().In(l.location).Format("2006-01") + "-"

	total := 0
	for _, entry := range history {
		if strings.HasPrefix(entry.Date, prefix) {
			total += entry.AnalysesPerformed
		}
	}
	return total
}

// GetUsageSummary returns today's entry, the monthly rollup and at most historyLimit recent entries.
// A non-positive historyLimit returns the whole history.
func (l *Ledger) GetUsageSummary(ctx context.Context, historyLimit int) (model.UsageSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Ledger.GetUsageSummary"

	today, err := l.GetTodayUsage(ctx)
	if err != nil {
		return model.UsageSummary{}, err
	}

	history, err := l.repo.GetUsageHistory(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUsageHistory", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.UsageSummary{}, err
	}

	summary := model.UsageSummary{
		Today:           today,
		MonthlyAnalyses: l.monthlyAnalyses(history),
		History:         history,
	}

	if historyLimit > 0 && len(summary.History) > historyLimit {
		summary.History = summary.History[:historyLimit]
	}

	return summary, nil
}
