package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/KotFed0t/invest_advice_bot/data/repository"
	"github.com/KotFed0t/invest_advice_bot/internal/model"
)

type txKey struct{}

// tx collects undo steps for the writes made through its context. It is guarded by Memory.mu.
type tx struct {
	undo []func()
}

// Memory is a process-local repository for local runs and tests.
// Transactions are serialized with each other. A failed transaction undoes only its own
// writes, changes made meanwhile outside of it are kept.
type Memory struct {
	mu         sync.RWMutex
	txMu       sync.Mutex
	portfolios map[string]model.Portfolio
	analyses   map[string][]model.PortfolioAnalysis
	usage      map[string]model.UsageEntry
}

func New() *Memory {
	return &Memory{
		portfolios: make(map[string]model.Portfolio),
		analyses:   make(map[string][]model.PortfolioAnalysis),
		usage:      make(map[string]model.UsageEntry),
	}
}

func (m *Memory) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return tFunc(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	t := &tx{}
	if err := tFunc(context.WithValue(ctx, txKey{}, t)); err != nil {
		m.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		m.mu.Unlock()
		return err
	}

	return nil
}

// onRollback registers undo for a write made under m.mu. Outside of a transaction it is a no-op.
func onRollback(ctx context.Context, undo func()) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.undo = append(t.undo, undo)
	}
}

func clonePortfolio(p model.Portfolio) model.Portfolio {
	p.Holdings = slices.Clone(p.Holdings)
	if p.Holdings == nil {
		p.Holdings = []model.Holding{}
	}
	return p
}

func (m *Memory) CreatePortfolio(ctx context.Context, portfolio model.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.portfolios[portfolio.ID]; ok {
		return repository.ErrAlreadyExists
	}
	m.portfolios[portfolio.ID] = clonePortfolio(portfolio)
	onRollback(ctx, func() { delete(m.portfolios, portfolio.ID) })
	return nil
}

func (m *Memory) GetPortfolio(_ context.Context, portfolioID string) (model.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	portfolio, ok := m.portfolios[portfolioID]
	if !ok {
		return model.Portfolio{}, repository.ErrNotFound
	}
	return clonePortfolio(portfolio), nil
}

func (m *Memory) ListPortfolios(_ context.Context) ([]model.Portfolio, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	portfolios := make([]model.Portfolio, 0, len(m.portfolios))
	for _, portfolio := range m.portfolios {
		portfolios = append(portfolios, clonePortfolio(portfolio))
	}

	slices.SortFunc(portfolios, func(a, b model.Portfolio) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return portfolios, nil
}

func (m *Memory) UpdatePortfolio(ctx context.Context, portfolio model.Portfolio) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.portfolios[portfolio.ID]
	if !ok {
		return repository.ErrNotFound
	}

	prev := stored
	stored.Name = portfolio.Name
	stored.Holdings = portfolio.Holdings
	stored.UpdatedAt = portfolio.UpdatedAt
	m.portfolios[portfolio.ID] = clonePortfolio(stored)
	onRollback(ctx, func() { m.portfolios[prev.ID] = prev })
	return nil
}

func (m *Memory) DeletePortfolio(ctx context.Context, portfolioID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.portfolios[portfolioID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(m.portfolios, portfolioID)
	onRollback(ctx, func() { m.portfolios[portfolioID] = prev })
	return nil
}

func (m *Memory) SaveAnalysis(ctx context.Context, analysis model.PortfolioAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, stored := range m.analyses[analysis.PortfolioID] {
		if stored.ID == analysis.ID {
			return repository.ErrAlreadyExists
		}
	}

	analysis.Advice = slices.Clone(analysis.Advice)
	m.analyses[analysis.PortfolioID] = append(m.analyses[analysis.PortfolioID], analysis)
	onRollback(ctx, func() {
		m.analyses[analysis.PortfolioID] = slices.DeleteFunc(m.analyses[analysis.PortfolioID], func(a model.PortfolioAnalysis) bool {
			return a.ID == analysis.ID
		})
	})
	return nil
}

// GetLatestAnalysis returns the analysis with the greatest CreatedAt, the later save wins a tie.
func (m *Memory) GetLatestAnalysis(_ context.Context, portfolioID string) (model.PortfolioAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.analyses[portfolioID]
	if len(list) == 0 {
		return model.PortfolioAnalysis{}, repository.ErrNotFound
	}

	latest := list[0]
	for _, analysis := range list[1:] {
		if !analysis.CreatedAt.Before(latest.CreatedAt) {
			latest = analysis
		}
	}

	latest.Advice = slices.Clone(latest.Advice)
	return latest, nil
}

func (m *Memory) GetUsage(_ context.Context, date string) (model.UsageEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.usage[date]
	if !ok {
		return model.UsageEntry{}, repository.ErrNotFound
	}
	return entry, nil
}

// GetUsageForUpdate relies on WithinTransaction serialization instead of row locks.
func (m *Memory) GetUsageForUpdate(ctx context.Context, date string) (model.UsageEntry, error) {
	return m.GetUsage(ctx, date)
}

func (m *Memory) CreateUsageIfNotExists(ctx context.Context, entry model.UsageEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.usage[entry.Date]; !ok {
		m.usage[entry.Date] = entry
		onRollback(ctx, func() { delete(m.usage, entry.Date) })
	}
	return nil
}

func (m *Memory) SaveUsage(ctx context.Context, entry model.UsageEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.usage[entry.Date]
	if !ok {
		return repository.ErrNotFound
	}
	m.usage[entry.Date] = entry
	onRollback(ctx, func() { m.usage[entry.Date] = prev })
	return nil
}

func (m *Memory) GetUsageHistory(_ context.Context) ([]model.UsageEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := slices.Collect(maps.Values(m.usage))
	slices.SortFunc(history, func(a, b model.UsageEntry) int {
		return cmp.Compare(b.Date, a.Date)
	})

	if history == nil {
		history = []model.UsageEntry{}
	}
	return history, nil
}
