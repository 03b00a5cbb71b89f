package portfolioService

import (
	"context"
	"errors"
	"testing"

	"github.com/portfolio-engine/data/repository"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBroker struct {
	holdings []model.RawHolding
	err      error
}

func (f *fakeBroker) GetHoldings(_ context.Context, _ string) ([]model.RawHolding, error) {
	return f.holdings, f.err
}

type fakeRepo struct {
	statement    []model.RawHolding
	statementErr error
	manual       []model.RawHolding
	manualErr    error

	upserted   map[string]model.Portfolio
	upsertErr  error
	portfolios map[string]model.Portfolio
	getErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		upserted:   make(map[string]model.Portfolio),
		portfolios: make(map[string]model.Portfolio),
	}
}

func (f *fakeRepo) GetStatementHoldings(_ context.Context, _ string) ([]model.RawHolding, error) {
	return f.statement, f.statementErr
}

func (f *fakeRepo) GetManualHoldings(_ context.Context, _ string) ([]model.RawHolding, error) {
	return f.manual, f.manualErr
}

func (f *fakeRepo) UpsertPortfolio(_ context.Context, userID string, portfolio model.Portfolio) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted[userID] = portfolio
	return nil
}

func (f *fakeRepo) GetPortfolio(_ context.Context, userID string) (model.Portfolio, error) {
	if f.getErr != nil {
		return model.Portfolio{}, f.getErr
	}
	return f.portfolios[userID], nil
}

func TestConsolidatePortfolio_MergesAllSources(t *testing.T) {
	repo := newFakeRepo()
	repo.statement = []model.RawHolding{
		{"symbol": "RELIANCE", "isin": "INE002A01018", "quantity": 10.0, "avg_price": 100.0, "current_price": 105.0},
	}
	repo.manual = []model.RawHolding{
		{"symbol": "GOLDETF", "quantity": 5.0, "avg_price": 50.0, "current_price": 60.0, "security_type": "GOLD"},
	}
	broker := &fakeBroker{holdings: []model.RawHolding{
		{"symbol": "RELIANCE-EQ", "isin": "INE002A01018", "quantity": 10.0, "avg_price": 100.0, "current_price": 110.0},
	}}

	srv := New(repo, broker)

	portfolio, err := srv.ConsolidatePortfolio(context.Background(), "user1")
	require.NoError(t, err)

	require.Len(t, portfolio.Securities, 2)
	assert.Equal(t, "RELIANCE-EQ", portfolio.Securities[0].Symbol)
	assert.Equal(t, model.SourceBroker, portfolio.Securities[0].Source)
	assert.Equal(t, model.SourceManual, portfolio.Securities[1].Source)
	assert.Equal(t, 1, portfolio.Sources.Broker)
	assert.Equal(t, 1, portfolio.Sources.Manual)

	stored, ok := repo.upserted["user1"]
	require.True(t, ok, "portfolio must be persisted")
	assert.Equal(t, portfolio.Summary, stored.Summary)
}

func TestConsolidatePortfolio_SingleSourceFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	repo.manual = []model.RawHolding{
		{"symbol": "TCS", "quantity": 2.0, "avg_price": 3000.0, "current_price": 3100.0},
	}
	broker := &fakeBroker{err: errors.New("broker down")}

	srv := New(repo, broker)

	portfolio, err := srv.ConsolidatePortfolio(context.Background(), "user1")
	require.NoError(t, err)
	require.Len(t, portfolio.Securities, 1)
	assert.Equal(t, "TCS", portfolio.Securities[0].Symbol)
}

func TestConsolidatePortfolio_AllSourcesFailed(t *testing.T) {
	repo := newFakeRepo()
	repo.statementErr = errors.New("db down")
	repo.manualErr = errors.New("db down")
	broker := &fakeBroker{err: errors.New("broker down")}

	srv := New(repo, broker)

	_, err := srv.ConsolidatePortfolio(context.Background(), "user1")
	assert.ErrorIs(t, err, service.ErrNoSources)
	assert.Empty(t, repo.upserted)
}

func TestConsolidatePortfolio_DropsMalformedRecords(t *testing.T) {
	repo := newFakeRepo()
	repo.manual = []model.RawHolding{
		{"quantity": 5.0}, // no identity
		{"symbol": "INFY", "quantity": 1.0, "avg_price": 1500.0, "current_price": 1550.0},
	}
	broker := &fakeBroker{}

	srv := New(repo, broker)

	portfolio, err := srv.ConsolidatePortfolio(context.Background(), "user1")
	require.NoError(t, err)
	require.Len(t, portfolio.Securities, 1)
	assert.Equal(t, "INFY", portfolio.Securities[0].Symbol)
}

func TestConsolidatePortfolio_UpsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.manual = []model.RawHolding{{"symbol": "INFY", "quantity": 1.0}}
	repo.upsertErr = errors.New("constraint violation")

	srv := New(repo, &fakeBroker{})

	_, err := srv.ConsolidatePortfolio(context.Background(), "user1")
	assert.Error(t, err)
}

func TestGetPortfolio_NotFound(t *testing.T) {
	repo := newFakeRepo()
	repo.getErr = repository.ErrNotFound

	srv := New(repo, &fakeBroker{})

	_, err := srv.GetPortfolio(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
