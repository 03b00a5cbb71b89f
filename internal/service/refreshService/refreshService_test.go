package refreshService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	portfolios map[string]model.Portfolio
	getErrs    map[string]error
	usersErr   error
	upsertErr  error

	logs      []model.RefreshLog
	summaries []model.DailySummary
	systemTs  []time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		portfolios: make(map[string]model.Portfolio),
		getErrs:    make(map[string]error),
	}
}

func (f *fakeRepo) GetPortfolio(_ context.Context, userID string) (model.Portfolio, error) {
	if err := f.getErrs[userID]; err != nil {
		return model.Portfolio{}, err
	}
	return f.portfolios[userID], nil
}

func (f *fakeRepo) UpsertPortfolio(_ context.Context, userID string, portfolio model.Portfolio) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.portfolios[userID] = portfolio
	return nil
}

func (f *fakeRepo) GetUserIDsWithPortfolios(_ context.Context) ([]string, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	users := make([]string, 0, len(f.portfolios))
	for userID := range f.portfolios {
		users = append(users, userID)
	}
	return users, nil
}

func (f *fakeRepo) InsertRefreshLog(_ context.Context, log model.RefreshLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeRepo) InsertDailySummary(_ context.Context, summary model.DailySummary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *fakeRepo) UpdateSystemRefreshTimestamp(_ context.Context, ts time.Time) error {
	f.systemTs = append(f.systemTs, ts)
	return nil
}

type fakePrices struct {
	prices map[string]decimal.Decimal
}

func (f *fakePrices) GetCurrentPrice(_ context.Context, symbol string) (decimal.Decimal, bool) {
	price, ok := f.prices[symbol]
	return price, ok
}

func holding(symbol string, quantity, avgPrice, currentPrice int64) model.Security {
	q := decimal.NewFromInt(quantity)
	avg := decimal.NewFromInt(avgPrice)
	cur := decimal.NewFromInt(currentPrice)
	mv := q.Mul(cur)

	return model.Security{
		Symbol:       symbol,
		Quantity:     q,
		AvgPrice:     avg,
		CurrentPrice: cur,
		MarketValue:  mv,
		Pnl:          mv.Sub(q.Mul(avg)),
		SecurityType: model.SecurityTypeStock,
		Source:       model.SourceBroker,
		LastUpdated:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testCfg() *config.Config {
	cfg := &config.Config{}
	cfg.API.Timeout = time.Second
	cfg.Jobs.RefreshInterval = 300 * time.Second
	cfg.Jobs.MarketHoursInterval = 60 * time.Second
	cfg.Jobs.DailySummaryCrontab = "30 15 * * *"
	cfg.Market.OpensAt = "09:15"
	cfg.Market.ClosesAt = "15:30"
	return cfg
}

func newTestService(repo Repository, prices PriceProvider) *RefreshService {
	return New(testCfg(), repo, prices, nil, nil)
}

func TestRefreshOne_UpdatesPricesAndSummary(t *testing.T) {
	repo := newFakeRepo()
	repo.portfolios["user1"] = model.Portfolio{
		UserID:     "user1",
		Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
	}
	prices := &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(120)}}

	srv := newTestService(repo, prices)

	result, err := srv.RefreshOne(context.Background(), "user1", model.RefreshTypeAutomatic)
	require.NoError(t, err)

	assert.Equal(t, 1, result.HoldingsUpdated)
	assert.Equal(t, 0, result.HoldingsStale)
	assert.True(t, result.TotalValue.Equal(decimal.NewFromInt(1200)), "got %s", result.TotalValue)
	assert.True(t, result.TotalPnl.Equal(decimal.NewFromInt(200)), "got %s", result.TotalPnl)

	stored := repo.portfolios["user1"]
	assert.Equal(t, model.RefreshTypeAutomatic, stored.RefreshType)
	assert.True(t, stored.Securities[0].CurrentPrice.Equal(decimal.NewFromInt(120)))
	assert.True(t, stored.Summary.TotalValue.Equal(decimal.NewFromInt(1200)))
}

func TestRefreshOne_FailedPriceKeepsStaleHolding(t *testing.T) {
	repo := newFakeRepo()
	repo.portfolios["user1"] = model.Portfolio{
		UserID: "user1",
		Securities: []model.Security{
			holding("RELIANCE", 10, 100, 100),
			holding("SUSPENDED", 5, 50, 60),
		},
	}
	prices := &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}}

	srv := newTestService(repo, prices)

	result, err := srv.RefreshOne(context.Background(), "user1", model.RefreshTypeAutomatic)
	require.NoError(t, err)

	assert.Equal(t, 1, result.HoldingsUpdated)
	assert.Equal(t, 1, result.HoldingsStale)

	stored := repo.portfolios["user1"]
	require.Len(t, stored.Securities, 2)
	assert.True(t, stored.Securities[0].CurrentPrice.Equal(decimal.NewFromInt(110)))
	// untouched holding keeps its previous valuation
	assert.True(t, stored.Securities[1].CurrentPrice.Equal(decimal.NewFromInt(60)))
	assert.True(t, stored.Summary.TotalValue.Equal(decimal.NewFromInt(1400)), "got %s", stored.Summary.TotalValue)
}

func TestRefreshOne_PersistenceFailureFailsUser(t *testing.T) {
	repo := newFakeRepo()
	repo.portfolios["user1"] = model.Portfolio{
		UserID:     "user1",
		Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
	}
	repo.upsertErr = errors.New("connection reset")

	srv := newTestService(repo, &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}})

	_, err := srv.RefreshOne(context.Background(), "user1", model.RefreshTypeAutomatic)
	assert.Error(t, err)
}

func TestRefreshAllPortfolios_IsolatesUserFailures(t *testing.T) {
	repo := newFakeRepo()
	repo.portfolios["good"] = model.Portfolio{
		UserID:     "good",
		Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
	}
	repo.portfolios["bad"] = model.Portfolio{UserID: "bad"}
	repo.getErrs["bad"] = errors.New("document corrupted")

	srv := newTestService(repo, &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}})

	result, err := srv.RefreshAllPortfolios(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalUsers)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad", result.Errors[0].UserID)

	require.Len(t, repo.systemTs, 1, "system refresh timestamp must be persisted")

	status, err := srv.GetRefreshStatus(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastSystemRefresh)
}

func TestRefreshMarketHoursPortfolios_Gate(t *testing.T) {
	tests := []struct {
		name        string
		clock       time.Time
		wantSkipped bool
	}{
		{name: "inside trading window", clock: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), wantSkipped: false},
		{name: "at open boundary", clock: time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), wantSkipped: false},
		{name: "at close boundary", clock: time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC), wantSkipped: false},
		{name: "before open", clock: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), wantSkipped: true},
		{name: "evening", clock: time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC), wantSkipped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			repo.portfolios["user1"] = model.Portfolio{
				UserID:     "user1",
				Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
			}

			srv := newTestService(repo, &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}})
			srv.now = func() time.Time { return tt.clock }

			result, err := srv.RefreshMarketHoursPortfolios(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantSkipped, result.Skipped)
			if !tt.wantSkipped {
				assert.Equal(t, 1, result.Successful)
			}
		})
	}
}

func TestManualRefreshPortfolio_WritesLog(t *testing.T) {
	repo := newFakeRepo()
	repo.portfolios["user1"] = model.Portfolio{
		UserID:     "user1",
		Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
	}

	srv := newTestService(repo, &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}})

	_, err := srv.ManualRefreshPortfolio(context.Background(), "user1")
	require.NoError(t, err)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, "user1", repo.logs[0].UserID)
	assert.Equal(t, model.RefreshTypeManual, repo.logs[0].RefreshType)
	assert.Equal(t, "success", repo.logs[0].Status)

	assert.Equal(t, model.RefreshTypeManual, repo.portfolios["user1"].RefreshType)
}

func TestManualRefreshPortfolio_LogsFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.getErrs["user1"] = errors.New("document corrupted")

	srv := newTestService(repo, &fakePrices{})

	_, err := srv.ManualRefreshPortfolio(context.Background(), "user1")
	require.Error(t, err)

	require.Len(t, repo.logs, 1)
	assert.Equal(t, "failed", repo.logs[0].Status)
	assert.NotEmpty(t, repo.logs[0].Error)
}

// slowQuiescenceRepo serializes access and delays portfolio reads so a
// refresh cycle is reliably in flight when Stop is called.
type slowQuiescenceRepo struct {
	mu        sync.Mutex
	portfolio model.Portfolio
	readDelay time.Duration
	writes    []time.Time
}

func (f *slowQuiescenceRepo) GetPortfolio(_ context.Context, _ string) (model.Portfolio, error) {
	time.Sleep(f.readDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.portfolio, nil
}

func (f *slowQuiescenceRepo) UpsertPortfolio(_ context.Context, _ string, portfolio model.Portfolio) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.portfolio = portfolio
	f.writes = append(f.writes, time.Now())
	return nil
}

func (f *slowQuiescenceRepo) GetUserIDsWithPortfolios(_ context.Context) ([]string, error) {
	return []string{"user1"}, nil
}

func (f *slowQuiescenceRepo) InsertRefreshLog(_ context.Context, _ model.RefreshLog) error {
	return nil
}

func (f *slowQuiescenceRepo) InsertDailySummary(_ context.Context, _ model.DailySummary) error {
	return nil
}

func (f *slowQuiescenceRepo) UpdateSystemRefreshTimestamp(_ context.Context, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, time.Now())
	return nil
}

func (f *slowQuiescenceRepo) writesSnapshot() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.writes...)
}

func TestStop_NoRepoWriteAfterReturn(t *testing.T) {
	repo := &slowQuiescenceRepo{
		portfolio: model.Portfolio{
			UserID:     "user1",
			Securities: []model.Security{holding("RELIANCE", 10, 100, 100)},
		},
		readDelay: 300 * time.Millisecond,
	}

	cfg := testCfg()
	cfg.Jobs.RefreshInterval = 50 * time.Millisecond

	srv := New(cfg, repo, &fakePrices{prices: map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}}, nil, nil)

	_, err := srv.Start(context.Background())
	require.NoError(t, err)

	// let a refresh cycle get in flight before stopping
	time.Sleep(150 * time.Millisecond)

	stopStart := time.Now()
	srv.Stop()
	stoppedAt := time.Now()

	// Stop must wait out the in-flight cycle, not time out around it
	assert.Less(t, stoppedAt.Sub(stopStart), 5*time.Second)

	// room for a leaked goroutine to surface as a late write
	time.Sleep(500 * time.Millisecond)

	writes := repo.writesSnapshot()
	require.NotEmpty(t, writes, "a refresh cycle should have completed")
	for _, ts := range writes {
		assert.False(t, ts.After(stoppedAt), "repo write %s after Stop returned", ts.Sub(stoppedAt))
	}
}

func TestStartStop(t *testing.T) {
	repo := newFakeRepo()
	srv := newTestService(repo, &fakePrices{})

	status, err := srv.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsRunning)

	// second start is a no-op
	status, err = srv.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsRunning)

	srv.Stop()

	status, err = srv.GetRefreshStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status.IsRunning)

	// stopping twice must not panic
	srv.Stop()

	// the coordinator can be started again after a stop
	status, err = srv.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	srv.Stop()
}
