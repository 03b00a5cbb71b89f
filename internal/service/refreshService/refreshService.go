package refreshService

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/internal/scheduler"
	"github.com/portfolio-engine/internal/service/portfolioService"
	"github.com/portfolio-engine/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetPortfolio(ctx context.Context, userID string) (model.Portfolio, error)
	UpsertPortfolio(ctx context.Context, userID string, portfolio model.Portfolio) error
	GetUserIDsWithPortfolios(ctx context.Context) ([]string, error)
	InsertRefreshLog(ctx context.Context, log model.RefreshLog) error
	InsertDailySummary(ctx context.Context, summary model.DailySummary) error
	UpdateSystemRefreshTimestamp(ctx context.Context, ts time.Time) error
}

type PriceProvider interface {
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
}

// RefreshService keeps every stored portfolio's valuations current. While
// running it owns three schedules: a periodic full refresh, a fine-grained
// tick gated on market hours, and a once-daily end-of-day summary. It is the
// only writer outside a direct caller's request.
type RefreshService struct {
	cfg       *config.Config
	repo      Repository
	prices    PriceProvider
	reports   ReportGenerator
	cloudStor CloudStorage

	marketOpen  int // minutes from midnight
	marketClose int
	now         func() time.Time

	mu                sync.Mutex
	running           bool
	sched             *scheduler.Scheduler
	lastSystemRefresh *time.Time

	locksMu   sync.Mutex
	userLocks map[string]*sync.Mutex
}

func New(cfg *config.Config, repo Repository, prices PriceProvider, reports ReportGenerator, cloudStor CloudStorage) *RefreshService {
	return &RefreshService{
		cfg:         cfg,
		repo:        repo,
		prices:      prices,
		reports:     reports,
		cloudStor:   cloudStor,
		marketOpen:  mustParseMinutes(cfg.Market.OpensAt),
		marketClose: mustParseMinutes(cfg.Market.ClosesAt),
		now:         time.Now,
		userLocks:   make(map[string]*sync.Mutex),
	}
}

func mustParseMinutes(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(fmt.Sprintf("invalid market hours value %q: %s", hhmm, err))
	}
	return t.Hour()*60 + t.Minute()
}

// Start brings the coordinator into the Running state. Calling it while
// already running is a no-op reporting the current status.
func (s *RefreshService) Start(ctx context.Context) (model.RefreshStatus, error) {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		slog.Info("refresh coordinator already running")
		return s.status(ctx)
	}

	sched := scheduler.New()
	sched.NewIntervalJob("refresh all portfolios", s.refreshAllJob, s.cfg.Jobs.RefreshInterval, false)
	sched.NewIntervalJob("market hours refresh", s.marketHoursJob, s.cfg.Jobs.MarketHoursInterval, false)
	sched.NewCrontabJob("daily summary", s.dailySummaryJob, s.cfg.Jobs.DailySummaryCrontab)
	sched.Start()

	s.sched = sched
	s.running = true
	s.mu.Unlock()

	slog.Info("refresh coordinator started", slog.Duration("interval", s.cfg.Jobs.RefreshInterval))

	return s.status(ctx)
}

// Stop cancels all pending scheduled work and blocks until the background
// worker has quiesced: no job executes after Stop returns. Stopping an
// already stopped coordinator is a no-op.
//
// The scheduler shutdown waits for in-flight jobs, and those jobs take s.mu
// to record the refresh timestamp, so the wait must happen outside the lock.
func (s *RefreshService) Stop() {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		return
	}

	sched := s.sched
	s.sched = nil
	s.running = false
	s.mu.Unlock()

	sched.Stop()

	slog.Info("refresh coordinator stopped")
}

func (s *RefreshService) refreshAllJob(ctx context.Context) error {
	_, err := s.RefreshAllPortfolios(utils.CreateCtxWithRqID(ctx))
	return err
}

func (s *RefreshService) marketHoursJob(ctx context.Context) error {
	_, err := s.RefreshMarketHoursPortfolios(utils.CreateCtxWithRqID(ctx))
	return err
}

func (s *RefreshService) dailySummaryJob(ctx context.Context) error {
	_, err := s.GenerateDailySummary(utils.CreateCtxWithRqID(ctx))
	return err
}

// RefreshAllPortfolios re-prices every tracked portfolio. One user's failure
// is recorded and never aborts the rest of the batch.
func (s *RefreshService) RefreshAllPortfolios(ctx context.Context) (model.RefreshRunResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RefreshService.RefreshAllPortfolios"

	slog.Info("RefreshAllPortfolios start", slog.String("rqID", rqID), slog.String("op", op))

	users, err := s.repo.GetUserIDsWithPortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUserIDsWithPortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.RefreshRunResult{}, err
	}

	result := model.RefreshRunResult{TotalUsers: len(users)}

	for _, userID := range users {
		if err := s.refreshUserGuarded(ctx, userID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, model.RefreshError{UserID: userID, Error: err.Error()})
			slog.Error("portfolio refresh failed for user", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("err", err.Error()))
			continue
		}
		result.Successful++
	}

	refreshedAt := s.now()

	s.mu.Lock()
	s.lastSystemRefresh = &refreshedAt
	s.mu.Unlock()

	if err := s.repo.UpdateSystemRefreshTimestamp(ctx, refreshedAt); err != nil {
		slog.Error("can't persist system refresh timestamp", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info(
		"RefreshAllPortfolios completed",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int("successful", result.Successful),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}

// refreshUserGuarded keeps a panicking user inside the per-user boundary.
func (s *RefreshService) refreshUserGuarded(ctx context.Context, userID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during refresh: %v", r)
		}
	}()

	_, err = s.RefreshOne(ctx, userID, model.RefreshTypeAutomatic)
	return err
}

// RefreshMarketHoursPortfolios runs a full refresh only inside the trading
// window; outside it the tick is a no-op reporting skipped.
func (s *RefreshService) RefreshMarketHoursPortfolios(ctx context.Context) (model.RefreshRunResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if !s.withinMarketHours(s.now()) {
		slog.Debug("outside market hours, refresh skipped", slog.String("rqID", rqID))
		return model.RefreshRunResult{Skipped: true}, nil
	}

	slog.Info("market hours refresh triggered", slog.String("rqID", rqID))

	return s.RefreshAllPortfolios(ctx)
}

func (s *RefreshService) withinMarketHours(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= s.marketOpen && minutes <= s.marketClose
}

// RefreshOne re-prices a single user's portfolio. A failed price fetch for
// one holding retains that holding's previous values; only a persistence
// failure fails the user. A per-user lock keeps a scheduled cycle and a
// concurrent manual trigger from interleaving on the same document.
func (s *RefreshService) RefreshOne(ctx context.Context, userID string, refreshType model.RefreshType) (model.UserRefreshResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RefreshService.RefreshOne"

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	portfolio, err := s.repo.GetPortfolio(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("err", err.Error()))
		return model.UserRefreshResult{}, err
	}

	updated := 0
	stale := 0

	for i := range portfolio.Securities {
		sec := &portfolio.Securities[i]

		price, ok := s.fetchPrice(ctx, sec.Symbol)
		if !ok {
			// stale data retained, picked up again on the next tick
			stale++
			continue
		}

		investment := sec.Quantity.Mul(sec.AvgPrice)

		sec.CurrentPrice = price
		sec.MarketValue = sec.Quantity.Mul(price)
		sec.Pnl = sec.MarketValue.Sub(investment)
		if investment.IsPositive() {
			sec.PnlPercentage = sec.Pnl.Div(investment).Mul(decimal.NewFromInt(100))
		} else {
			sec.PnlPercentage = decimal.Decimal{}
		}
		sec.LastUpdated = s.now()

		updated++
	}

	consolidated := portfolioService.Consolidate(portfolio.Securities)
	portfolio.Securities = consolidated.Securities
	portfolio.Summary = consolidated.Summary
	portfolio.LastRefreshed = s.now()
	portfolio.RefreshType = refreshType

	if err := s.repo.UpsertPortfolio(ctx, userID, portfolio); err != nil {
		slog.Error("got error from repo.UpsertPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("err", err.Error()))
		return model.UserRefreshResult{}, err
	}

	return model.UserRefreshResult{
		UserID:          userID,
		HoldingsUpdated: updated,
		HoldingsStale:   stale,
		TotalValue:      portfolio.Summary.TotalValue,
		TotalPnl:        portfolio.Summary.TotalPnl,
		LastRefreshed:   portfolio.LastRefreshed,
	}, nil
}

// fetchPrice bounds a single provider call so one hung fetch degrades to a
// stale holding instead of stalling the batch.
func (s *RefreshService) fetchPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.API.Timeout)
	defer cancel()

	return s.prices.GetCurrentPrice(fetchCtx, symbol)
}

// ManualRefreshPortfolio is the synchronous single-user path, usable
// regardless of market hours. Every trigger is recorded in the refresh log.
func (s *RefreshService) ManualRefreshPortfolio(ctx context.Context, userID string) (model.UserRefreshResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RefreshService.ManualRefreshPortfolio"

	slog.Info("manual refresh requested", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))

	result, err := s.RefreshOne(ctx, userID, model.RefreshTypeManual)

	logEntry := model.RefreshLog{
		UserID:      userID,
		RefreshType: model.RefreshTypeManual,
		Timestamp:   s.now(),
		Status:      "success",
	}
	if err != nil {
		logEntry.Status = "failed"
		logEntry.Error = err.Error()
	}

	if logErr := s.repo.InsertRefreshLog(ctx, logEntry); logErr != nil {
		slog.Error("can't insert refresh log", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", logErr.Error()))
	}

	return result, err
}

// GetRefreshStatus returns a read-only snapshot of the coordinator.
func (s *RefreshService) GetRefreshStatus(ctx context.Context) (model.RefreshStatus, error) {
	return s.status(ctx)
}

// status snapshots coordinator state under the lock and counts tracked users
// outside it, so a slow query never blocks Start or Stop.
func (s *RefreshService) status(ctx context.Context) (model.RefreshStatus, error) {
	s.mu.Lock()
	status := model.RefreshStatus{
		IsRunning:         s.running,
		RefreshInterval:   s.cfg.Jobs.RefreshInterval,
		LastSystemRefresh: s.lastSystemRefresh,
	}
	s.mu.Unlock()

	users, err := s.repo.GetUserIDsWithPortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUserIDsWithPortfolios", slog.String("err", err.Error()))
		return status, err
	}

	status.TotalUsers = len(users)
	return status, nil
}

func (s *RefreshService) userLock(userID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}
