package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefreshRunResult summarizes one batch refresh over every tracked user.
type RefreshRunResult struct {
	TotalUsers int            `json:"total_users"`
	Successful int            `json:"successful"`
	Failed     int            `json:"failed"`
	Skipped    bool           `json:"skipped,omitempty"`
	Errors     []RefreshError `json:"errors,omitempty"`
}

type RefreshError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// UserRefreshResult is the outcome of refreshing a single user's portfolio.
type UserRefreshResult struct {
	UserID          string          `json:"user_id"`
	HoldingsUpdated int             `json:"holdings_updated"`
	HoldingsStale   int             `json:"holdings_stale"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalPnl        decimal.Decimal `json:"total_pnl"`
	LastRefreshed   time.Time       `json:"last_refreshed"`
}

// RefreshStatus is a read-only snapshot of the coordinator.
type RefreshStatus struct {
	IsRunning         bool          `json:"is_running"`
	RefreshInterval   time.Duration `json:"refresh_interval"`
	LastSystemRefresh *time.Time    `json:"last_system_refresh,omitempty"`
	TotalUsers        int           `json:"total_users"`
}

type RefreshLog struct {
	UserID      string      `json:"user_id"`
	RefreshType RefreshType `json:"refresh_type"`
	Timestamp   time.Time   `json:"timestamp"`
	Status      string      `json:"status"`
	Error       string      `json:"error,omitempty"`
}

// DailySummary is the once-a-day per-system document built after market close.
type DailySummary struct {
	Date       string             `json:"date"`
	TotalUsers int                `json:"total_users"`
	Portfolios []UserDailySummary `json:"portfolios"`
}

type UserDailySummary struct {
	UserID          string                          `json:"user_id"`
	TotalHoldings   int                             `json:"total_holdings"`
	TotalValue      decimal.Decimal                 `json:"total_value"`
	TotalPnl        decimal.Decimal                 `json:"total_pnl"`
	BestPerformer   *Performer                      `json:"best_performer,omitempty"`
	WorstPerformer  *Performer                      `json:"worst_performer,omitempty"`
	AssetAllocation map[SecurityType]decimal.Decimal `json:"asset_allocation"`
}

type Performer struct {
	Symbol        string          `json:"symbol"`
	PnlPercentage decimal.Decimal `json:"pnl_percentage"`
}
