package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefreshType string

const (
	RefreshTypeManual    RefreshType = "MANUAL"
	RefreshTypeAutomatic RefreshType = "AUTOMATIC"
)

// Portfolio is the consolidated view of one user's holdings, persisted as a
// single document keyed by user id.
type Portfolio struct {
	UserID        string           `json:"user_id"`
	Securities    []Security       `json:"securities"`
	Summary       PortfolioSummary `json:"summary"`
	Sources       SourceCounts     `json:"sources"`
	LastRefreshed time.Time        `json:"last_refreshed"`
	RefreshType   RefreshType      `json:"refresh_type"`
}

type PortfolioSummary struct {
	TotalValue           decimal.Decimal          `json:"total_value"`
	TotalPnl             decimal.Decimal          `json:"total_pnl"`
	TotalInvestment      decimal.Decimal          `json:"total_investment"`
	OverallPnlPercentage decimal.Decimal          `json:"overall_pnl_percentage"`
	SecurityCount        int                      `json:"security_count"`
	ByType               map[SecurityType]TypeAgg `json:"by_type"`
}

type TypeAgg struct {
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
	Pnl   decimal.Decimal `json:"pnl"`
}

type SourceCounts struct {
	Broker    int `json:"broker"`
	Statement int `json:"statement"`
	Manual    int `json:"manual"`
}

// ConsolidatedPortfolio is the output of one consolidation pass, before it is
// bound to a user and persisted.
type ConsolidatedPortfolio struct {
	Securities []Security
	Summary    PortfolioSummary
	Sources    SourceCounts
}
