package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fundamentals is the slice of scraped fundamental data the engine cares
// about; the full document lives in the instruments catalog.
type Fundamentals struct {
	Symbol       string          `json:"symbol"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PeRatio      decimal.Decimal `json:"pe_ratio"`
	PbRatio      decimal.Decimal `json:"pb_ratio"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	FetchedAt    time.Time       `json:"fetched_at"`
}
