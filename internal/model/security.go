package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a holding record came from. Higher value wins on merge.
type Source int

const (
	SourceManual Source = iota + 1
	SourceStatement
	SourceBroker
)

func (s Source) String() string {
	switch s {
	case SourceBroker:
		return "BROKER"
	case SourceStatement:
		return "STATEMENT"
	case SourceManual:
		return "MANUAL"
	}
	return "UNKNOWN"
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BROKER":
		*s = SourceBroker
	case "STATEMENT":
		*s = SourceStatement
	case "MANUAL":
		*s = SourceManual
	default:
		return fmt.Errorf("unknown source %q", string(text))
	}
	return nil
}

type SecurityType string

const (
	SecurityTypeStock      SecurityType = "STOCK"
	SecurityTypeMutualFund SecurityType = "MUTUAL_FUND"
	SecurityTypeBond       SecurityType = "BOND"
	SecurityTypeGold       SecurityType = "GOLD"
)

// Security is the canonical holding representation all sources normalize into.
type Security struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	Pnl           decimal.Decimal `json:"pnl"`
	PnlPercentage decimal.Decimal `json:"pnl_percentage"`
	SecurityType  SecurityType    `json:"security_type"`
	ISIN          string          `json:"isin,omitempty"`
	Source        Source          `json:"source"`
	LastUpdated   time.Time       `json:"last_updated"`
}

// IdentityKey is what duplicates across sources are matched on:
// ISIN when present, upper-cased symbol otherwise.
func (s Security) IdentityKey() string {
	if s.ISIN != "" {
		return strings.ToUpper(s.ISIN)
	}
	return strings.ToUpper(s.Symbol)
}

// RawHolding is one unvalidated record as delivered by a provider.
type RawHolding map[string]any
