package portfolioService

import (
	"fmt"
	"strings"
	"time"

	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/internal/service"
	"github.com/shopspring/decimal"
)

// Normalize converts one raw provider record into a canonical Security.
// It is pure: the same record and source always produce the same Security,
// except last_updated which defaults to the call time when the record
// carries none.
//
// Required fields: symbol or isin, and quantity. Other numeric fields
// default to zero; valuation fields are derived so that
// market_value = quantity * current_price and
// pnl = market_value - quantity * avg_price always hold.
func Normalize(raw model.RawHolding, source model.Source) (model.Security, error) {
	symbol := stringField(raw, "symbol")
	isin := stringField(raw, "isin")

	if symbol == "" && isin == "" {
		return model.Security{}, fmt.Errorf("%w: symbol or isin", service.ErrMissingField)
	}

	quantity, ok := decimalField(raw, "quantity")
	if !ok {
		return model.Security{}, fmt.Errorf("%w: quantity", service.ErrMissingField)
	}

	avgPrice, _ := decimalField(raw, "avg_price")
	currentPrice, _ := decimalField(raw, "current_price")

	marketValue := quantity.Mul(currentPrice)
	investment := quantity.Mul(avgPrice)
	pnl := marketValue.Sub(investment)

	pnlPercentage := decimal.Decimal{}
	if investment.IsPositive() {
		pnlPercentage = pnl.Div(investment).Mul(decimal.NewFromInt(100))
	}

	lastUpdated := timeField(raw, "last_updated")
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}

	return model.Security{
		Symbol:        strings.ToUpper(symbol),
		Name:          stringField(raw, "name"),
		Quantity:      quantity,
		AvgPrice:      avgPrice,
		CurrentPrice:  currentPrice,
		MarketValue:   marketValue,
		Pnl:           pnl,
		PnlPercentage: pnlPercentage,
		SecurityType:  securityTypeField(raw),
		ISIN:          strings.ToUpper(isin),
		Source:        source,
		LastUpdated:   lastUpdated,
	}, nil
}

func stringField(raw model.RawHolding, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func decimalField(raw model.RawHolding, key string) (decimal.Decimal, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return decimal.Decimal{}, false
	}

	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case decimal.Decimal:
		return val, true
	}

	return decimal.Decimal{}, false
}

func timeField(raw model.RawHolding, key string) time.Time {
	v, ok := raw[key]
	if !ok || v == nil {
		return time.Time{}
	}

	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}
		}
		return t
	}

	return time.Time{}
}

func securityTypeField(raw model.RawHolding) model.SecurityType {
	switch model.SecurityType(strings.ToUpper(stringField(raw, "security_type"))) {
	case model.SecurityTypeMutualFund:
		return model.SecurityTypeMutualFund
	case model.SecurityTypeBond:
		return model.SecurityTypeBond
	case model.SecurityTypeGold:
		return model.SecurityTypeGold
	default:
		return model.SecurityTypeStock
	}
}
