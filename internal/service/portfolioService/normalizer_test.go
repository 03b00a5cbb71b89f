package portfolioService

import (
	"testing"
	"time"

	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_DerivesValuationFields(t *testing.T) {
	raw := model.RawHolding{
		"symbol":        "reliance",
		"isin":          "ine002a01018",
		"name":          "Reliance Industries",
		"quantity":      10.0,
		"avg_price":     100.0,
		"current_price": 120.0,
		"security_type": "stock",
		"last_updated":  "2026-03-01T10:00:00Z",
	}

	got, err := Normalize(raw, model.SourceBroker)
	require.NoError(t, err)

	assert.Equal(t, "RELIANCE", got.Symbol)
	assert.Equal(t, "INE002A01018", got.ISIN)
	assert.Equal(t, model.SourceBroker, got.Source)
	assert.Equal(t, model.SecurityTypeStock, got.SecurityType)
	assert.True(t, got.MarketValue.Equal(decimal.NewFromInt(1200)), "got %s", got.MarketValue)
	assert.True(t, got.Pnl.Equal(decimal.NewFromInt(200)), "got %s", got.Pnl)
	assert.True(t, got.PnlPercentage.Equal(decimal.NewFromInt(20)), "got %s", got.PnlPercentage)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), got.LastUpdated)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  model.RawHolding
	}{
		{
			name: "no symbol and no isin",
			raw:  model.RawHolding{"quantity": 5.0},
		},
		{
			name: "missing quantity",
			raw:  model.RawHolding{"symbol": "TCS"},
		},
		{
			name: "unparsable quantity",
			raw:  model.RawHolding{"symbol": "TCS", "quantity": "ten"},
		},
		{
			name: "quantity of wrong type",
			raw:  model.RawHolding{"symbol": "TCS", "quantity": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, model.SourceManual)
			assert.ErrorIs(t, err, service.ErrMissingField)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	got, err := Normalize(model.RawHolding{"isin": "INE009A01021", "quantity": int64(3)}, model.SourceStatement)
	require.NoError(t, err)

	assert.Empty(t, got.Symbol)
	assert.Equal(t, model.SecurityTypeStock, got.SecurityType)
	assert.True(t, got.AvgPrice.IsZero())
	assert.True(t, got.MarketValue.IsZero())
	assert.True(t, got.PnlPercentage.IsZero())
	assert.WithinDuration(t, time.Now(), got.LastUpdated, time.Minute)
}

func TestNormalize_NumericStringsAndDecimals(t *testing.T) {
	raw := model.RawHolding{
		"symbol":        "SGBDEC31",
		"quantity":      "2.5",
		"avg_price":     decimal.NewFromInt(6000),
		"current_price": 6400,
		"security_type": "GOLD",
	}

	got, err := Normalize(raw, model.SourceManual)
	require.NoError(t, err)

	assert.Equal(t, model.SecurityTypeGold, got.SecurityType)
	assert.True(t, got.Quantity.Equal(decimal.NewFromFloat(2.5)))
	assert.True(t, got.MarketValue.Equal(decimal.NewFromInt(16000)), "got %s", got.MarketValue)
	assert.True(t, got.Pnl.Equal(decimal.NewFromInt(1000)), "got %s", got.Pnl)
}

func TestNormalize_UnknownSecurityTypeBecomesStock(t *testing.T) {
	got, err := Normalize(model.RawHolding{"symbol": "X", "quantity": 1.0, "security_type": "CRYPTO"}, model.SourceManual)
	require.NoError(t, err)

	assert.Equal(t, model.SecurityTypeStock, got.SecurityType)
}
