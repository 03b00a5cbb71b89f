package pricefeed

import (
	"context"
	"log/slog"

	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
	"github.com/shopspring/decimal"
)

type LiveQuotes interface {
	GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type FundamentalsCache interface {
	GetFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error)
	SetFundamentals(ctx context.Context, fundamentals model.Fundamentals) error
}

type FundamentalsApi interface {
	GetFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error)
}

// PriceFeed resolves a current price through the fallback chain:
// live broker quote, then cached fundamentals, then a fresh fundamentals
// fetch (which back-fills the cache). A miss on every tier is reported as
// ok=false, never as an error.
type PriceFeed struct {
	quotes       LiveQuotes
	cache        FundamentalsCache
	fundamentals FundamentalsApi
}

func New(quotes LiveQuotes, cache FundamentalsCache, fundamentals FundamentalsApi) *PriceFeed {
	return &PriceFeed{
		quotes:       quotes,
		cache:        cache,
		fundamentals: fundamentals,
	}
}

func (f *PriceFeed) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceFeed.GetCurrentPrice"

	price, err := f.quotes.GetQuote(ctx, symbol)
	if err == nil && price.IsPositive() {
		return price, true
	}
	if err != nil {
		slog.Warn("can't get live quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
	}

	cached, err := f.cache.GetFundamentals(ctx, symbol)
	if err == nil && cached.CurrentPrice.IsPositive() {
		return cached.CurrentPrice, true
	}

	fresh, err := f.fundamentals.GetFundamentals(ctx, symbol)
	if err != nil {
		slog.Warn("can't fetch fresh fundamentals", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return decimal.Decimal{}, false
	}

	if !fresh.CurrentPrice.IsPositive() {
		return decimal.Decimal{}, false
	}

	go f.cache.SetFundamentals(context.WithoutCancel(ctx), fresh)

	return fresh.CurrentPrice, true
}
