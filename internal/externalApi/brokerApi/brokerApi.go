package brokerApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/externalApi"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
	"github.com/shopspring/decimal"
)

// BrokerApi talks to the live broker feed: open positions and last traded
// prices for the symbols the broker knows about.
type BrokerApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *BrokerApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.BrokerApi.Url).
		SetAuthToken(cfg.API.BrokerApi.Token)
	return &BrokerApi{client: client}
}

type rawHoldingsResponse struct {
	Holdings []model.RawHolding `json:"holdings"`
}

func (a *BrokerApi) GetHoldings(ctx context.Context, userID string) ([]model.RawHolding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start BrokerApi.GetHoldings request", slog.String("rqID", rqID), slog.String("userID", userID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("user_id", userID).
		Get("/holdings")

	if err != nil {
		slog.Error("error while dialing BrokerApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("BrokerApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("broker api status %d", resp.StatusCode())
	}

	holdingsResp := rawHoldingsResponse{}
	err = json.Unmarshal(resp.Body(), &holdingsResp)
	if err != nil {
		slog.Error("can't unmarshall BrokerApi holdings response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("BrokerApi.GetHoldings request complete", slog.String("rqID", rqID), slog.Int("holdings", len(holdingsResp.Holdings)))

	return holdingsResp.Holdings, nil
}

type rawQuoteResponse struct {
	Symbol string          `json:"symbol"`
	Ltp    decimal.Decimal `json:"ltp"`
}

func (a *BrokerApi) GetQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start BrokerApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("symbol", symbol).
		Get("/quotes/{symbol}")

	if err != nil {
		slog.Error("error while dialing BrokerApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	if resp.StatusCode() == 404 {
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("BrokerApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return decimal.Decimal{}, fmt.Errorf("broker api status %d", resp.StatusCode())
	}

	quote := rawQuoteResponse{}
	err = json.Unmarshal(resp.Body(), &quote)
	if err != nil {
		slog.Error("can't unmarshall BrokerApi quote response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	slog.Debug("BrokerApi.GetQuote request complete", slog.String("rqID", rqID))

	return quote.Ltp, nil
}
