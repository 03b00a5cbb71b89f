package fundamentalsApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/portfolio-engine/config"
	"github.com/portfolio-engine/internal/externalApi"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
)

// FundamentalsApi fetches fundamental data for a symbol from the external
// fundamentals source. The refresh engine only needs the current price out of
// it; the rest feeds the instruments catalog.
type FundamentalsApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *FundamentalsApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.FundamentalsApi.Url)
	return &FundamentalsApi{client: client}
}

func (a *FundamentalsApi) GetFundamentals(ctx context.Context, symbol string) (model.Fundamentals, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start FundamentalsApi.GetFundamentals request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetPathParam("symbol", symbol).
		Get("/fundamentals/{symbol}")

	if err != nil {
		slog.Error("error while dialing FundamentalsApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Fundamentals{}, err
	}

	if resp.StatusCode() == 404 {
		return model.Fundamentals{}, externalApi.ErrNotFound
	}

	if resp.IsError() {
		slog.Error("FundamentalsApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return model.Fundamentals{}, fmt.Errorf("fundamentals api status %d", resp.StatusCode())
	}

	fundamentals := model.Fundamentals{}
	err = json.Unmarshal(resp.Body(), &fundamentals)
	if err != nil {
		slog.Error("can't unmarshall FundamentalsApi response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Fundamentals{}, err
	}

	if fundamentals.FetchedAt.IsZero() {
		fundamentals.FetchedAt = time.Now()
	}

	slog.Debug("FundamentalsApi.GetFundamentals request complete", slog.String("rqID", rqID))

	return fundamentals, nil
}
