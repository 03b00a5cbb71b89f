package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/portfolio-engine/data/repository"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/internal/service"
	"github.com/portfolio-engine/utils"
)

type BrokerProvider interface {
	GetHoldings(ctx context.Context, userID string) ([]model.RawHolding, error)
}

type Repository interface {
	GetStatementHoldings(ctx context.Context, userID string) ([]model.RawHolding, error)
	GetManualHoldings(ctx context.Context, userID string) ([]model.RawHolding, error)
	UpsertPortfolio(ctx context.Context, userID string, portfolio model.Portfolio) error
	GetPortfolio(ctx context.Context, userID string) (model.Portfolio, error)
}

// PortfolioService builds and serves the canonical per-user portfolio view
// out of the three holding sources.
type PortfolioService struct {
	repo   Repository
	broker BrokerProvider
}

func New(repo Repository, broker BrokerProvider) *PortfolioService {
	return &PortfolioService{repo: repo, broker: broker}
}

// ConsolidatePortfolio pulls raw holdings from every source, normalizes
// them, merges duplicates and persists the resulting portfolio document.
// A single unavailable source degrades to an empty batch; the consolidation
// fails only when no source delivered anything at all.
func (s *PortfolioService) ConsolidatePortfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ConsolidatePortfolio"

	slog.Debug("ConsolidatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ConsolidatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	sourcesFailed := 0

	brokerRaw, err := s.broker.GetHoldings(ctx, userID)
	if err != nil {
		slog.Warn("broker holdings unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		sourcesFailed++
	}

	statementRaw, err := s.repo.GetStatementHoldings(ctx, userID)
	if err != nil {
		slog.Warn("statement holdings unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		sourcesFailed++
	}

	manualRaw, err := s.repo.GetManualHoldings(ctx, userID)
	if err != nil {
		slog.Warn("manual holdings unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		sourcesFailed++
	}

	if sourcesFailed == 3 {
		slog.Error("every holding source failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
		return model.Portfolio{}, service.ErrNoSources
	}

	securities := make([]model.Security, 0, len(brokerRaw)+len(statementRaw)+len(manualRaw))
	securities = append(securities, s.normalizeBatch(ctx, brokerRaw, model.SourceBroker)...)
	securities = append(securities, s.normalizeBatch(ctx, statementRaw, model.SourceStatement)...)
	securities = append(securities, s.normalizeBatch(ctx, manualRaw, model.SourceManual)...)

	consolidated := Consolidate(securities)

	portfolio := model.Portfolio{
		UserID:        userID,
		Securities:    consolidated.Securities,
		Summary:       consolidated.Summary,
		Sources:       consolidated.Sources,
		LastRefreshed: time.Now(),
		RefreshType:   model.RefreshTypeManual,
	}

	err = s.repo.UpsertPortfolio(ctx, userID, portfolio)
	if err != nil {
		slog.Error("got error from repo.UpsertPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}

// normalizeBatch drops malformed records and keeps going: one bad row from a
// provider never aborts its siblings.
func (s *PortfolioService) normalizeBatch(ctx context.Context, raw []model.RawHolding, source model.Source) []model.Security {
	rqID := utils.GetRequestIDFromCtx(ctx)

	securities := make([]model.Security, 0, len(raw))
	for _, record := range raw {
		sec, err := Normalize(record, source)
		if err != nil {
			slog.Warn(
				"dropping malformed holding record",
				slog.String("rqID", rqID),
				slog.String("source", source.String()),
				slog.String("err", err.Error()),
				slog.Any("record", record),
			)
			continue
		}
		securities = append(securities, sec)
	}

	return securities
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	portfolio, err := s.repo.GetPortfolio(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Portfolio{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, err
	}

	return portfolio, nil
}
