package refreshService

import (
	"context"
	"log/slog"
	"sort"

	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
	"github.com/shopspring/decimal"
)

type ReportGenerator interface {
	GenerateDailySummaryReport(summary model.DailySummary) (content []byte, filename string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, filename string, content []byte) error
}

// GenerateDailySummary builds the end-of-day document: per user the best and
// worst performer by pnl percentage plus the value allocation per asset
// type. One user failing never drops the others; report generation and
// upload failures are logged but never fail the job.
func (s *RefreshService) GenerateDailySummary(ctx context.Context) (model.DailySummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RefreshService.GenerateDailySummary"

	slog.Info("GenerateDailySummary start", slog.String("rqID", rqID), slog.String("op", op))

	users, err := s.repo.GetUserIDsWithPortfolios(ctx)
	if err != nil {
		slog.Error("got error from repo.GetUserIDsWithPortfolios", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.DailySummary{}, err
	}

	summary := model.DailySummary{
		Date:       s.now().Format("2006-01-02"),
		TotalUsers: len(users),
	}

	for _, userID := range users {
		portfolio, err := s.repo.GetPortfolio(ctx, userID)
		if err != nil {
			slog.Error("can't load portfolio for daily summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("err", err.Error()))
			continue
		}

		summary.Portfolios = append(summary.Portfolios, buildUserDailySummary(userID, portfolio))
	}

	if err := s.repo.InsertDailySummary(ctx, summary); err != nil {
		slog.Error("can't persist daily summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.DailySummary{}, err
	}

	s.publishReport(ctx, summary)

	slog.Info("GenerateDailySummary completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("portfolios", len(summary.Portfolios)))

	return summary, nil
}

func buildUserDailySummary(userID string, portfolio model.Portfolio) model.UserDailySummary {
	userSummary := model.UserDailySummary{
		UserID:          userID,
		TotalHoldings:   len(portfolio.Securities),
		TotalValue:      portfolio.Summary.TotalValue,
		TotalPnl:        portfolio.Summary.TotalPnl,
		AssetAllocation: make(map[model.SecurityType]decimal.Decimal),
	}

	if len(portfolio.Securities) == 0 {
		return userSummary
	}

	ranked := make([]model.Security, len(portfolio.Securities))
	copy(ranked, portfolio.Securities)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PnlPercentage.GreaterThan(ranked[j].PnlPercentage)
	})

	best := ranked[0]
	worst := ranked[len(ranked)-1]
	userSummary.BestPerformer = &model.Performer{Symbol: best.Symbol, PnlPercentage: best.PnlPercentage}
	userSummary.WorstPerformer = &model.Performer{Symbol: worst.Symbol, PnlPercentage: worst.PnlPercentage}

	for _, sec := range portfolio.Securities {
		userSummary.AssetAllocation[sec.SecurityType] = userSummary.AssetAllocation[sec.SecurityType].Add(sec.MarketValue)
	}

	return userSummary
}

func (s *RefreshService) publishReport(ctx context.Context, summary model.DailySummary) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "RefreshService.publishReport"

	if s.reports == nil || s.cloudStor == nil {
		return
	}

	content, filename, err := s.reports.GenerateDailySummaryReport(summary)
	if err != nil {
		slog.Error("can't generate daily summary report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return
	}

	if err := s.cloudStor.UploadFile(ctx, filename, content); err != nil {
		slog.Error("can't upload daily summary report", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}
