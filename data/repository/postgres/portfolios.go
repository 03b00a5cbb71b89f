package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/portfolio-engine/data/repository"
	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
)

func (r *Postgres) UpsertPortfolio(ctx context.Context, userID string, portfolio model.Portfolio) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertPortfolio"
	query := `
		INSERT INTO portfolios(user_id, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at
	`

	slog.Debug("UpsertPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("UpsertPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	doc, err := json.Marshal(portfolio)
	if err != nil {
		return fmt.Errorf("marshal portfolio doc: %w", err)
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, doc)
	return err
}

func (r *Postgres) GetPortfolio(ctx context.Context, userID string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfolio"
	query := `SELECT doc FROM portfolios WHERE user_id = $1`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var doc []byte
	err = r.txOrDb(ctx).QueryRowContext(ctx, query, userID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, repository.ErrNotFound
		}
		return model.Portfolio{}, err
	}

	if err = json.Unmarshal(doc, &portfolio); err != nil {
		return model.Portfolio{}, fmt.Errorf("unmarshal portfolio doc: %w", err)
	}

	return portfolio, nil
}

func (r *Postgres) GetUserIDsWithPortfolios(ctx context.Context) (userIDs []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserIDsWithPortfolios"
	query := `SELECT user_id FROM portfolios ORDER BY user_id`

	slog.Debug("GetUserIDsWithPortfolios start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetUserIDsWithPortfolios failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserIDsWithPortfolios completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).SelectContext(ctx, &userIDs, query)
	if err != nil {
		return nil, err
	}

	return userIDs, nil
}

func (r *Postgres) InsertRefreshLog(ctx context.Context, log model.RefreshLog) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertRefreshLog"
	query := `
		INSERT INTO refresh_logs(user_id, refresh_type, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	slog.Debug("InsertRefreshLog start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", log.UserID))
	defer func() {
		if err != nil {
			slog.Error("InsertRefreshLog failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertRefreshLog completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, log.UserID, log.RefreshType, log.Status, log.Error, log.Timestamp)
	return err
}

func (r *Postgres) InsertDailySummary(ctx context.Context, summary model.DailySummary) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertDailySummary"
	query := `
		INSERT INTO daily_summaries(summary_date, doc, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (summary_date) DO UPDATE SET
			doc = EXCLUDED.doc,
			created_at = EXCLUDED.created_at
	`

	slog.Debug("InsertDailySummary start", slog.String("rqID", rqID), slog.String("op", op), slog.String("date", summary.Date))
	defer func() {
		if err != nil {
			slog.Error("InsertDailySummary failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertDailySummary completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	doc, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal daily summary doc: %w", err)
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, summary.Date, doc)
	return err
}

func (r *Postgres) UpdateSystemRefreshTimestamp(ctx context.Context, ts time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateSystemRefreshTimestamp"
	query := `
		INSERT INTO system_metrics(metric, value_ts, updated_at)
		VALUES ('last_portfolio_refresh', $1, now())
		ON CONFLICT (metric) DO UPDATE SET
			value_ts = EXCLUDED.value_ts,
			updated_at = EXCLUDED.updated_at
	`

	slog.Debug("UpdateSystemRefreshTimestamp start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("UpdateSystemRefreshTimestamp failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateSystemRefreshTimestamp completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, ts)
	return err
}

func (r *Postgres) getHoldingDocs(ctx context.Context, op, query, userID string) (holdings []model.RawHolding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug(op+" completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err = rows.Scan(&doc); err != nil {
			return nil, err
		}

		holding := model.RawHolding{}
		if err = json.Unmarshal(doc, &holding); err != nil {
			return nil, fmt.Errorf("unmarshal holding doc: %w", err)
		}
		holdings = append(holdings, holding)
	}

	return holdings, rows.Err()
}

func (r *Postgres) GetManualHoldings(ctx context.Context, userID string) ([]model.RawHolding, error) {
	query := `SELECT doc FROM manual_holdings WHERE user_id = $1 ORDER BY id`
	return r.getHoldingDocs(ctx, "Postgres.GetManualHoldings", query, userID)
}

func (r *Postgres) GetStatementHoldings(ctx context.Context, userID string) ([]model.RawHolding, error) {
	query := `SELECT doc FROM statement_holdings WHERE user_id = $1 ORDER BY id`
	return r.getHoldingDocs(ctx, "Postgres.GetStatementHoldings", query, userID)
}
