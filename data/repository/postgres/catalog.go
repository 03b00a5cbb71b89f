package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/portfolio-engine/internal/model"
	"github.com/portfolio-engine/utils"
)

func (r *Postgres) getCatalogDocs(ctx context.Context, op, query string) (records []model.CatalogRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug(op+" start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug(op+" completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err = rows.Scan(&doc); err != nil {
			return nil, err
		}

		record := model.CatalogRecord{}
		if err = json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("unmarshal catalog doc: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

func (r *Postgres) GetInstruments(ctx context.Context) ([]model.CatalogRecord, error) {
	query := `SELECT doc FROM instruments ORDER BY symbol`
	return r.getCatalogDocs(ctx, "Postgres.GetInstruments", query)
}

func (r *Postgres) GetFunds(ctx context.Context) ([]model.CatalogRecord, error) {
	query := `SELECT doc FROM funds ORDER BY isin`
	return r.getCatalogDocs(ctx, "Postgres.GetFunds", query)
}
