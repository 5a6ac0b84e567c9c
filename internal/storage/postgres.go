package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"carscout/internal/valuation"
)

const createResultsTable = `
CREATE TABLE IF NOT EXISTS listing_results (
	id                  BIGSERIAL PRIMARY KEY,
	rank                INTEGER NOT NULL,
	listing_id          TEXT,
	title               TEXT,
	price               DOUBLE PRECISION NOT NULL,
	predicted_price     DOUBLE PRECISION NOT NULL,
	price_diff_pct      DOUBLE PRECISION NOT NULL,
	price_diff_vs_error DOUBLE PRECISION,
	vfm_score           DOUBLE PRECISION,
	recommendation      TEXT NOT NULL,
	mileage             DOUBLE PRECISION,
	months_on_road      DOUBLE PRECISION,
	months_to_test      DOUBLE PRECISION,
	url                 TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertResult = `
INSERT INTO listing_results (
	rank, listing_id, title, price, predicted_price, price_diff_pct,
	price_diff_vs_error, vfm_score, recommendation, mileage,
	months_on_road, months_to_test, url
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// PostgresWriter persists ranked results to a PostgreSQL table, creating
// the table on first use.
type PostgresWriter struct {
	conn   *pgx.Conn
	count  int
	logger *slog.Logger
}

// NewPostgresWriter connects and ensures the results table exists.
func NewPostgresWriter(dsn string, logger *slog.Logger) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := conn.Exec(ctx, createResultsTable); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("ensure results table: %w", err)
	}

	return &PostgresWriter{
		conn:   conn,
		logger: logger.With("component", "postgres_writer"),
	}, nil
}

func (w *PostgresWriter) Name() string { return "postgres" }

func (w *PostgresWriter) Write(listings []*valuation.EvaluatedListing) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, ev := range listings {
		w.count++
		batch.Queue(insertResult,
			w.count,
			nullable(ev.Row.ListingID),
			nullable(ev.Row.Title),
			ev.Row.Price,
			ev.PredictedPrice,
			ev.PriceDiffPct,
			ev.PriceDiffVsError,
			ev.VFMScore,
			ev.Recommendation,
			ev.Row.Mileage,
			ev.Row.MonthsOnRoad,
			ev.Row.MonthsToTest,
			ev.Row.URL,
		)
	}

	res := w.conn.SendBatch(ctx, batch)
	if err := res.Close(); err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	w.logger.Debug("results stored", "count", len(listings), "total", w.count)
	return nil
}

func (w *PostgresWriter) Close() error {
	w.logger.Info("postgres writer closing", "total", w.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return w.conn.Close(ctx)
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
