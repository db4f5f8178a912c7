package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	applogger "FinAlloc/pkg/logger"
)

const sqlitePriceSchema = `
CREATE TABLE IF NOT EXISTS prices (
  class  TEXT    NOT NULL,
  symbol TEXT    NOT NULL,
  ts     INTEGER NOT NULL,
  close  REAL    NOT NULL,
  PRIMARY KEY (class, symbol, ts)
)`

// PricePoint is one close of one symbol.
type PricePoint struct {
	Class  models.AssetClass
	Symbol string
	Time   time.Time
	Close  float64
}

// SQLitePriceHistory reads closes from a local SQLite file.
type SQLitePriceHistory struct {
	db *sql.DB
	l  *applogger.Logger
}

var _ domrepo.PriceHistory = (*SQLitePriceHistory)(nil)

// OpenSQLitePriceHistory opens (creating if needed) the database at path.
func OpenSQLitePriceHistory(path string) (*SQLitePriceHistory, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps in-memory databases shared across queries
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqlitePriceSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLitePriceHistory{db: db, l: applogger.Nop()}, nil
}

// SetLogger injects a structured logger.
func (h *SQLitePriceHistory) SetLogger(l *applogger.Logger) { h.l = l }

func (h *SQLitePriceHistory) LoadClass(ctx context.Context, class models.AssetClass, window int) ([]models.Asset, error) {
	start := time.Now()
	rows, err := h.db.QueryContext(ctx,
		`SELECT symbol, close FROM prices WHERE class = ? ORDER BY symbol, ts`, string(class))
	if err != nil {
		h.l.Error("sqlite load_class query error",
			applogger.String("class", string(class)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	series := map[string][]float64{}
	for rows.Next() {
		var sym string
		var c float64
		if err := rows.Scan(&sym, &c); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		series[sym] = append(series[sym], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	assets := buildAssets(h.l, class, series, window)
	h.l.Debug("sqlite load_class ok",
		applogger.String("class", string(class)),
		applogger.Int("symbols", len(series)),
		applogger.Int("assets", len(assets)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return assets, nil
}

// Import upserts points in one transaction.
func (h *SQLitePriceHistory) Import(ctx context.Context, points []PricePoint) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO prices(class, symbol, ts, close) VALUES (?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, string(p.Class), p.Symbol, p.Time.Unix(), p.Close); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s: %w", p.Symbol, err)
		}
	}
	return tx.Commit()
}

func (h *SQLitePriceHistory) Close() error {
	return h.db.Close()
}
