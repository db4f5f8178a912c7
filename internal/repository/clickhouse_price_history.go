package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	pkgch "FinAlloc/pkg/clickhouse"
	applogger "FinAlloc/pkg/logger"
)

// ClickHousePriceSchema creates the daily close table read by CHPriceHistory.
func ClickHousePriceSchema(table string) []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            class  LowCardinality(String),
            symbol LowCardinality(String),
            t      DateTime,
            c      Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (class, symbol, t)
    `, table)}
}

// CHPriceHistory implements PriceHistory backed by ClickHouse.
type CHPriceHistory struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.PriceHistory = (*CHPriceHistory)(nil)

func NewCHPriceHistory(ch *pkgch.Client, table string) *CHPriceHistory {
	return &CHPriceHistory{ch: ch, db: ch.DB(), table: table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHPriceHistory) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHPriceHistory) LoadClass(ctx context.Context, class models.AssetClass, window int) ([]models.Asset, error) {
	start := time.Now()
	// newest `window` closes per symbol; reversed to chronological order below
	const qtpl = `
        SELECT symbol, c
        FROM %s FINAL
        WHERE class = ?
        ORDER BY symbol ASC, t DESC
        LIMIT ? BY symbol
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(class), window)
	if err != nil {
		s.l.Error("clickhouse load_class query error",
			applogger.String("table", s.table),
			applogger.String("class", string(class)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	series := map[string][]float64{}
	for rows.Next() {
		var sym string
		var c float64
		if err := rows.Scan(&sym, &c); err != nil {
			s.l.Error("clickhouse load_class scan error",
				applogger.String("table", s.table),
				applogger.String("class", string(class)),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("scan close: %w", err)
		}
		series[sym] = append(series[sym], c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	for sym, cs := range series {
		for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
			cs[i], cs[j] = cs[j], cs[i]
		}
		series[sym] = cs
	}

	assets := buildAssets(s.l, class, series, window)
	s.l.Info("clickhouse load_class ok",
		applogger.String("table", s.table),
		applogger.String("class", string(class)),
		applogger.Int("symbols", len(series)),
		applogger.Int("assets", len(assets)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return assets, nil
}

// Close closes the underlying client.
func (s *CHPriceHistory) Close() error { return s.ch.Close() }
