package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"FinAlloc/internal/domain/models"
	domrepo "FinAlloc/internal/domain/repository"
	applogger "FinAlloc/pkg/logger"
)

// CSVPriceHistory reads <root>/<class-dir>/<SYMBOL>.csv files. Each file needs
// a header row with a Close column; rows are in chronological order.
type CSVPriceHistory struct {
	root string
	l    *applogger.Logger
}

var _ domrepo.PriceHistory = (*CSVPriceHistory)(nil)

func NewCSVPriceHistory(root string) *CSVPriceHistory {
	return &CSVPriceHistory{root: root, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (h *CSVPriceHistory) SetLogger(l *applogger.Logger) { h.l = l }

func (h *CSVPriceHistory) LoadClass(ctx context.Context, class models.AssetClass, window int) ([]models.Asset, error) {
	dirName, ok := classDirs[class]
	if !ok {
		return nil, fmt.Errorf("unknown asset class %q", class)
	}
	dir := filepath.Join(h.root, dirName)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no history folder %s", models.ErrInsufficientData, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read history dir: %w", err)
	}

	series := make(map[string][]float64, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		symbol := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		cs, err := readCloses(path)
		if err != nil {
			h.l.Warn("csv history skipped",
				applogger.String("class", string(class)),
				applogger.String("file", path),
				applogger.Error(err),
			)
			continue
		}
		if cs.dropped > 0 {
			// a gap inside the trailing window shifts it onto older rows
			inWindow := cs.lastBad >= cs.rows-window
			h.l.Warn("csv history has unparsable closes",
				applogger.String("class", string(class)),
				applogger.String("file", path),
				applogger.Int("dropped", cs.dropped),
				applogger.Int("last_bad_row", cs.lastBad+1),
				applogger.Bool("skipped", inWindow),
			)
			if inWindow {
				continue
			}
		}
		series[symbol] = cs.closes
	}

	assets := buildAssets(h.l, class, series, window)
	h.l.Debug("csv history loaded",
		applogger.String("class", string(class)),
		applogger.Int("files", len(series)),
		applogger.Int("assets", len(assets)),
	)
	return assets, nil
}

func (h *CSVPriceHistory) Close() error { return nil }

// closeSeries is the Close column of one file. Rows are counted from the
// first data row; lastBad is -1 when every row parsed.
type closeSeries struct {
	closes  []float64
	rows    int
	dropped int
	lastBad int
}

// readCloses returns the Close column. Blank or non-numeric cells are dropped
// and counted.
func readCloses(path string) (closeSeries, error) {
	out := closeSeries{lastBad: -1}
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return out, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), "close") {
			col = i
			break
		}
	}
	if col < 0 {
		return out, errors.New("no Close column")
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read row: %w", err)
		}
		row := out.rows
		out.rows++
		if col >= len(rec) {
			out.dropped++
			out.lastBad = row
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
		if err != nil || math.IsNaN(v) {
			out.dropped++
			out.lastBad = row
			continue
		}
		out.closes = append(out.closes, v)
	}
	return out, nil
}
