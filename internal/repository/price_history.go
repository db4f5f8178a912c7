package repository

import (
	"sort"

	"FinAlloc/internal/domain/models"
	"FinAlloc/internal/services/features"
	applogger "FinAlloc/pkg/logger"
)

// classDirs maps each class to its folder under the CSV history root.
var classDirs = map[models.AssetClass]string{
	models.Stocks: "stocks",
	models.Mutual: "mutual-funds",
	models.Crypto: "crypto",
	models.Bonds:  "bonds",
	models.Gold:   "gold",
}

// ClassDir returns the CSV folder name of class.
func ClassDir(class models.AssetClass) string {
	return classDirs[class]
}

// buildAssets converts chronological close series into assets sorted by
// symbol. Series shorter than window are skipped and logged.
func buildAssets(l *applogger.Logger, class models.AssetClass, series map[string][]float64, window int) []models.Asset {
	symbols := make([]string, 0, len(series))
	for s := range series {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	out := make([]models.Asset, 0, len(symbols))
	for _, sym := range symbols {
		a, err := features.BuildAsset(sym, class, series[sym], window)
		if err != nil {
			l.Debug("symbol skipped",
				applogger.String("class", string(class)),
				applogger.String("symbol", sym),
				applogger.Int("closes", len(series[sym])),
				applogger.Int("window", window),
				applogger.Error(err),
			)
			continue
		}
		out = append(out, a)
	}
	return out
}
