package portfolio

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"FinAlloc/internal/domain/models"
)

// Table maps a risk profile to the fraction of savings each class receives.
type Table map[models.RiskProfile]map[models.AssetClass]float64

const tableTolerance = 1e-9

// DefaultTable is the shipped allocation policy.
func DefaultTable() Table {
	return Table{
		models.Conservative: {
			models.Stocks: 0.20,
			models.Mutual: 0.20,
			models.Crypto: 0.05,
			models.Bonds:  0.35,
			models.Gold:   0.20,
		},
		models.Balanced: {
			models.Stocks: 0.35,
			models.Mutual: 0.25,
			models.Crypto: 0.15,
			models.Bonds:  0.15,
			models.Gold:   0.10,
		},
		models.Aggressive: {
			models.Stocks: 0.45,
			models.Mutual: 0.15,
			models.Crypto: 0.25,
			models.Bonds:  0.05,
			models.Gold:   0.10,
		},
	}
}

// Validate checks that every profile row is in [0,1] and sums to one.
func (t Table) Validate() error {
	for _, p := range models.AllRiskProfiles() {
		row, ok := t[p]
		if !ok {
			return fmt.Errorf("allocation table: missing profile %s", p)
		}
		sum := 0.0
		for cls, f := range row {
			if !cls.Valid() {
				return fmt.Errorf("allocation table: %s has unknown class %q", p, cls)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("allocation table: %s/%s fraction %v outside [0,1]", p, cls, f)
			}
			sum += f
		}
		if math.Abs(sum-1) > tableTolerance {
			return fmt.Errorf("allocation table: %s sums to %v", p, sum)
		}
	}
	return nil
}

// Fraction returns the share of savings for class under profile.
func (t Table) Fraction(profile models.RiskProfile, class models.AssetClass) (float64, error) {
	row, ok := t[profile]
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrInvalidRiskProfile, profile)
	}
	return row[class], nil
}

// ClassAmount returns amount*fraction rounded to cents.
func (t Table) ClassAmount(amount float64, profile models.RiskProfile, class models.AssetClass) (float64, error) {
	f, err := t.Fraction(profile, class)
	if err != nil {
		return 0, err
	}
	v, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(f)).Round(2).Float64()
	return v, nil
}
