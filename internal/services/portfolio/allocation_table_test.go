package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinAlloc/internal/domain/models"
)

func TestDefaultTable_RowsSumToOne(t *testing.T) {
	table := DefaultTable()
	require.NoError(t, table.Validate())

	for _, p := range models.AllRiskProfiles() {
		sum := 0.0
		for _, cls := range models.AllAssetClasses() {
			f, err := table.Fraction(p, cls)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
			sum += f
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "profile %s", p)
	}
}

func TestTable_ValidateRejectsBadRows(t *testing.T) {
	broken := DefaultTable()
	broken[models.Balanced][models.Gold] = 0.2
	assert.Error(t, broken.Validate())

	missing := DefaultTable()
	delete(missing, models.Aggressive)
	assert.Error(t, missing.Validate())

	negative := DefaultTable()
	negative[models.Conservative][models.Crypto] = -0.05
	negative[models.Conservative][models.Bonds] = 0.45
	assert.Error(t, negative.Validate())
}

func TestTable_ClassAmount(t *testing.T) {
	table := DefaultTable()

	got, err := table.ClassAmount(5000, models.Balanced, models.Stocks)
	require.NoError(t, err)
	assert.Equal(t, 1750.00, got)

	got, err = table.ClassAmount(1000, models.Conservative, models.Bonds)
	require.NoError(t, err)
	assert.Equal(t, 350.00, got)

	_, err = table.ClassAmount(1000, models.RiskProfile(99), models.Bonds)
	assert.ErrorIs(t, err, models.ErrInvalidRiskProfile)
}
