package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FinAlloc/internal/domain/models"
)

func TestSelectTop(t *testing.T) {
	in := models.Forecasts{
		{Symbol: "A", PredictedReturn: 0.02},
		{Symbol: "B", PredictedReturn: 0.05},
		{Symbol: "C", PredictedReturn: -0.01},
		{Symbol: "D", PredictedReturn: 0.03},
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"top three", 3, []string{"B", "D", "A"}},
		{"top one", 1, []string{"B"}},
		{"more than available", 10, []string{"B", "D", "A", "C"}},
		{"zero", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectTop(in, tt.n)
			assert.Equal(t, tt.want, got.Symbols())
			assert.LessOrEqual(t, len(got), max(tt.n, 0))
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].PredictedReturn, got[i].PredictedReturn)
			}
		})
	}
	// input is untouched
	assert.Equal(t, []string{"A", "B", "C", "D"}, in.Symbols())
}

func TestSelectTop_TiesKeepInsertionOrder(t *testing.T) {
	in := models.Forecasts{
		{Symbol: "Z", PredictedReturn: 0.01},
		{Symbol: "Y", PredictedReturn: 0.04},
		{Symbol: "X", PredictedReturn: 0.01},
		{Symbol: "W", PredictedReturn: 0.01},
	}
	assert.Equal(t, []string{"Y", "Z", "X"}, SelectTop(in, 3).Symbols())
}
