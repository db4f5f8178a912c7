package forecast

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
)

func rampWindow(n int) models.PriceWindow {
	w := make(models.PriceWindow, n)
	for i := range w {
		w[i] = float64(i) / float64(n-1)
	}
	return w
}

func zeroWeights(arch Architecture) *Weights {
	g := 4 * arch.HiddenDim
	return &Weights{
		Arch:     arch,
		WeightIH: mat.NewDense(g, arch.InputDim, nil),
		WeightHH: mat.NewDense(g, arch.HiddenDim, nil),
		BiasIH:   mat.NewVecDense(g, nil),
		BiasHH:   mat.NewVecDense(g, nil),
		AttnW:    mat.NewVecDense(arch.HiddenDim, nil),
		FcW:      mat.NewDense(arch.OutputDim, arch.HiddenDim, nil),
		FcB:      mat.NewVecDense(arch.OutputDim, nil),
	}
}

func TestAttentionLSTM_ZeroWeightsYieldBias(t *testing.T) {
	w := zeroWeights(DefaultArchitecture())
	w.FcB.SetVec(0, 0.25)

	m, err := New(w, WithWindow(10))
	require.NoError(t, err)

	y, alpha, err := m.Forward(rampWindow(10))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, y, 1e-12)
	for _, a := range alpha {
		assert.InDelta(t, 0.1, a, 1e-12)
	}
}

func TestAttentionLSTM_SingleUnitByHand(t *testing.T) {
	arch := Architecture{InputDim: 1, HiddenDim: 1, OutputDim: 1}
	w := zeroWeights(arch)
	// only the cell candidate sees the input: g = tanh(x), i=f=o=0.5
	w.WeightIH.Set(2, 0, 1)
	w.FcW.Set(0, 0, 1)

	m, err := New(w, WithWindow(1))
	require.NoError(t, err)

	y, err := m.Predict(models.PriceWindow{1})
	require.NoError(t, err)

	c := 0.5 * tanh(1)
	want := 0.5 * tanh(c)
	assert.InDelta(t, want, y, 1e-12)
}

func TestAttentionLSTM_AttentionIsDistribution(t *testing.T) {
	m, err := New(InitWeights(DefaultArchitecture(), 7))
	require.NoError(t, err)

	_, alpha, err := m.Forward(rampWindow(models.DefaultWindow))
	require.NoError(t, err)
	require.Len(t, alpha, models.DefaultWindow)
	assert.InDelta(t, 1.0, floats.Sum(alpha), 1e-9)
	for _, a := range alpha {
		assert.GreaterOrEqual(t, a, 0.0)
	}
}

func TestAttentionLSTM_Deterministic(t *testing.T) {
	m, err := New(InitWeights(DefaultArchitecture(), 42))
	require.NoError(t, err)
	win := rampWindow(models.DefaultWindow)

	a, err := m.Predict(win)
	require.NoError(t, err)
	b, err := m.Predict(win)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAttentionLSTM_RejectsBadWindow(t *testing.T) {
	m, err := New(InitWeights(DefaultArchitecture(), 1))
	require.NoError(t, err)

	_, err = m.Predict(rampWindow(10))
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	bad := rampWindow(models.DefaultWindow)
	bad[3] = 1.5
	_, err = m.Predict(bad)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestAttentionLSTM_RejectsMultiFeatureInput(t *testing.T) {
	_, err := New(InitWeights(Architecture{InputDim: 2, HiddenDim: 4, OutputDim: 1}, 1))
	assert.ErrorIs(t, err, models.ErrModelLoad)
}

func TestWeights_RoundTrip(t *testing.T) {
	arch := DefaultArchitecture()
	orig := InitWeights(arch, 3)
	path := filepath.Join(t.TempDir(), "model.alstm")
	require.NoError(t, WriteWeights(path, orig))

	loaded, err := LoadWeights(path, arch)
	require.NoError(t, err)

	var first, second bytes.Buffer
	_, err = orig.WriteTo(&first)
	require.NoError(t, err)
	_, err = loaded.WriteTo(&second)
	require.NoError(t, err)
	assert.Equal(t, first.Bytes(), second.Bytes())

	m1, err := New(orig)
	require.NoError(t, err)
	m2, err := Load(path, arch)
	require.NoError(t, err)
	assert.Equal(t, m1.Fingerprint(), m2.Fingerprint())

	win := rampWindow(models.DefaultWindow)
	y1, err := m1.Predict(win)
	require.NoError(t, err)
	y2, err := m2.Predict(win)
	require.NoError(t, err)
	assert.InDelta(t, y1, y2, 1e-4)
}

func TestWeights_FingerprintDiffers(t *testing.T) {
	a, err := New(InitWeights(DefaultArchitecture(), 1))
	require.NoError(t, err)
	b, err := New(InitWeights(DefaultArchitecture(), 2))
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestLoadWeights_Failures(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.alstm")
	require.NoError(t, WriteWeights(good, InitWeights(DefaultArchitecture(), 5)))
	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	badMagic := append([]byte("PTORCH"), raw[6:]...)
	truncated := raw[:len(raw)-10]
	trailing := append(append([]byte{}, raw...), 0, 0, 0, 0)

	cases := []struct {
		name string
		data []byte
		arch Architecture
	}{
		{"dimension mismatch", raw, Architecture{InputDim: 1, HiddenDim: 32, OutputDim: 1}},
		{"bad magic", badMagic, DefaultArchitecture()},
		{"truncated", truncated, DefaultArchitecture()},
		{"trailing bytes", trailing, DefaultArchitecture()},
		{"empty", nil, DefaultArchitecture()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := filepath.Join(dir, tc.name+".alstm")
			require.NoError(t, os.WriteFile(p, tc.data, 0o644))
			_, err := Load(p, tc.arch)
			assert.ErrorIs(t, err, models.ErrModelLoad)
		})
	}

	_, err = Load(filepath.Join(dir, "missing.alstm"), DefaultArchitecture())
	assert.ErrorIs(t, err, models.ErrModelLoad)
}

func tanh(x float64) float64 { return math.Tanh(x) }
