package forecast

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
	domsvc "FinAlloc/internal/domain/service"
)

// AttentionLSTM is a single-layer LSTM whose hidden states are pooled by a
// learned softmax attention and projected to one scalar. Weights are never
// mutated after construction, so one instance is shared by all goroutines.
type AttentionLSTM struct {
	w           *Weights
	bias        *mat.VecDense // bias_ih + bias_hh
	window      int
	fingerprint string
}

var _ domsvc.SequencePredictor = (*AttentionLSTM)(nil)

// New builds a predictor from in-memory weights.
func New(w *Weights, opts ...ModelOption) (*AttentionLSTM, error) {
	cfg := defaultModelConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", cfg.Window)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if w.Arch.InputDim != 1 {
		return nil, fmt.Errorf("%w: price windows carry one feature, weights expect %d", models.ErrModelLoad, w.Arch.InputDim)
	}
	if w.Arch.OutputDim != 1 {
		return nil, fmt.Errorf("%w: %v (output dim %d)", models.ErrModelLoad, errNotScalar, w.Arch.OutputDim)
	}

	h := sha256.New()
	if _, err := w.WriteTo(h); err != nil {
		return nil, fmt.Errorf("fingerprint weights: %w", err)
	}

	bias := mat.NewVecDense(4*w.Arch.HiddenDim, nil)
	bias.AddVec(w.BiasIH, w.BiasHH)

	return &AttentionLSTM{
		w:           w,
		bias:        bias,
		window:      cfg.Window,
		fingerprint: hex.EncodeToString(h.Sum(nil))[:16],
	}, nil
}

// Load reads a weights file and builds a predictor for arch.
func Load(path string, arch Architecture, opts ...ModelOption) (*AttentionLSTM, error) {
	w, err := LoadWeights(path, arch)
	if err != nil {
		return nil, err
	}
	return New(w, opts...)
}

func (m *AttentionLSTM) WindowSize() int { return m.window }

// Fingerprint identifies the loaded weights; equal weights give equal fingerprints.
func (m *AttentionLSTM) Fingerprint() string { return m.fingerprint }

// Predict returns the scalar forecast for one window.
func (m *AttentionLSTM) Predict(window models.PriceWindow) (float64, error) {
	y, _, err := m.Forward(window)
	if err != nil {
		return 0, err
	}
	return y, nil
}

// Forward runs the full pass and also returns the attention weights over timesteps.
func (m *AttentionLSTM) Forward(window models.PriceWindow) (float64, []float64, error) {
	if err := window.Validate(m.window); err != nil {
		return 0, nil, err
	}
	hidden := m.encode(window)

	scores := make([]float64, len(hidden))
	for t, ht := range hidden {
		scores[t] = mat.Dot(m.w.AttnW, ht) + m.w.AttnB
	}
	alpha := softmax(scores)

	hd := m.w.Arch.HiddenDim
	context := mat.NewVecDense(hd, nil)
	for t, ht := range hidden {
		context.AddScaledVec(context, alpha[t], ht)
	}

	out := mat.NewVecDense(m.w.Arch.OutputDim, nil)
	out.MulVec(m.w.FcW, context)
	out.AddVec(out, m.w.FcB)
	return out.AtVec(0), alpha, nil
}

// encode returns the hidden state after every timestep, starting from h0=c0=0.
// Gate rows are laid out input, forget, cell, output.
func (m *AttentionLSTM) encode(window models.PriceWindow) []*mat.VecDense {
	hd := m.w.Arch.HiddenDim
	h := mat.NewVecDense(hd, nil)
	c := make([]float64, hd)
	gates := mat.NewVecDense(4*hd, nil)
	rec := mat.NewVecDense(4*hd, nil)
	wih := m.w.WeightIH.ColView(0)

	out := make([]*mat.VecDense, len(window))
	for t, x := range window {
		rec.MulVec(m.w.WeightHH, h)
		gates.AddScaledVec(m.bias, x, wih)
		gates.AddVec(gates, rec)

		g := gates.RawVector().Data
		next := make([]float64, hd)
		for j := 0; j < hd; j++ {
			i := sigmoid(g[j])
			f := sigmoid(g[hd+j])
			cc := math.Tanh(g[2*hd+j])
			o := sigmoid(g[3*hd+j])
			c[j] = f*c[j] + i*cc
			next[j] = o * math.Tanh(c[j])
		}
		h = mat.NewVecDense(hd, next)
		out[t] = h
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// softmax is max-shifted so large scores cannot overflow.
func softmax(s []float64) []float64 {
	out := make([]float64, len(s))
	if len(s) == 0 {
		return out
	}
	mx := floats.Max(s)
	for i, v := range s {
		out[i] = math.Exp(v - mx)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
