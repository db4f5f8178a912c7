package portfolio

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"FinAlloc/internal/domain/models"
)

// StabilizerOption configures CovarianceStabilizer.
type StabilizerOption func(*StabilizerConfig)

// StabilizerConfig holds covariance regularization settings.
type StabilizerConfig struct {
	// Floor is added to the diagonal after shrinkage.
	Floor float64
}

// WithDiagonalFloor sets the ridge added after shrinkage.
func WithDiagonalFloor(eps float64) StabilizerOption {
	return func(c *StabilizerConfig) {
		c.Floor = eps
	}
}

// CovarianceStabilizer estimates a well-conditioned covariance from the
// historical simple returns of a class.
type CovarianceStabilizer struct {
	cfg StabilizerConfig
}

func NewCovarianceStabilizer(opts ...StabilizerOption) *CovarianceStabilizer {
	cfg := StabilizerConfig{Floor: 1e-8}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CovarianceStabilizer{cfg: cfg}
}

// Stabilize returns the shrunk covariance of the assets' returns, in asset order.
func (s *CovarianceStabilizer) Stabilize(assets []models.Asset) (*mat.SymDense, error) {
	cov, _, err := s.Estimate(assets)
	return cov, err
}

// Estimate is Stabilize plus the shrinkage intensity that was applied.
func (s *CovarianceStabilizer) Estimate(assets []models.Asset) (*mat.SymDense, float64, error) {
	n := len(assets)
	if n == 0 {
		return nil, 0, fmt.Errorf("%w: no assets", models.ErrInsufficientData)
	}
	t := len(assets[0].Returns)
	for _, a := range assets {
		if len(a.Returns) != t {
			return nil, 0, fmt.Errorf("%w: %s has %d returns, want %d", models.ErrInsufficientData, a.Symbol, len(a.Returns), t)
		}
	}
	if t < 2 {
		return nil, 0, fmt.Errorf("%w: need at least 2 return observations, got %d", models.ErrInsufficientData, t)
	}

	x := mat.NewDense(t, n, nil)
	for j, a := range assets {
		for i, r := range a.Returns {
			x.Set(i, j, r)
		}
	}
	cov, delta := LedoitWolf(x)
	for i := 0; i < n; i++ {
		cov.SetSym(i, i, cov.At(i, i)+s.cfg.Floor)
	}
	return cov, delta, nil
}

// LedoitWolf shrinks the sample covariance of x (observations in rows)
// toward mu*I where mu is the average variance. The intensity follows
// Ledoit and Wolf (2004) and is clamped to [0,1].
func LedoitWolf(x *mat.Dense) (*mat.SymDense, float64) {
	t, n := x.Dims()
	var sample mat.SymDense
	stat.CovarianceMatrix(&sample, x, nil)

	mu := 0.0
	for i := 0; i < n; i++ {
		mu += sample.At(i, i)
	}
	mu /= float64(n)

	// d2 = ||S - mu I||^2 / n
	d2 := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := sample.At(i, j)
			if i == j {
				v -= mu
			}
			d2 += v * v
		}
	}
	d2 /= float64(n)

	// b2 = (1/T^2) sum_t ||x_t x_t' - S||^2 / n over demeaned rows
	means := make([]float64, n)
	for j := 0; j < n; j++ {
		means[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	b2 := 0.0
	row := make([]float64, n)
	for k := 0; k < t; k++ {
		for j := 0; j < n; j++ {
			row[j] = x.At(k, j) - means[j]
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := row[i]*row[j] - sample.At(i, j)
				b2 += v * v
			}
		}
	}
	b2 /= float64(n) * float64(t) * float64(t)

	delta := 1.0
	if d2 > 0 {
		delta = min(b2, d2) / d2
	}
	delta = max(0, min(1, delta))

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := (1 - delta) * sample.At(i, j)
			if i == j {
				v += delta * mu
			}
			out.SetSym(i, j, v)
		}
	}
	return out, delta
}

// SubCovariance extracts the rows and columns listed in idx, in that order.
func SubCovariance(cov mat.Symmetric, idx []int) *mat.SymDense {
	out := mat.NewSymDense(len(idx), nil)
	for a, i := range idx {
		for b := a; b < len(idx); b++ {
			out.SetSym(a, b, cov.At(i, idx[b]))
		}
	}
	return out
}

// Volatility returns sqrt(w' cov w).
func Volatility(w []float64, cov mat.Symmetric) float64 {
	v := mat.NewVecDense(len(w), append([]float64(nil), w...))
	q := mat.Inner(v, cov, v)
	if q < 0 {
		return 0
	}
	return math.Sqrt(q)
}
