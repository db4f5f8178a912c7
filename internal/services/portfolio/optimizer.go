package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"FinAlloc/internal/domain/models"
)

// RiskAversion maps a profile to the ridge strength of the optimizer.
func RiskAversion(p models.RiskProfile) (float64, error) {
	switch p {
	case models.Conservative:
		return 10, nil
	case models.Balanced:
		return 5, nil
	case models.Aggressive:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %s", models.ErrInvalidRiskProfile, p)
	}
}

// Optimizer solves the ridge-regularized mean-variance system (cov + lambda*I) w = mu
// for long-only weights summing to one.
type Optimizer struct{}

func NewOptimizer() *Optimizer { return &Optimizer{} }

// Optimize returns normalized non-negative weights in the order of mu.
// ErrDegenerateInput is returned when every weight clamps to zero; callers fall back to EqualWeights.
func (o *Optimizer) Optimize(mu []float64, cov mat.Symmetric, profile models.RiskProfile) ([]float64, error) {
	lambda, err := RiskAversion(profile)
	if err != nil {
		return nil, err
	}
	n := len(mu)
	if n == 0 {
		return nil, fmt.Errorf("%w: no expected returns", models.ErrDegenerateInput)
	}
	if cov.SymmetricDim() != n {
		return nil, fmt.Errorf("covariance is %dx%d, want %dx%d", cov.SymmetricDim(), cov.SymmetricDim(), n, n)
	}

	a := mat.NewSymDense(n, nil)
	a.CopySym(cov)
	for i := 0; i < n; i++ {
		a.SetSym(i, i, a.At(i, i)+lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: regularized covariance is not positive definite", models.ErrDegenerateInput)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, mat.NewVecDense(n, append([]float64(nil), mu...))); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = max(0, w.AtVec(i))
	}
	sum := floats.Sum(out)
	if sum <= 0 {
		return nil, fmt.Errorf("%w: all %d weights clamped to zero", models.ErrDegenerateInput, n)
	}
	floats.Scale(1/sum, out)
	return out, nil
}

// EqualWeights returns n weights of 1/n.
func EqualWeights(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}
