package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"FinAlloc/internal/domain/models"
)

var validate = validator.New()

// PrepareInvestRequest applies defaults, validates req and resolves its profile.
// Failures wrap ErrInvalidAmount or ErrInvalidRiskProfile.
func PrepareInvestRequest(ctx context.Context, req *models.InvestRequest) (models.RiskProfile, error) {
	if err := defaults.Set(req); err != nil {
		return 0, fmt.Errorf("apply defaults: %w", err)
	}
	req.Normalize()
	if err := validate.StructCtx(ctx, req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			switch ve[0].StructField() {
			case "Amount":
				return 0, fmt.Errorf("%w: got %v", models.ErrInvalidAmount, req.Amount)
			case "RiskProfile":
				return 0, fmt.Errorf("%w: %q", models.ErrInvalidRiskProfile, req.RiskProfile)
			}
		}
		return 0, err
	}
	return models.ParseRiskProfile(req.RiskProfile)
}
