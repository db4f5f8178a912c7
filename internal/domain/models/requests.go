package models

// Requests and responses of the investment plan endpoints. The response shape
// matches the plan contract consumed by the web client.

type InvestRequest struct {
	Amount      float64 `json:"amount" query:"amount" validate:"required,gt=0"`
	RiskProfile string  `json:"risk_profile" query:"risk_profile" default:"Balanced" validate:"oneof=Conservative Balanced Aggressive"`
}

// Normalize canonicalizes the risk profile spelling so validation is case-insensitive.
func (r *InvestRequest) Normalize() {
	if p, err := ParseRiskProfile(r.RiskProfile); err == nil {
		r.RiskProfile = p.String()
	}
}

type ClassAllocationView struct {
	Allocation float64            `json:"allocation"`
	TopAssets  map[string]float64 `json:"top_assets"`
}

type InvestResponse struct {
	PlanID      string                         `json:"plan_id"`
	Amount      float64                        `json:"amount"`
	RiskProfile string                         `json:"risk_profile"`
	Allocations map[string]ClassAllocationView `json:"allocations"`
	Skipped     map[string]string              `json:"skipped,omitempty"`
}

// NewInvestResponse flattens a plan into the wire contract.
func NewInvestResponse(p *InvestmentPlan) InvestResponse {
	resp := InvestResponse{
		PlanID:      p.ID.String(),
		Amount:      p.Amount,
		RiskProfile: p.RiskProfile.String(),
		Allocations: make(map[string]ClassAllocationView, len(p.Allocations)),
	}
	for cls, r := range p.Allocations {
		resp.Allocations[string(cls)] = ClassAllocationView{
			Allocation: r.TotalAmount,
			TopAssets:  r.Amounts(),
		}
	}
	if len(p.Errors) > 0 {
		resp.Skipped = make(map[string]string, len(p.Errors))
		for cls, e := range p.Errors {
			resp.Skipped[string(cls)] = e
		}
	}
	return resp
}

// PlanRequestMessage is the payload of an asynchronous plan request.
type PlanRequestMessage struct {
	RequestID   string  `json:"request_id"`
	Amount      float64 `json:"amount"`
	RiskProfile string  `json:"risk_profile"`
}

// PlanResultMessage is published once a plan has been computed (or rejected).
type PlanResultMessage struct {
	RequestID string          `json:"request_id"`
	Plan      *InvestResponse `json:"plan,omitempty"`
	Error     string          `json:"error,omitempty"`
}
