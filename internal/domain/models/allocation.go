package models

import (
	"time"

	"github.com/google/uuid"
)

// AllocationRule names how a class amount is split across its top assets.
type AllocationRule string

const (
	RuleExpTilt   AllocationRule = "exp_tilt"
	RuleMarkowitz AllocationRule = "markowitz"
	RuleSingle    AllocationRule = "single"
	RuleEqual     AllocationRule = "equal"
)

// AssetAllocation is the dollar amount assigned to one symbol.
type AssetAllocation struct {
	Symbol          string  `json:"symbol"`
	PredictedReturn float64 `json:"predicted_return"`
	Weight          float64 `json:"weight"`
	Amount          float64 `json:"amount"`
}

// AllocationResult is the outcome for one asset class.
type AllocationResult struct {
	Class       AssetClass        `json:"class"`
	TotalAmount float64           `json:"total_amount"`
	PerAsset    []AssetAllocation `json:"per_asset"`
	Rule        AllocationRule    `json:"rule"`
	Volatility  *float64          `json:"volatility,omitempty"`
}

// Amounts returns symbol -> dollar amount.
func (r AllocationResult) Amounts() map[string]float64 {
	out := make(map[string]float64, len(r.PerAsset))
	for _, a := range r.PerAsset {
		out[a.Symbol] = a.Amount
	}
	return out
}

// InvestmentPlan aggregates per-class results of one pipeline run.
// Classes missing from Allocations had no allocation possible; Errors says why.
type InvestmentPlan struct {
	ID          uuid.UUID                       `json:"id"`
	Amount      float64                         `json:"amount"`
	RiskProfile RiskProfile                     `json:"risk_profile"`
	CreatedAt   time.Time                       `json:"created_at"`
	Allocations map[AssetClass]AllocationResult `json:"allocations"`
	Errors      map[AssetClass]string           `json:"errors,omitempty"`
}

// ClassOutcome is emitted as soon as one class finishes.
type ClassOutcome struct {
	Class  AssetClass        `json:"class"`
	Result *AllocationResult `json:"result,omitempty"`
	Err    error             `json:"-"`
}
