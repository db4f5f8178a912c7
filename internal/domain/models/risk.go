package models

import (
	"fmt"
	"strings"
)

// RiskProfile selects both the class allocation row and the optimizer regularization.
type RiskProfile int

const (
	Conservative RiskProfile = iota + 1
	Balanced
	Aggressive
)

var riskProfileNames = map[RiskProfile]string{
	Conservative: "Conservative",
	Balanced:     "Balanced",
	Aggressive:   "Aggressive",
}

// AllRiskProfiles returns every profile, most conservative first.
func AllRiskProfiles() []RiskProfile {
	return []RiskProfile{Conservative, Balanced, Aggressive}
}

func (p RiskProfile) String() string {
	if s, ok := riskProfileNames[p]; ok {
		return s
	}
	return fmt.Sprintf("RiskProfile(%d)", int(p))
}

// Valid reports whether p is one of the enumerated profiles.
func (p RiskProfile) Valid() bool {
	_, ok := riskProfileNames[p]
	return ok
}

// ParseRiskProfile resolves a profile name case-insensitively.
func ParseRiskProfile(s string) (RiskProfile, error) {
	for p, name := range riskProfileNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRiskProfile, s)
}

func (p RiskProfile) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRiskProfile, int(p))
	}
	return []byte(p.String()), nil
}

func (p *RiskProfile) UnmarshalText(b []byte) error {
	v, err := ParseRiskProfile(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// AssetClass identifies a pool of candidate symbols.
type AssetClass string

const (
	Stocks AssetClass = "stocks"
	Mutual AssetClass = "mutual"
	Crypto AssetClass = "crypto"
	Bonds  AssetClass = "bonds"
	Gold   AssetClass = "gold"
)

// AllAssetClasses returns the classes in report order.
func AllAssetClasses() []AssetClass {
	return []AssetClass{Stocks, Mutual, Crypto, Bonds, Gold}
}

// Valid reports whether c is one of the enumerated classes.
func (c AssetClass) Valid() bool {
	switch c {
	case Stocks, Mutual, Crypto, Bonds, Gold:
		return true
	default:
		return false
	}
}

// ParseAssetClass resolves a class name case-insensitively.
func ParseAssetClass(s string) (AssetClass, error) {
	c := AssetClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return c, nil
}
