package models

import "errors"

var (
	// ErrModelLoad is returned when stored weights do not match the declared architecture.
	ErrModelLoad = errors.New("model load failed")
	// ErrInsufficientData means a class or asset has no usable price history.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput means the optimizer clamped every weight to zero.
	ErrDegenerateInput = errors.New("degenerate optimizer input")
	// ErrInvalidRiskProfile rejects malformed requests before any computation.
	ErrInvalidRiskProfile = errors.New("invalid risk profile")
	// ErrInvalidAmount rejects non-positive savings amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)
