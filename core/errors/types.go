// Package errors implements the error taxonomy shared by the negotiation loop,
// tool dispatch and the provider adapters.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorTier classifies the origin of a failure on an outbound model call.
// Tiers are informational: no retry policy is applied beyond what the hosted
// client library does on its own.
type ErrorTier int

const (
	// TierTransient indicates temporary errors such as network timeouts.
	TierTransient ErrorTier = iota

	// TierPermanent indicates errors that will not resolve by themselves.
	TierPermanent

	// TierUserFixable indicates errors that require user intervention,
	// such as a missing or rejected API key.
	TierUserFixable

	// TierExternalRateLimit indicates rate limiting from the model endpoint.
	TierExternalRateLimit

	// TierExternalDegrading indicates 5xx responses from the model endpoint.
	TierExternalDegrading
)

var tierNames = map[ErrorTier]string{
	TierTransient:         "transient",
	TierPermanent:         "permanent",
	TierUserFixable:       "user_fixable",
	TierExternalRateLimit: "external_rate_limit",
	TierExternalDegrading: "external_degrading",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	StatusCode int
}

// Error implements the error interface.
func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is checks if the target error matches this TieredError's tier.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if errors.As(target, &te) {
		return e.Tier == te.Tier
	}
	return false
}

// NewTieredError creates a new TieredError with the given tier and message.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
	}
}

// WithStatusCode adds an HTTP status code to the error.
func (e *TieredError) WithStatusCode(code int) *TieredError {
	e.StatusCode = code
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Permanent.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierPermanent
}

// Common sentinel errors for each tier.
var (
	ErrTimeout            = NewTieredError(TierTransient, "operation timed out", nil)
	ErrMissingAPIKey      = NewTieredError(TierUserFixable, "missing API key", nil)
	ErrRateLimited        = NewTieredError(TierExternalRateLimit, "rate limited", nil).WithStatusCode(http.StatusTooManyRequests)
	ErrServiceUnavailable = NewTieredError(TierExternalDegrading, "service unavailable", nil).WithStatusCode(http.StatusServiceUnavailable)
)

// WrapWithTier wraps an error with a tier classification, preserving an
// existing tier when err already carries one.
func WrapWithTier(tier ErrorTier, message string, err error) error {
	if err == nil {
		return nil
	}

	var te *TieredError
	if errors.As(err, &te) {
		return &TieredError{
			Tier:       te.Tier,
			Message:    message,
			Underlying: err,
			StatusCode: te.StatusCode,
		}
	}

	return NewTieredError(tier, message, err)
}
