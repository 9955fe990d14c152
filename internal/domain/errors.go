package domain

import (
	"errors"
)

var (
	// ErrProvider signals a failed or timed out call to a model provider.
	ErrProvider = errors.New("model provider error")
	// ErrMalformedOutput signals model output that could not be parsed or validated.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrGuardViolation signals a generated statement rejected by the SQL guard.
	ErrGuardViolation = errors.New("guard violation")
	// ErrRetrieval signals a failed catalog load, query execution or vector search.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrSynthesis signals that answer generation failed on every path.
	ErrSynthesis = errors.New("synthesis failed")
	// ErrDeliveryFailed signals a callback event that exhausted its retries.
	ErrDeliveryFailed = errors.New("delivery failed")
	// ErrInvalidCallback signals an unusable callback endpoint.
	ErrInvalidCallback = errors.New("invalid callback endpoint")
	// ErrInvalidQuestion signals a run request that cannot be processed.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrOverloaded signals that no worker is free to accept a new run.
	ErrOverloaded = errors.New("overloaded")
)

// Failure codes reported in the terminal event of a failed run.
const (
	FailureSynthesis = "synthesis_failed"
	FailureDelivery  = "delivery_failed"
	FailureInternal  = "internal_error"
)

// FailureCode maps a run error to the fixed code sent to the collaborator.
// Internal error text never leaves the process.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrDeliveryFailed):
		return FailureDelivery
	case errors.Is(err, ErrSynthesis):
		return FailureSynthesis
	default:
		return FailureInternal
	}
}

// Fallback returns v when err is nil and def when err matches one of kinds.
// Any other error propagates unchanged.
func Fallback[T any](v T, err error, def T, kinds ...error) (T, error) {
	if err == nil {
		return v, nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return def, nil
		}
	}
	return v, err
}
