package optics

import (
	"errors"
	"fmt"
)

// Domain errors for transport operations.
var (
	// ErrRigidityUndefined indicates a transfer matrix was requested before
	// the reference rigidity was set.
	ErrRigidityUndefined = errors.New("optics: reference rigidity undefined")

	// ErrInvalidState indicates a phase-space vector containing NaN or Inf.
	ErrInvalidState = errors.New("optics: invalid state (NaN or Inf detected)")

	// ErrExpansionFailure indicates a non-linear element was asked to
	// transform a particle outside its field of validity.
	ErrExpansionFailure = errors.New("optics: expansion parameter out of range")

	// ErrMissingParameter indicates a required element parameter is absent.
	ErrMissingParameter = errors.New("optics: missing parameter")
)

// ConfigurationError reports a missing or invalid element parameter or a
// malformed beamline table. It is fatal at beamline construction.
type ConfigurationError struct {
	Element   string
	Parameter string
	Row       int
	Reason    string
	Wrapped   error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Element != "" {
		msg += fmt.Sprintf(" in element %q", e.Element)
	}
	if e.Parameter != "" {
		msg += fmt.Sprintf(" parameter %q", e.Parameter)
	}
	if e.Row > 0 {
		msg += fmt.Sprintf(" (row %d)", e.Row)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Wrapped
}

// ComputationError wraps a failure to compute an element's transfer matrix.
type ComputationError struct {
	Element  string
	Rigidity float64
	Wrapped  error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("element %q at brho=%g: %v", e.Element, e.Rigidity, e.Wrapped)
}

func (e *ComputationError) Unwrap() error {
	return e.Wrapped
}

// ExpansionError is returned by an element whose truncated-series transform
// is not valid for the particle's amplitude. The tracking engine records it
// as a loss rather than propagating it.
type ExpansionError struct {
	Element   string
	Parameter float64
	Limit     float64
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("element %q: expansion parameter %.4g exceeds limit %.4g", e.Element, e.Parameter, e.Limit)
}

func (e *ExpansionError) Unwrap() error {
	return ErrExpansionFailure
}
