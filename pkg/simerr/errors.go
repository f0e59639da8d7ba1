package simerr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reason is a short machine-readable code attached to aborted runs
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonValidation  Reason = "validation"
	ReasonOutOfBounds Reason = "out_of_bounds"
	ReasonNonPhysical Reason = "non_physical"
	ReasonTimeout     Reason = "timeout"
	ReasonCancelled   Reason = "cancelled"
	ReasonInternal    Reason = "internal"
)

// ValidationError reports a bad input parameter detected before a run starts
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// Invalid is shorthand for building a ValidationError
func Invalid(field string, value interface{}, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// OutOfBoundsError reports a query outside the atmospheric data envelope.
// Min and Max describe the covered range on the offending axis.
type OutOfBoundsError struct {
	Axis  string
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s %g outside covered range [%g, %g]", e.Axis, e.Value, e.Min, e.Max)
}

// NonPhysicalStateError reports a state or sample the dynamics cannot handle,
// such as vanishing density or a non-finite velocity
type NonPhysicalStateError struct {
	Quantity string
	Value    float64
	Reason   string
}

func (e *NonPhysicalStateError) Error() string {
	return fmt.Sprintf("non-physical %s %g: %s", e.Quantity, e.Value, e.Reason)
}

// RunTimeoutError reports that a run exceeded its simulated-time or step ceiling
type RunTimeoutError struct {
	Elapsed time.Duration
	Ceiling time.Duration
	Steps   int
}

func (e *RunTimeoutError) Error() string {
	if e.Ceiling > 0 && e.Elapsed > e.Ceiling {
		return fmt.Sprintf("descent still airborne after %s of simulated time (ceiling %s); check the descent profile", e.Elapsed, e.Ceiling)
	}
	return fmt.Sprintf("descent still airborne after %d steps (%s simulated)", e.Steps, e.Elapsed)
}

// Classify maps an error onto its reason code
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}

	var (
		validation  *ValidationError
		outOfBounds *OutOfBoundsError
		nonPhysical *NonPhysicalStateError
		timeout     *RunTimeoutError
	)
	switch {
	case errors.As(err, &validation):
		return ReasonValidation
	case errors.As(err, &outOfBounds):
		return ReasonOutOfBounds
	case errors.As(err, &nonPhysical):
		return ReasonNonPhysical
	case errors.As(err, &timeout):
		return ReasonTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	default:
		return ReasonInternal
	}
}

// IsRunFatal reports whether err should abort only the current run rather
// than the whole session
func IsRunFatal(err error) bool {
	switch Classify(err) {
	case ReasonOutOfBounds, ReasonNonPhysical, ReasonTimeout:
		return true
	default:
		return false
	}
}
