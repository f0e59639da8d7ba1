package simerr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ReasonNone},
		{"validation", Invalid("mass", -1.0, "must be positive"), ReasonValidation},
		{"wrapped bounds", fmt.Errorf("sample: %w", &OutOfBoundsError{Axis: "latitude", Value: 89.9, Min: -85, Max: 85}), ReasonOutOfBounds},
		{"non physical", &NonPhysicalStateError{Quantity: "density", Value: 0}, ReasonNonPhysical},
		{"timeout", &RunTimeoutError{Elapsed: time.Hour, Ceiling: time.Minute}, ReasonTimeout},
		{"cancelled", fmt.Errorf("ensemble: %w", context.Canceled), ReasonCancelled},
		{"other", errors.New("boom"), ReasonInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRunFatal(t *testing.T) {
	if !IsRunFatal(&OutOfBoundsError{Axis: "time"}) {
		t.Error("out of bounds should abort the run")
	}
	if IsRunFatal(Invalid("runs", 0, "must be positive")) {
		t.Error("validation errors belong to session setup")
	}
}

func TestErrorMessages(t *testing.T) {
	err := Invalid("release.altitude", -5.0, "must be above ground level %g m", 0.0)
	if !strings.Contains(err.Error(), "release.altitude") {
		t.Errorf("message should name the field: %s", err)
	}

	timeout := &RunTimeoutError{Elapsed: 13 * time.Hour, Ceiling: 12 * time.Hour}
	if !strings.Contains(timeout.Error(), "ceiling") {
		t.Errorf("unexpected timeout message: %s", timeout)
	}

	steps := &RunTimeoutError{Elapsed: time.Minute, Steps: 10}
	if !strings.Contains(steps.Error(), "10 steps") {
		t.Errorf("unexpected step budget message: %s", steps)
	}
}
