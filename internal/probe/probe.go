// Package probe acquires single location fixes from a device sensor.
package probe

import (
	"context"
	"errors"
	"fmt"
)

// Code classifies why a fix could not be obtained.
type Code string

const (
	// CodeUnsupported means the device has no location capability.
	CodeUnsupported Code = "UNSUPPORTED"
	// CodePermissionDenied means the worker declined the location permission.
	CodePermissionDenied Code = "PERMISSION_DENIED"
	// CodeTimeout means no fix arrived within the caller's deadline.
	CodeTimeout Code = "TIMEOUT"
	// CodeUnavailable covers transient sensor or transport failures.
	CodeUnavailable Code = "UNAVAILABLE"
)

// Fix is a single location-sensor reading.
type Fix struct {
	Latitude  float64
	Longitude float64
}

// Error is a classified probe failure.
type Error struct {
	Code Code
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location probe %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("location probe %s", e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the probe failure code from err, or CodeUnavailable when
// err is not a probe error.
func CodeOf(err error) Code {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeUnavailable
}

// Probe acquires a single high-accuracy location fix. Implementations are
// single-shot: they never retry internally, and they honor cancellation and
// deadlines through ctx. Any retry policy belongs to the caller.
type Probe interface {
	Acquire(ctx context.Context) (Fix, error)
}
