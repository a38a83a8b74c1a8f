package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Structural errors abort the offending call
	ErrInvalidHistogram  = errors.New("invalid histogram")
	ErrShapeMismatch     = errors.New("histogram shape mismatch")
	ErrMissingHistogram  = errors.New("required histogram is missing")
	ErrNotTwoDimensional = errors.New("histogram is not two-dimensional")
	ErrInvalidParam      = errors.New("invalid fit parameter index")

	// Fit errors are recovered by the slice fitters
	ErrFitFailed = errors.New("gaussian fit failed")

	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

// NewShapeMismatchError reports the first axis whose bin count differs.
func NewShapeMismatchError(axis string, a, b int) error {
	return fmt.Errorf("%w: %s axis has %d bins vs %d", ErrShapeMismatch, axis, a, b)
}

// NewDimensionMismatchError reports histograms of different dimensionality.
func NewDimensionMismatchError(a, b int) error {
	return fmt.Errorf("%w: %dD vs %dD", ErrShapeMismatch, a, b)
}

func NewInvalidHistogramError(name string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidHistogram, name, reason)
}

func NewMissingHistogramError(role string) error {
	return fmt.Errorf("%w: %s", ErrMissingHistogram, role)
}

func NewFitError(reason string) error {
	return fmt.Errorf("%w: %s", ErrFitFailed, reason)
}

func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPreconditionError reports programmer errors: bad shapes, missing or
// malformed inputs. These are never recovered by substitution.
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrInvalidHistogram) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrMissingHistogram) ||
		errors.Is(err, ErrNotTwoDimensional) ||
		errors.Is(err, ErrInvalidParam)
}

func IsFitError(err error) bool {
	return errors.Is(err, ErrFitFailed)
}
