package blendpath

import "github.com/pkg/errors"

var (
	// ErrDegenerateInput is returned when the waypoints do not describe a path with positive length.
	ErrDegenerateInput = errors.New("degenerate waypoints")

	// ErrInfeasibleBlend is returned when a corner cannot be smoothed within the requested tolerance.
	ErrInfeasibleBlend = errors.New("infeasible blend")

	// ErrInvalidConfiguration is returned for non-positive, non-finite or mismatched parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// NewDegenerateInputError is used when fewer than two distinct, well formed waypoints remain.
func NewDegenerateInputError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDegenerateInput, format, args...)
}

// NewInfeasibleBlendError is used when the corner at the given waypoint index cannot be blended.
func NewInfeasibleBlendError(waypoint int, reason string) error {
	return errors.Wrapf(ErrInfeasibleBlend, "cannot blend corner at waypoint %d: %s", waypoint, reason)
}

// NewConfigurationError is used when a numeric parameter is out of its allowed range.
func NewConfigurationError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}
