package totg

import (
	"github.com/pkg/errors"

	"go.viam.com/totg/motionplan/blendpath"
)

var (
	// ErrInvalidConfiguration is shared with blendpath so callers can test for one configuration error kind.
	ErrInvalidConfiguration = blendpath.ErrInvalidConfiguration

	// ErrInfeasibleLimits means no speed profile respecting the limits exists. It is reported through
	// Trajectory.Err rather than returned from New.
	ErrInfeasibleLimits = errors.New("infeasible limits")

	// ErrOutOfDomain is returned when a trajectory is queried outside [0, Duration()].
	ErrOutOfDomain = errors.New("time outside trajectory domain")

	// ErrInvalidTrajectory is returned when an invalid trajectory is queried.
	ErrInvalidTrajectory = errors.New("trajectory is not valid")
)

// NewConfigurationError is used when the path, limits or step passed to New are unusable.
func NewConfigurationError(format string, args ...interface{}) error {
	return blendpath.NewConfigurationError(format, args...)
}

// NewInfeasibleLimitsError is used when the phase plane sweep cannot produce a profile.
func NewInfeasibleLimitsError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInfeasibleLimits, format, args...)
}

// NewDomainError is used when a query time falls outside the trajectory.
func NewDomainError(t, duration float64) error {
	return errors.Wrapf(ErrOutOfDomain, "time %v is outside [0, %v]", t, duration)
}

// NewInvalidTrajectoryError is used when a query is made on a trajectory that failed to build.
func NewInvalidTrajectoryError(cause error) error {
	if cause == nil {
		return ErrInvalidTrajectory
	}
	return errors.Wrap(ErrInvalidTrajectory, cause.Error())
}
