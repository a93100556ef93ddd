package motionplan

import (
	"go.uber.org/multierr"

	"go.viam.com/totg/motionplan/totg"
	"go.viam.com/totg/utils"
)

const (
	// DefaultBlendTolerance is the default maximum deviation of a blend from the corner it smooths.
	DefaultBlendTolerance = 0.1

	// DefaultTimeStep is the default integration time step of the phase plane sweep, in seconds.
	DefaultTimeStep = 0.001

	// DefaultResampleStep is the default time between resampled waypoints, in seconds.
	DefaultResampleStep = 0.025

	// DefaultVelocityLimit is substituted for a missing joint velocity bound when AllowDefaultLimits is set.
	DefaultVelocityLimit = 1.0

	// DefaultAccelerationLimit is substituted for a missing joint acceleration bound when AllowDefaultLimits is set.
	DefaultAccelerationLimit = 1.0
)

// Options are the caller facing knobs of time parameterization.
type Options struct {
	// BlendTolerance is the largest distance, in joint space, a blend may pass from a waypoint.
	BlendTolerance float64 `json:"blend_tolerance"`
	// TimeStep is the integration step used to compute the profile.
	TimeStep float64 `json:"time_step"`
	// ResampleStep is the time between the waypoints of the resampled trajectory.
	ResampleStep float64 `json:"resample_step"`

	// VelocityScale and AccelerationScale scale every joint bound. Zero means 1.
	VelocityScale     float64 `json:"velocity_scale"`
	AccelerationScale float64 `json:"acceleration_scale"`

	// AllowDefaultLimits substitutes DefaultVelocityLimit and DefaultAccelerationLimit, with a warning,
	// for joints without bounds instead of failing.
	AllowDefaultLimits bool `json:"allow_default_limits"`
}

// DefaultOptions returns the options used when a request sets none.
func DefaultOptions() Options {
	return Options{
		BlendTolerance:    DefaultBlendTolerance,
		TimeStep:          DefaultTimeStep,
		ResampleStep:      DefaultResampleStep,
		VelocityScale:     1,
		AccelerationScale: 1,
	}
}

// Validate returns every problem with the options, combined.
func (o Options) Validate() error {
	var errs error
	if o.BlendTolerance < 0 || !utils.IsFinite(o.BlendTolerance) {
		errs = multierr.Append(errs, totg.NewConfigurationError("blend tolerance must be finite and non-negative, got %v", o.BlendTolerance))
	}
	if o.TimeStep <= 0 || !utils.IsFinite(o.TimeStep) {
		errs = multierr.Append(errs, totg.NewConfigurationError("time step must be finite and positive, got %v", o.TimeStep))
	}
	if o.ResampleStep <= 0 || !utils.IsFinite(o.ResampleStep) {
		errs = multierr.Append(errs, totg.NewConfigurationError("resample step must be finite and positive, got %v", o.ResampleStep))
	}
	if _, ok := scaleOrOne(o.VelocityScale); !ok {
		errs = multierr.Append(errs, totg.NewConfigurationError("velocity scale must be in (0, 1], got %v", o.VelocityScale))
	}
	if _, ok := scaleOrOne(o.AccelerationScale); !ok {
		errs = multierr.Append(errs, totg.NewConfigurationError("acceleration scale must be in (0, 1], got %v", o.AccelerationScale))
	}
	return errs
}

// scaleOrOne maps an unset scale to 1 and reports whether scale is usable.
func scaleOrOne(scale float64) (float64, bool) {
	if scale == 0 {
		return 1, true
	}
	if scale < 0 || scale > 1 || !utils.IsFinite(scale) {
		return 0, false
	}
	return scale, true
}
