// Package motionplan turns untimed joint space paths into time optimal, resampled trajectories.
package motionplan

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/totg/logging"
	"go.viam.com/totg/motionplan/blendpath"
	"go.viam.com/totg/motionplan/totg"
	"go.viam.com/totg/referenceframe"
	"go.viam.com/totg/utils"
)

// Waypoint is one configuration of the joints being parameterized, in joint order.
type Waypoint = []referenceframe.Input

// TimedWaypoint is a sample of a time parameterized trajectory.
type TimedWaypoint struct {
	// Time since the start of the trajectory.
	Time float64 `json:"time"`

	// DurationFromPrevious is the time since the previous sample.
	DurationFromPrevious float64 `json:"duration_from_previous"`

	Positions     []referenceframe.Input `json:"positions"`
	Velocities    []float64              `json:"velocities"`
	Accelerations []float64              `json:"accelerations"`
}

// Result is the outcome of a successful time parameterization.
type Result struct {
	Duration   float64
	Waypoints  []TimedWaypoint
	Path       *blendpath.Path
	Trajectory *totg.Trajectory
	MaxVel     []float64
	MaxAcc     []float64
}

// Request is one independent time parameterization, as run by TimeParameterizeAll.
type Request struct {
	Name      string
	Joints    []string
	Waypoints []Waypoint
	Limits    referenceframe.LimitProvider
	Options   Options
}

// ResolveLimits returns the velocity and acceleration bound of each joint, scaled by the options. A
// bound missing from the provider is a configuration error unless the options allow defaults, in
// which case the default is used and a warning is logged.
func ResolveLimits(
	logger logging.Logger,
	provider referenceframe.LimitProvider,
	joints []string,
	opts Options,
) ([]float64, []float64, error) {
	logger = logging.OrBlank(logger, "motionplan")
	velScale, ok := scaleOrOne(opts.VelocityScale)
	if !ok {
		return nil, nil, totg.NewConfigurationError("velocity scale must be in (0, 1], got %v", opts.VelocityScale)
	}
	accScale, ok := scaleOrOne(opts.AccelerationScale)
	if !ok {
		return nil, nil, totg.NewConfigurationError("acceleration scale must be in (0, 1], got %v", opts.AccelerationScale)
	}
	logger.Debugw("resolving joint limits", "velocity_scale", velScale, "acceleration_scale", accScale)

	maxVel := make([]float64, len(joints))
	maxAcc := make([]float64, len(joints))
	var errs error
	for i, joint := range joints {
		var bounds referenceframe.JointBounds
		found := false
		if provider != nil {
			bounds, found = provider.JointBounds(joint)
		}

		if found && bounds.HasVelocity {
			maxVel[i] = bounds.VelocityLimit() * velScale
		} else if opts.AllowDefaultLimits {
			maxVel[i] = DefaultVelocityLimit
			logger.Warnw("using default velocity limit, set one in the URDF or joint_limits.yaml",
				"joint", joint, "limit", DefaultVelocityLimit)
		} else {
			errs = multierr.Append(errs, totg.NewConfigurationError("joint %q has no velocity limit", joint))
		}

		if found && bounds.HasAcceleration {
			maxAcc[i] = bounds.AccelerationLimit() * accScale
		} else if opts.AllowDefaultLimits {
			maxAcc[i] = DefaultAccelerationLimit
			logger.Warnw("using default acceleration limit, set one in joint_limits.yaml",
				"joint", joint, "limit", DefaultAccelerationLimit)
		} else {
			errs = multierr.Append(errs, totg.NewConfigurationError("joint %q has no acceleration limit", joint))
		}
	}
	if errs != nil {
		return nil, nil, errs
	}
	for i, joint := range joints {
		logger.Debugw("joint limits", "joint", joint, "velocity", maxVel[i], "acceleration", maxAcc[i])
	}
	return maxVel, maxAcc, nil
}

// TimeParameterize blends the waypoints into a path and computes the time optimal trajectory along
// it under the joint limits from provider. The waypoints are never modified; when no feasible
// trajectory exists the returned error wraps totg.ErrInfeasibleLimits and no result is returned.
func TimeParameterize(
	ctx context.Context,
	logger logging.Logger,
	waypoints []Waypoint,
	joints []string,
	provider referenceframe.LimitProvider,
	opts Options,
) (*Result, error) {
	logger = logging.OrBlank(logger, "motionplan")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	traj, err := BuildTrajectory(logger, waypoints, joints, provider, opts)
	if err != nil {
		return nil, err
	}
	if !traj.IsValid() {
		return nil, errors.Wrap(traj.Err(), "time parameterization failed")
	}

	timed, err := Resample(traj, opts.ResampleStep)
	if err != nil {
		return nil, err
	}
	logger.Debugf("trajectory duration %.4fs, %d resampled waypoints", traj.Duration(), len(timed))
	return &Result{
		Duration:   traj.Duration(),
		Waypoints:  timed,
		Path:       traj.Path(),
		Trajectory: traj,
		MaxVel:     traj.MaxVelocity(),
		MaxAcc:     traj.MaxAcceleration(),
	}, nil
}

// BuildTrajectory resolves the joint limits, blends the waypoints into a path and integrates the
// time optimal profile along it. A trajectory without a feasible profile is returned without an
// error; check IsValid before querying it.
func BuildTrajectory(
	logger logging.Logger,
	waypoints []Waypoint,
	joints []string,
	provider referenceframe.LimitProvider,
	opts Options,
) (*totg.Trajectory, error) {
	logger = logging.OrBlank(logger, "motionplan")
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for i, wp := range waypoints {
		if len(wp) != len(joints) {
			return nil, blendpath.NewDegenerateInputError("waypoint %d has %d inputs for %d joints", i, len(wp), len(joints))
		}
	}

	maxVel, maxAcc, err := ResolveLimits(logger, provider, joints, opts)
	if err != nil {
		return nil, err
	}

	points := make([][]float64, 0, len(waypoints))
	for _, wp := range waypoints {
		points = append(points, referenceframe.InputsToFloats(wp))
	}
	path, err := blendpath.New(points, opts.BlendTolerance)
	if err != nil {
		return nil, err
	}
	logger.Debugf("blended %d waypoints into %d segments, length %.4f of %.4f", len(waypoints), path.Segments(), path.Length(),
		referenceframe.InputsPathLength(waypoints))

	return totg.New(path, maxVel, maxAcc, opts.TimeStep, logger.Sublogger("totg"))
}

// Resample samples the trajectory every step seconds starting at 0 and always includes the final
// instant, so the samples start and end at rest.
func Resample(traj *totg.Trajectory, step float64) ([]TimedWaypoint, error) {
	if step <= 0 || !utils.IsFinite(step) {
		return nil, totg.NewConfigurationError("resample step must be finite and positive, got %v", step)
	}
	if !traj.IsValid() {
		return nil, totg.NewInvalidTrajectoryError(traj.Err())
	}
	duration := traj.Duration()

	count := int(math.Ceil(duration / step))
	times := make([]float64, 0, count+1)
	for i := 0; float64(i)*step < duration; i++ {
		times = append(times, float64(i)*step)
	}
	// a sample within a hair of the end is replaced by the end itself.
	if n := len(times); n > 1 && utils.Float64AlmostEqual(times[n-1], duration, 1e-9) {
		times = times[:n-1]
	}
	times = append(times, duration)

	samples := make([]TimedWaypoint, 0, len(times))
	prev := 0.0
	for _, t := range times {
		pos, err := traj.Position(t)
		if err != nil {
			return nil, err
		}
		vel, err := traj.Velocity(t)
		if err != nil {
			return nil, err
		}
		acc, err := traj.Acceleration(t)
		if err != nil {
			return nil, err
		}
		samples = append(samples, TimedWaypoint{
			Time:                 t,
			DurationFromPrevious: t - prev,
			Positions:            referenceframe.FloatsToInputs(pos),
			Velocities:           vel,
			Accelerations:        acc,
		})
		prev = t
	}
	return samples, nil
}

// TimeParameterizeAll runs independent requests concurrently. Results are returned in request order;
// any failure fails the batch with every error combined.
func TimeParameterizeAll(ctx context.Context, logger logging.Logger, reqs []Request) ([]*Result, error) {
	logger = logging.OrBlank(logger, "motionplan")
	results, err := utils.GetInParallel(ctx, len(reqs), func(ctx context.Context, i int) (*Result, error) {
		req := reqs[i]
		name := req.Name
		if name == "" {
			name = "request"
		}
		res, err := TimeParameterize(ctx, logger.Sublogger(name), req.Waypoints, req.Joints, req.Limits, req.Options)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", name)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
