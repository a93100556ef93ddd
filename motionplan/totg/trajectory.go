// Package totg computes time optimal trajectories along blended paths under per joint velocity and
// acceleration bounds, using a forward/backward sweep in the phase plane of path position and path
// velocity.
package totg

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/totg/logging"
	"go.viam.com/totg/motionplan/blendpath"
	"go.viam.com/totg/utils"
)

// Trajectory is a time parameterization of a Path. It is immutable after New and safe for concurrent queries.
type Trajectory struct {
	path   *blendpath.Path
	curves *limitCurves
	step   float64

	steps     []PhasePoint
	switching []PhasePoint
	err       error
}

// New computes the time optimal trajectory along path. maxVel and maxAcc hold one non-negative bound
// per path dimension and step is the integration time step.
//
// Unusable arguments are returned as an error. A trajectory that cannot satisfy the bounds is not an
// error: it is returned with IsValid() == false and the reason in Err().
func New(path *blendpath.Path, maxVel, maxAcc []float64, step float64, logger logging.Logger) (*Trajectory, error) {
	logger = logging.OrBlank(logger, "totg")
	if err := validateArgs(path, maxVel, maxAcc, step); err != nil {
		return nil, err
	}

	traj := &Trajectory{
		path: path,
		curves: &limitCurves{
			path:   path,
			maxVel: append([]float64(nil), maxVel...),
			maxAcc: append([]float64(nil), maxAcc...),
		},
		step: step,
	}
	if err := traj.build(); err != nil {
		traj.err = err
		traj.steps = nil
		logger.Warnw("trajectory is not valid", "error", err, "length", path.Length())
		return traj, nil
	}
	logger.Debugw("built trajectory",
		"duration", traj.Duration(),
		"breakpoints", len(traj.steps),
		"switching_points", len(traj.switching),
		"length", path.Length(),
	)
	return traj, nil
}

func validateArgs(path *blendpath.Path, maxVel, maxAcc []float64, step float64) error {
	if path == nil {
		return NewConfigurationError("path is nil")
	}
	if step <= 0 || !utils.IsFinite(step) {
		return NewConfigurationError("time step must be a finite, positive number, got %v", step)
	}
	dim := path.Dimension()
	if len(maxVel) != dim || len(maxAcc) != dim {
		return NewConfigurationError("expected %d velocity and acceleration bounds, got %d and %d", dim, len(maxVel), len(maxAcc))
	}
	for i := range maxVel {
		if maxVel[i] < 0 || !utils.IsFinite(maxVel[i]) {
			return NewConfigurationError("velocity bound for axis %d must be finite and non-negative, got %v", i, maxVel[i])
		}
		if maxAcc[i] < 0 || !utils.IsFinite(maxAcc[i]) {
			return NewConfigurationError("acceleration bound for axis %d must be finite and non-negative, got %v", i, maxAcc[i])
		}
	}
	return nil
}

// checkLockedAxes fails when an axis with a zero bound has to move.
func (traj *Trajectory) checkLockedAxes() error {
	waypoints := traj.path.Waypoints()
	for i := range traj.curves.maxVel {
		if traj.curves.maxVel[i] > 0 && traj.curves.maxAcc[i] > 0 {
			continue
		}
		for _, wp := range waypoints[1:] {
			if wp[i] != waypoints[0][i] {
				return NewInfeasibleLimitsError("axis %d has a zero velocity or acceleration bound but the path moves along it", i)
			}
		}
	}
	return nil
}

func (traj *Trajectory) build() error {
	if err := traj.checkLockedAxes(); err != nil {
		return err
	}
	sv := newSolver(traj.curves, traj.step)
	length := traj.path.Length()

	profile := []PhasePoint{{}}
	acc := sv.pathAcceleration(0, 0, true)
	lastSwitch := math.Inf(-1)
	for {
		var reachedEnd bool
		var err error
		profile, reachedEnd, err = sv.integrateForward(profile, acc)
		if err != nil {
			return err
		}
		if reachedEnd {
			break
		}
		sp, ok := sv.nextSwitchingPoint(profile[len(profile)-1].PathPosition)
		if !ok {
			break
		}
		if sp.PathPosition <= lastSwitch {
			return NewInfeasibleLimitsError("switching point search stalled at s=%v", sp.PathPosition)
		}
		lastSwitch = sp.PathPosition
		traj.switching = append(traj.switching, sp.PhasePoint)

		profile, err = integrateBackward(profile, sp.PathPosition, sp.PathVelocity, sp.before, sv.dt, sv.deceleration)
		if err != nil {
			return err
		}
		acc = sp.after
	}

	profile, err := integrateBackward(profile, length, 0, sv.pathAcceleration(length, 0, false), sv.dt, sv.deceleration)
	if err != nil {
		return err
	}
	traj.steps, err = timeProfile(profile)
	return err
}

// IsValid returns whether a feasible profile covering the whole path was found.
func (traj *Trajectory) IsValid() bool {
	return traj.err == nil
}

// Err returns why the trajectory is not valid, wrapping ErrInfeasibleLimits, or nil.
func (traj *Trajectory) Err() error {
	return traj.err
}

// Duration returns the total time of the trajectory, or 0 if it is not valid.
func (traj *Trajectory) Duration() float64 {
	if !traj.IsValid() {
		return 0
	}
	return traj.steps[len(traj.steps)-1].Time
}

// Path returns the path being parameterized.
func (traj *Trajectory) Path() *blendpath.Path {
	return traj.path
}

// MaxVelocity returns the joint velocity bounds the trajectory was built with.
func (traj *Trajectory) MaxVelocity() []float64 {
	return append([]float64(nil), traj.curves.maxVel...)
}

// MaxAcceleration returns the joint acceleration bounds the trajectory was built with.
func (traj *Trajectory) MaxAcceleration() []float64 {
	return append([]float64(nil), traj.curves.maxAcc...)
}

// Steps returns the time ordered breakpoints of the profile.
func (traj *Trajectory) Steps() []PhasePoint {
	return append([]PhasePoint(nil), traj.steps...)
}

// SwitchingPoints returns the phase plane switching points the profile passes through.
func (traj *Trajectory) SwitchingPoints() []PhasePoint {
	return append([]PhasePoint(nil), traj.switching...)
}

// LimitCurves samples the velocity and acceleration limit curves every ds along the path.
func (traj *Trajectory) LimitCurves(ds float64) []LimitSample {
	return traj.curves.sample(ds)
}

// sample returns the path position, velocity and acceleration at time t. Inside a breakpoint
// interval the path acceleration is constant.
func (traj *Trajectory) sample(t float64) (float64, float64, float64, error) {
	if !traj.IsValid() {
		return 0, 0, 0, NewInvalidTrajectoryError(traj.err)
	}
	duration := traj.Duration()
	if math.IsNaN(t) || t < 0 || t > duration {
		return 0, 0, 0, NewDomainError(t, duration)
	}

	i := sort.Search(len(traj.steps), func(i int) bool { return traj.steps[i].Time > t })
	if i >= len(traj.steps) {
		i = len(traj.steps) - 1
	}
	if i < 1 {
		i = 1
	}
	prev, next := traj.steps[i-1], traj.steps[i]

	dt := next.Time - prev.Time
	acc := 2 * (next.PathPosition - prev.PathPosition - dt*prev.PathVelocity) / (dt * dt)
	dt = t - prev.Time
	s := prev.PathPosition + dt*prev.PathVelocity + 0.5*dt*dt*acc
	v := prev.PathVelocity + dt*acc
	return utils.Clamp(s, 0, traj.path.Length()), math.Max(v, 0), acc, nil
}

// PathPosition returns the arc length reached at time t.
func (traj *Trajectory) PathPosition(t float64) (float64, error) {
	s, _, _, err := traj.sample(t)
	return s, err
}

// PathVelocity returns the arc length rate at time t.
func (traj *Trajectory) PathVelocity(t float64) (float64, error) {
	_, v, _, err := traj.sample(t)
	return v, err
}

// Position returns the joint positions at time t.
func (traj *Trajectory) Position(t float64) ([]float64, error) {
	s, _, _, err := traj.sample(t)
	if err != nil {
		return nil, err
	}
	return traj.path.Position(s), nil
}

// Velocity returns the joint velocities at time t.
func (traj *Trajectory) Velocity(t float64) ([]float64, error) {
	s, v, _, err := traj.sample(t)
	if err != nil {
		return nil, err
	}
	vel := traj.path.Tangent(s)
	floats.Scale(v, vel)
	return vel, nil
}

// Acceleration returns the joint accelerations at time t.
func (traj *Trajectory) Acceleration(t float64) ([]float64, error) {
	s, v, a, err := traj.sample(t)
	if err != nil {
		return nil, err
	}
	acc := traj.path.Tangent(s)
	floats.Scale(a, acc)
	floats.AddScaled(acc, v*v, traj.path.SecondDerivative(s))
	return acc, nil
}
