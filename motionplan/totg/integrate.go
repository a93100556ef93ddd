package totg

import (
	"math"
)

const (
	// velocitySwitchingStep is the arc length step used to scan the velocity limit curve for switching points.
	velocitySwitchingStep = 0.001
	// velocitySwitchingAccuracy is the bisection width at which a velocity switching point is accepted.
	velocitySwitchingAccuracy = 1e-6
)

// PhasePoint is one breakpoint of the time optimal profile in the (path position, path velocity) plane.
type PhasePoint struct {
	PathPosition float64
	PathVelocity float64
	Time         float64
}

// switchingPoint is a point on a limit curve at which the profile must switch from decelerating to
// accelerating, with the extremal accelerations on either side of it.
type switchingPoint struct {
	PhasePoint
	before float64
	after  float64
}

type solver struct {
	*limitCurves
	dt              float64
	discontinuities []float64
}

func newSolver(curves *limitCurves, dt float64) *solver {
	sv := &solver{limitCurves: curves, dt: dt}
	for _, sp := range curves.path.SwitchingPoints() {
		if sp.Discontinuity {
			sv.discontinuities = append(sv.discontinuities, sp.S)
		}
	}
	return sv
}

// integrateForward extends profile at maximum acceleration until it reaches the end of the path
// (true) or runs into a limit curve it cannot follow (false).
func (sv *solver) integrateForward(profile []PhasePoint, acc float64) ([]PhasePoint, bool, error) {
	length := sv.path.Length()
	last := profile[len(profile)-1]
	s, v := last.PathPosition, last.PathVelocity
	next := 0

	for {
		for next < len(sv.discontinuities) && sv.discontinuities[next] <= s {
			next++
		}
		nextDiscontinuity := math.Inf(1)
		if next < len(sv.discontinuities) {
			nextDiscontinuity = sv.discontinuities[next]
		}

		oldS, oldV := s, v
		v += sv.dt * acc
		s += sv.dt * 0.5 * (oldV + v)

		// never step over a curvature jump; the limit curves are only piecewise smooth.
		if s > nextDiscontinuity {
			v = oldV + (nextDiscontinuity-oldS)*(v-oldV)/(s-oldS)
			s = nextDiscontinuity
		}

		if s > length {
			return append(profile, PhasePoint{PathPosition: s, PathVelocity: v}), true, nil
		}
		if v < 0 {
			return nil, false, NewInfeasibleLimitsError("path velocity became negative (%v) at s=%v while accelerating", v, s)
		}
		if s <= oldS {
			return nil, false, NewInfeasibleLimitsError("no path acceleration is possible at s=%v", s)
		}
		if sv.velocityLimit(s) <= 0 {
			return nil, false, NewInfeasibleLimitsError("velocity limit is not positive at s=%v", s)
		}

		if v > sv.velocityLimit(s) && sv.phaseSlope(oldS, sv.velocityLimit(oldS), false) <= sv.velocityLimitSlope(oldS) {
			v = sv.velocityLimit(s)
		}

		profile = append(profile, PhasePoint{PathPosition: s, PathVelocity: v})
		acc = sv.pathAcceleration(s, v, true)

		if !sv.exceeds(s, v) {
			continue
		}

		// bisect for the intersection with the limit curve.
		after := profile[len(profile)-1]
		profile = profile[:len(profile)-1]
		before := profile[len(profile)-1]
		for after.PathPosition-before.PathPosition > eps {
			mid := PhasePoint{
				PathPosition: 0.5 * (before.PathPosition + after.PathPosition),
				PathVelocity: 0.5 * (before.PathVelocity + after.PathVelocity),
			}
			if mid.PathVelocity > sv.velocityLimit(mid.PathPosition) &&
				sv.phaseSlope(before.PathPosition, sv.velocityLimit(before.PathPosition), false) <= sv.velocityLimitSlope(before.PathPosition) {
				mid.PathVelocity = sv.velocityLimit(mid.PathPosition)
			}
			if sv.exceeds(mid.PathPosition, mid.PathVelocity) {
				after = mid
			} else {
				before = mid
			}
		}
		profile = append(profile, before)

		if sv.accelerationLimit(after.PathPosition) < sv.velocityLimit(after.PathPosition) {
			if after.PathPosition > nextDiscontinuity {
				return profile, false, nil
			}
			if sv.phaseSlope(before.PathPosition, before.PathVelocity, true) > sv.accelerationLimitSlope(before.PathPosition) {
				return profile, false, nil
			}
		} else if sv.phaseSlope(before.PathPosition, before.PathVelocity, false) > sv.velocityLimitSlope(before.PathPosition) {
			return profile, false, nil
		}
	}
}

// integrateBackward integrates from (s, v) toward the start of the path at the rate given by
// deceleration, starting with acc, until the curve meets the forward profile. The forward profile
// is cut at the intersection and the backward curve is appended to it. profile is not modified.
func integrateBackward(
	profile []PhasePoint,
	s, v, acc, dt float64,
	deceleration func(s, v float64) float64,
) ([]PhasePoint, error) {
	if len(profile) < 2 {
		return nil, NewInfeasibleLimitsError("cannot integrate backward into a profile of %d points", len(profile))
	}
	startS := s
	i1, i2 := len(profile)-2, len(profile)-1

	// backward holds the new points in order of decreasing path position.
	var backward []PhasePoint
	var slope float64
	for i1 > 0 || s >= 0 {
		if profile[i1].PathPosition <= s {
			front := PhasePoint{PathPosition: s, PathVelocity: v}
			backward = append(backward, front)
			v -= dt * acc
			s -= dt * 0.5 * (v + front.PathVelocity)
			acc = deceleration(s, v)
			slope = (front.PathVelocity - v) / (front.PathPosition - s)

			if v < 0 {
				return nil, NewInfeasibleLimitsError("path velocity became negative (%v) at s=%v while decelerating", v, s)
			}
			if s >= front.PathPosition {
				return nil, NewInfeasibleLimitsError("no path deceleration is possible at s=%v", front.PathPosition)
			}
		} else {
			if i1 == 0 {
				break
			}
			i1--
			i2--
		}
		if len(backward) == 0 {
			continue
		}

		start1, start2 := profile[i1], profile[i2]
		front := backward[len(backward)-1]
		startSlope := (start2.PathVelocity - start1.PathVelocity) / (start2.PathPosition - start1.PathPosition)
		x := (start1.PathVelocity - v + slope*s - startSlope*start1.PathPosition) / (slope - startSlope)
		if math.Max(start1.PathPosition, s)-eps <= x && x <= eps+math.Min(start2.PathPosition, front.PathPosition) {
			spliced := make([]PhasePoint, 0, i2+1+len(backward))
			spliced = append(spliced, profile[:i2]...)
			spliced = append(spliced, PhasePoint{
				PathPosition: x,
				PathVelocity: start1.PathVelocity + startSlope*(x-start1.PathPosition),
			})
			for j := len(backward) - 1; j >= 0; j-- {
				spliced = append(spliced, backward[j])
			}
			return spliced, nil
		}
	}
	return nil, NewInfeasibleLimitsError("deceleration from s=%v does not meet the acceleration profile", startS)
}

// nextSwitchingPoint returns the first point after s at which the profile must leave a limit curve,
// or false when the end of the path is reached first.
func (sv *solver) nextSwitchingPoint(s float64) (switchingPoint, bool) {
	length := sv.path.Length()

	accPoint := switchingPoint{PhasePoint: PhasePoint{PathPosition: s}}
	accFound := false
	for {
		candidate, ok := sv.nextAccelerationSwitchingPoint(accPoint.PathPosition)
		if !ok {
			break
		}
		accPoint = candidate
		if candidate.PathVelocity <= sv.velocityLimit(candidate.PathPosition) {
			accFound = true
			break
		}
	}
	accBound := length
	if accFound {
		accBound = accPoint.PathPosition
	}

	velPoint := switchingPoint{PhasePoint: PhasePoint{PathPosition: s}}
	velFound := false
	for {
		candidate, ok := sv.nextVelocitySwitchingPoint(velPoint.PathPosition)
		if !ok {
			break
		}
		velPoint = candidate
		if candidate.PathPosition > accBound ||
			(candidate.PathVelocity <= sv.accelerationLimit(candidate.PathPosition-eps) &&
				candidate.PathVelocity <= sv.accelerationLimit(candidate.PathPosition+eps)) {
			velFound = true
			break
		}
	}

	switch {
	case !accFound && !velFound:
		return switchingPoint{}, false
	case accFound && (!velFound || accPoint.PathPosition <= velPoint.PathPosition):
		return accPoint, true
	default:
		return velPoint, true
	}
}

// nextAccelerationSwitchingPoint searches the path switching points after s for one where the
// acceleration limit curve is a sink for the forward profile.
func (sv *solver) nextAccelerationSwitchingPoint(s float64) (switchingPoint, bool) {
	length := sv.path.Length()
	for {
		sp := sv.path.NextSwitchingPoint(s)
		s = sp.S
		if s > length-eps {
			return switchingPoint{}, false
		}

		if sp.Discontinuity {
			beforeVel := sv.accelerationLimit(s - eps)
			afterVel := sv.accelerationLimit(s + eps)
			v := math.Min(beforeVel, afterVel)
			if math.IsInf(v, 1) {
				continue
			}
			beforeAcc := sv.pathAcceleration(s-eps, v, false)
			afterAcc := sv.pathAcceleration(s+eps, v, true)

			if (beforeVel > afterVel || sv.phaseSlope(s-eps, v, false) > sv.accelerationLimitSlope(s-2*eps)) &&
				(beforeVel < afterVel || sv.phaseSlope(s+eps, v, true) < sv.accelerationLimitSlope(s+2*eps)) {
				return switchingPoint{
					PhasePoint: PhasePoint{PathPosition: s, PathVelocity: v},
					before:     beforeAcc,
					after:      afterAcc,
				}, true
			}
			continue
		}

		// a tangent component crosses zero inside an arc: a switching point where the acceleration
		// limit curve has a local minimum.
		if sv.accelerationLimitSlope(s-eps) < 0 && sv.accelerationLimitSlope(s+eps) > 0 {
			return switchingPoint{
				PhasePoint: PhasePoint{PathPosition: s, PathVelocity: sv.accelerationLimit(s)},
			}, true
		}
	}
}

// nextVelocitySwitchingPoint scans the velocity limit curve after s for the point where its slope
// first exceeds the maximum deceleration slope.
func (sv *solver) nextVelocitySwitchingPoint(s float64) (switchingPoint, bool) {
	length := sv.path.Length()
	trapped := func(s float64) bool {
		return sv.phaseSlope(s, sv.velocityLimit(s), false) > sv.velocityLimitSlope(s)
	}

	// first find where the deceleration slope reaches the curve slope, then where it drops below it.
	started := false
	s -= velocitySwitchingStep
	for {
		s += velocitySwitchingStep
		slope, curveSlope := sv.phaseSlope(s, sv.velocityLimit(s), false), sv.velocityLimitSlope(s)
		if slope >= curveSlope {
			started = true
		}
		if (started && slope <= curveSlope) || s >= length {
			break
		}
	}
	if s >= length {
		return switchingPoint{}, false
	}

	before, after := s-velocitySwitchingStep, s
	for after-before > velocitySwitchingAccuracy {
		mid := 0.5 * (before + after)
		if trapped(mid) {
			before = mid
		} else {
			after = mid
		}
	}
	return switchingPoint{
		PhasePoint: PhasePoint{PathPosition: after, PathVelocity: sv.velocityLimit(after)},
		before:     sv.pathAcceleration(before, sv.velocityLimit(before), false),
		after:      sv.pathAcceleration(after, sv.velocityLimit(after), true),
	}, true
}

// timeProfile assigns times to the profile by trapezoidal integration of 1/v. Points that do not
// advance along the path are dropped in favor of the later ones so time is strictly increasing.
func timeProfile(profile []PhasePoint) ([]PhasePoint, error) {
	if len(profile) == 0 {
		return nil, NewInfeasibleLimitsError("empty profile")
	}
	steps := make([]PhasePoint, 0, len(profile))
	steps = append(steps, PhasePoint{PathPosition: profile[0].PathPosition, PathVelocity: profile[0].PathVelocity})
	for _, p := range profile[1:] {
		for len(steps) > 1 && p.PathPosition <= steps[len(steps)-1].PathPosition {
			steps = steps[:len(steps)-1]
		}
		prev := steps[len(steps)-1]
		if p.PathPosition <= prev.PathPosition {
			continue
		}
		dt := (p.PathPosition - prev.PathPosition) / (0.5 * (p.PathVelocity + prev.PathVelocity))
		if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
			return nil, NewInfeasibleLimitsError("profile stalls between s=%v and s=%v", prev.PathPosition, p.PathPosition)
		}
		p.Time = prev.Time + dt
		steps = append(steps, p)
	}
	if len(steps) < 2 {
		return nil, NewInfeasibleLimitsError("profile does not advance along the path")
	}
	return steps, nil
}
