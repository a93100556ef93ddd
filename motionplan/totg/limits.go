package totg

import (
	"math"

	"go.viam.com/totg/motionplan/blendpath"
)

// eps is the arc length offset used for one sided evaluation around switching points and for
// numeric derivatives of the limit curves.
const eps = 1e-6

// LimitSample is one sample of the phase plane limit curves.
type LimitSample struct {
	PathPosition float64
	// VelocityLimit is the largest path velocity allowed by the joint velocity bounds.
	VelocityLimit float64
	// AccelerationLimit is the largest path velocity at which the joint acceleration bounds still
	// admit some path acceleration. It is +Inf on straight segments.
	AccelerationLimit float64
}

// limitCurves evaluates the phase plane constraints induced by per joint bounds along a path.
type limitCurves struct {
	path   *blendpath.Path
	maxVel []float64
	maxAcc []float64
}

// pathAcceleration returns the largest (upper) or smallest path acceleration that keeps every
// joint acceleration within bounds at path position s and path velocity v.
func (l *limitCurves) pathAcceleration(s, v float64, upper bool) float64 {
	tangent := l.path.Tangent(s)
	second := l.path.SecondDerivative(s)
	factor := -1.0
	if upper {
		factor = 1.0
	}
	bound := math.MaxFloat64
	for i, t := range tangent {
		if t == 0 {
			continue
		}
		bound = math.Min(bound, l.maxAcc[i]/math.Abs(t)-factor*second[i]*v*v/t)
	}
	return factor * bound
}

// deceleration is the smallest path acceleration, the rate used when integrating backward.
func (l *limitCurves) deceleration(s, v float64) float64 {
	return l.pathAcceleration(s, v, false)
}

// phaseSlope is the slope dv/ds of the extremal trajectory through (s, v).
func (l *limitCurves) phaseSlope(s, v float64, upper bool) float64 {
	return l.pathAcceleration(s, v, upper) / v
}

// accelerationLimit returns the path velocity above which no path acceleration satisfies every
// joint acceleration bound, because the centripetal terms alone exceed them.
func (l *limitCurves) accelerationLimit(s float64) float64 {
	tangent := l.path.Tangent(s)
	second := l.path.SecondDerivative(s)
	limit := math.Inf(1)
	for i := range tangent {
		if tangent[i] == 0 {
			if second[i] != 0 {
				limit = math.Min(limit, math.Sqrt(l.maxAcc[i]/math.Abs(second[i])))
			}
			continue
		}
		for j := i + 1; j < len(tangent); j++ {
			if tangent[j] == 0 {
				continue
			}
			coupling := second[i]/tangent[i] - second[j]/tangent[j]
			if coupling == 0 {
				continue
			}
			limit = math.Min(limit, math.Sqrt((l.maxAcc[i]/math.Abs(tangent[i])+l.maxAcc[j]/math.Abs(tangent[j]))/math.Abs(coupling)))
		}
	}
	return limit
}

func (l *limitCurves) accelerationLimitSlope(s float64) float64 {
	return (l.accelerationLimit(s+eps) - l.accelerationLimit(s-eps)) / (2 * eps)
}

// velocityLimit returns the largest path velocity that keeps every joint velocity within bounds.
// Joints the path does not move are ignored.
func (l *limitCurves) velocityLimit(s float64) float64 {
	limit, _ := l.activeVelocityConstraint(l.path.Tangent(s))
	return limit
}

func (l *limitCurves) activeVelocityConstraint(tangent []float64) (float64, int) {
	limit := math.Inf(1)
	active := -1
	for i, t := range tangent {
		if t == 0 {
			continue
		}
		if candidate := l.maxVel[i] / math.Abs(t); candidate < limit {
			limit = candidate
			active = i
		}
	}
	return limit, active
}

// velocityLimitSlope is the analytic derivative of velocityLimit along the path.
func (l *limitCurves) velocityLimitSlope(s float64) float64 {
	tangent := l.path.Tangent(s)
	_, active := l.activeVelocityConstraint(tangent)
	if active < 0 {
		return 0
	}
	second := l.path.SecondDerivative(s)
	return -(l.maxVel[active] * second[active]) / (tangent[active] * math.Abs(tangent[active]))
}

// exceeds reports whether a phase point lies above either limit curve.
func (l *limitCurves) exceeds(s, v float64) bool {
	return v > l.accelerationLimit(s) || v > l.velocityLimit(s)
}

func (l *limitCurves) sample(ds float64) []LimitSample {
	length := l.path.Length()
	ds = l.path.SampleStep(ds)
	samples := make([]LimitSample, 0, int(length/ds)+2)
	for s := 0.0; ; s += ds {
		s = math.Min(s, length)
		samples = append(samples, LimitSample{
			PathPosition:      s,
			VelocityLimit:     l.velocityLimit(s),
			AccelerationLimit: l.accelerationLimit(s),
		})
		if s >= length {
			break
		}
	}
	return samples
}
