package blendpath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/totg/utils"
)

// segment is one primitive of a Path, parameterized by a local arc length in [0, length()].
type segment interface {
	length() float64
	position(s float64) []float64
	tangent(s float64) []float64
	secondDerivative(s float64) []float64
	// switchingPoints returns local arc lengths, in increasing order, at which a component of the
	// tangent crosses zero.
	switchingPoints() []float64
}

type linearSegment struct {
	start     []float64
	direction []float64
	len       float64
}

func newLinearSegment(start, end []float64) *linearSegment {
	direction := make([]float64, len(start))
	floats.SubTo(direction, end, start)
	length := floats.Norm(direction, 2)
	floats.Scale(1/length, direction)
	return &linearSegment{
		start:     append([]float64(nil), start...),
		direction: direction,
		len:       length,
	}
}

func (l *linearSegment) length() float64 {
	return l.len
}

func (l *linearSegment) position(s float64) []float64 {
	pos := make([]float64, len(l.start))
	floats.AddScaledTo(pos, l.start, s, l.direction)
	return pos
}

func (l *linearSegment) tangent(float64) []float64 {
	return append([]float64(nil), l.direction...)
}

func (l *linearSegment) secondDerivative(float64) []float64 {
	return make([]float64, len(l.start))
}

func (l *linearSegment) switchingPoints() []float64 {
	return nil
}

// circularSegment is an arc of a circle lying in the plane spanned by the orthonormal vectors x
// and y. Local arc length s maps to center + radius*(x*cos(s/radius) + y*sin(s/radius)).
type circularSegment struct {
	center []float64
	x      []float64
	y      []float64
	radius float64
	len    float64

	// deviation is the distance between the arc midpoint and the corner it replaces.
	deviation float64
}

// newCircularSegment blends the corner formed by start->corner->end. start and end are the midpoints
// of the adjacent legs so neighboring blends can never overlap. A nil segment with a nil error means
// the legs are collinear and no blend is needed.
func newCircularSegment(start, corner, end []float64, tolerance float64, waypoint int) (*circularSegment, error) {
	dim := len(corner)
	inDir := make([]float64, dim)
	floats.SubTo(inDir, corner, start)
	inDistance := floats.Norm(inDir, 2)
	floats.Scale(1/inDistance, inDir)

	outDir := make([]float64, dim)
	floats.SubTo(outDir, end, corner)
	outDistance := floats.Norm(outDir, 2)
	floats.Scale(1/outDistance, outDir)

	bisector := make([]float64, dim)
	floats.SubTo(bisector, outDir, inDir)
	if floats.Norm(bisector, 2) < collinearEpsilon {
		return nil, nil
	}

	angle := math.Acos(utils.Clamp(floats.Dot(inDir, outDir), -1, 1))
	if math.Pi-angle < collinearEpsilon {
		return nil, NewInfeasibleBlendError(waypoint, "path reverses direction")
	}
	if tolerance == 0 {
		return nil, NewInfeasibleBlendError(waypoint, "zero tolerance leaves no room for a blend")
	}

	// distance from the corner to the points where the arc touches each leg. sin(a/2)/(1-cos(a/2))
	// is written as 1/tan(a/4) to avoid cancellation for shallow corners.
	distance := math.Min(inDistance, outDistance)
	distance = math.Min(distance, tolerance/math.Tan(0.25*angle))
	radius := distance / math.Tan(0.5*angle)
	if radius < minBlendRadius || math.IsNaN(radius) {
		return nil, NewInfeasibleBlendError(waypoint, "legs are too short for a blend")
	}

	cosHalf := math.Cos(0.5 * angle)
	floats.Scale(1/floats.Norm(bisector, 2), bisector)
	center := make([]float64, dim)
	floats.AddScaledTo(center, corner, radius/cosHalf, bisector)

	// x points from the center to where the arc leaves the incoming leg.
	x := make([]float64, dim)
	floats.AddScaledTo(x, corner, -distance, inDir)
	floats.Sub(x, center)
	floats.Scale(1/floats.Norm(x, 2), x)

	return &circularSegment{
		center:    center,
		x:         x,
		y:         inDir,
		radius:    radius,
		len:       angle * radius,
		deviation: radius/cosHalf - radius,
	}, nil
}

func (c *circularSegment) length() float64 {
	return c.len
}

func (c *circularSegment) position(s float64) []float64 {
	angle := s / c.radius
	pos := make([]float64, len(c.center))
	floats.AddScaledTo(pos, c.center, c.radius*math.Cos(angle), c.x)
	floats.AddScaled(pos, c.radius*math.Sin(angle), c.y)
	return pos
}

func (c *circularSegment) tangent(s float64) []float64 {
	angle := s / c.radius
	tan := make([]float64, len(c.center))
	floats.ScaleTo(tan, -math.Sin(angle), c.x)
	floats.AddScaled(tan, math.Cos(angle), c.y)
	return tan
}

func (c *circularSegment) secondDerivative(s float64) []float64 {
	angle := s / c.radius
	curv := make([]float64, len(c.center))
	floats.ScaleTo(curv, -math.Cos(angle)/c.radius, c.x)
	floats.AddScaled(curv, -math.Sin(angle)/c.radius, c.y)
	return curv
}

func (c *circularSegment) switchingPoints() []float64 {
	var points []float64
	for i := range c.x {
		if c.x[i] == 0 && c.y[i] == 0 {
			continue
		}
		// the i-th tangent component -x_i*sin(a) + y_i*cos(a) vanishes at a = atan2(y_i, x_i) mod pi.
		angle := math.Atan2(c.y[i], c.x[i])
		if angle < 0 {
			angle += math.Pi
		}
		// zeros on the arc ends coincide with the segment boundaries.
		if s := angle * c.radius; s > switchingEpsilon && s < c.len-switchingEpsilon {
			points = append(points, s)
		}
	}
	sort.Float64s(points)
	return points
}
