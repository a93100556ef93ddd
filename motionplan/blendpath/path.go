// Package blendpath builds continuous, arc length parameterized paths from a polyline of joint space
// waypoints. Corners are replaced by circular arcs whose deviation from the corner is bounded by a
// tolerance, which keeps the tangent continuous along the whole path.
package blendpath

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"go.viam.com/totg/utils"
)

const (
	// Waypoints closer than this are collapsed into one.
	duplicateEpsilon = 1e-6

	// Legs whose unit directions differ by less than this are treated as collinear.
	collinearEpsilon = 1e-6

	// Blends with a smaller radius are rejected; the curvature would overwhelm any acceleration bound.
	minBlendRadius = 1e-9

	switchingEpsilon = 1e-9

	// Sampling along the path never takes more than this many steps.
	maxSamples = 1 << 20
)

// SwitchingPoint is an arc length at which the phase plane limit curves may be non-smooth.
type SwitchingPoint struct {
	S float64
	// Discontinuity is true at primitive boundaries, where curvature jumps.
	Discontinuity bool
}

// Blend describes the arc inserted at an interior waypoint.
type Blend struct {
	// Waypoint is the index of the corner in the collapsed waypoint list.
	Waypoint int
	Radius   float64
	// Deviation is the distance between the corner and the closest point of the arc.
	Deviation float64
	// Start is the arc length at which the blend begins.
	Start  float64
	Length float64
}

// Path is an immutable concatenation of line segments and circular blends covering [0, Length()].
// A Path may be queried concurrently.
type Path struct {
	dim             int
	segments        []segment
	offsets         []float64
	length          float64
	switchingPoints []SwitchingPoint
	blends          []Blend
	waypoints       [][]float64
}

// New builds a Path through the waypoints, blending every corner with an arc that stays within
// tolerance of it. Consecutive duplicate waypoints are collapsed first.
func New(waypoints [][]float64, tolerance float64) (*Path, error) {
	if tolerance < 0 || !utils.IsFinite(tolerance) {
		return nil, NewConfigurationError("blend tolerance must be a finite, non-negative number, got %v", tolerance)
	}
	points, err := collapseWaypoints(waypoints)
	if err != nil {
		return nil, err
	}

	p := &Path{dim: len(points[0]), waypoints: points}
	start := points[0]
	for i := 1; i < len(points); i++ {
		if i+1 == len(points) {
			p.appendSegment(newLinearSegment(start, points[i]))
			break
		}
		blend, err := newCircularSegment(midpoint(points[i-1], points[i]), points[i], midpoint(points[i], points[i+1]), tolerance, i)
		if err != nil {
			return nil, err
		}
		if blend == nil {
			// collinear, the current line simply continues through this waypoint.
			continue
		}
		arcStart := blend.position(0)
		if floats.Distance(arcStart, start, 2) > duplicateEpsilon {
			p.appendSegment(newLinearSegment(start, arcStart))
		}
		p.blends = append(p.blends, Blend{
			Waypoint:  i,
			Radius:    blend.radius,
			Deviation: blend.deviation,
			Start:     p.length,
			Length:    blend.length(),
		})
		p.appendSegment(blend)
		start = blend.position(blend.length())
	}

	// the final boundary is the end of the path, not a switching point.
	p.switchingPoints = p.switchingPoints[:len(p.switchingPoints)-1]
	return p, nil
}

func (p *Path) appendSegment(seg segment) {
	p.offsets = append(p.offsets, p.length)
	for _, s := range seg.switchingPoints() {
		p.switchingPoints = append(p.switchingPoints, SwitchingPoint{S: p.length + s})
	}
	p.length += seg.length()
	for len(p.switchingPoints) > 0 && p.switchingPoints[len(p.switchingPoints)-1].S >= p.length {
		p.switchingPoints = p.switchingPoints[:len(p.switchingPoints)-1]
	}
	p.switchingPoints = append(p.switchingPoints, SwitchingPoint{S: p.length, Discontinuity: true})
	p.segments = append(p.segments, seg)
}

// collapseWaypoints validates the waypoints and drops each one that duplicates its predecessor.
func collapseWaypoints(waypoints [][]float64) ([][]float64, error) {
	if len(waypoints) == 0 {
		return nil, NewDegenerateInputError("no waypoints")
	}
	dim := len(waypoints[0])
	if dim == 0 {
		return nil, NewDegenerateInputError("waypoints have zero dimensions")
	}
	points := make([][]float64, 0, len(waypoints))
	for i, wp := range waypoints {
		if len(wp) != dim {
			return nil, NewDegenerateInputError("waypoint %d has %d dimensions, expected %d", i, len(wp), dim)
		}
		if !utils.IsFinite(wp...) {
			return nil, NewDegenerateInputError("waypoint %d is not finite", i)
		}
		if len(points) > 0 && floats.Distance(points[len(points)-1], wp, 2) < duplicateEpsilon {
			continue
		}
		points = append(points, append([]float64(nil), wp...))
	}
	if len(points) < 2 {
		return nil, NewDegenerateInputError("need at least 2 distinct waypoints, got %d", len(points))
	}
	return points, nil
}

func midpoint(a, b []float64) []float64 {
	mid := make([]float64, len(a))
	floats.AddTo(mid, a, b)
	floats.Scale(0.5, mid)
	return mid
}

// locate returns the segment containing arc length s and the offset of s within it. s is clamped
// to [0, Length()]; a position on a boundary belongs to the later segment.
func (p *Path) locate(s float64) (segment, float64) {
	s = utils.Clamp(s, 0, p.length)
	i := sort.Search(len(p.offsets), func(i int) bool { return p.offsets[i] > s }) - 1
	if i < 0 {
		i = 0
	}
	seg := p.segments[i]
	return seg, utils.Clamp(s-p.offsets[i], 0, seg.length())
}

// Length returns the total arc length.
func (p *Path) Length() float64 {
	return p.length
}

// Dimension returns the number of axes.
func (p *Path) Dimension() int {
	return p.dim
}

// Segments returns the number of primitives, lines and arcs, making up the path.
func (p *Path) Segments() int {
	return len(p.segments)
}

// Waypoints returns a copy of the collapsed waypoints the path was built from.
func (p *Path) Waypoints() [][]float64 {
	out := make([][]float64, 0, len(p.waypoints))
	for _, wp := range p.waypoints {
		out = append(out, append([]float64(nil), wp...))
	}
	return out
}

// Blends returns a description of every arc inserted at a corner.
func (p *Path) Blends() []Blend {
	return append([]Blend(nil), p.blends...)
}

// Position returns the configuration at arc length s.
func (p *Path) Position(s float64) []float64 {
	seg, local := p.locate(s)
	return seg.position(local)
}

// Tangent returns the unit first derivative with respect to arc length at s.
func (p *Path) Tangent(s float64) []float64 {
	seg, local := p.locate(s)
	return seg.tangent(local)
}

// SecondDerivative returns the second derivative with respect to arc length at s.
func (p *Path) SecondDerivative(s float64) []float64 {
	seg, local := p.locate(s)
	return seg.secondDerivative(local)
}

// Curvature returns the magnitude of the second derivative at s: zero on lines, 1/radius on arcs.
func (p *Path) Curvature(s float64) float64 {
	return floats.Norm(p.SecondDerivative(s), 2)
}

// SwitchingPoints returns every candidate switching point in increasing order of arc length.
func (p *Path) SwitchingPoints() []SwitchingPoint {
	return append([]SwitchingPoint(nil), p.switchingPoints...)
}

// NextSwitchingPoint returns the first switching point strictly after s. The end of the path is
// returned as a discontinuity when there is none.
func (p *Path) NextSwitchingPoint(s float64) SwitchingPoint {
	i := sort.Search(len(p.switchingPoints), func(i int) bool { return p.switchingPoints[i].S > s })
	if i == len(p.switchingPoints) {
		return SwitchingPoint{S: p.length, Discontinuity: true}
	}
	return p.switchingPoints[i]
}

// SampleStep returns the arc length step to sample the path with when asked for ds. A step that is
// not finite and positive becomes a thousandth of the length, and the step is never so small that
// sampling would take more than maxSamples steps.
func (p *Path) SampleStep(ds float64) float64 {
	if !(ds > 0) || !utils.IsFinite(ds) {
		ds = p.length / 1000
	}
	return math.Max(ds, p.length/maxSamples)
}

// DistanceToPath returns the smallest distance between point and the path, sampled every ds along
// the arc length.
func (p *Path) DistanceToPath(point []float64, ds float64) float64 {
	ds = p.SampleStep(ds)
	best := math.Inf(1)
	for s := 0.0; ; s += ds {
		s = math.Min(s, p.length)
		if d := floats.Distance(point, p.Position(s), 2); d < best {
			best = d
		}
		if s >= p.length {
			break
		}
	}
	return best
}
