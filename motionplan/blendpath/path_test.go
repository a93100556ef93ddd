package blendpath

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/floats"
)

func rightAngle() [][]float64 {
	return [][]float64{{0, 0}, {1, 0}, {1, 1}}
}

func zigzag() [][]float64 {
	return [][]float64{
		{0, 0, 0},
		{0.4, 0.1, -0.2},
		{0.5, 0.9, 0.3},
		{1.2, 1.0, 0.1},
		{1.25, 0.2, 0.8},
		{2.0, 0.3, 0.8},
	}
}

func TestRightAngleBlend(t *testing.T) {
	p, err := New(rightAngle(), 0.1)
	test.That(t, err, test.ShouldBeNil)

	// the tolerance, not the leg length, bounds the blend: distance = 0.1 / tan(pi/8).
	distance := 0.1 / math.Tan(math.Pi/8)
	radius := distance
	test.That(t, p.Segments(), test.ShouldEqual, 3)
	test.That(t, p.Dimension(), test.ShouldEqual, 2)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 2*(1-distance)+0.5*math.Pi*radius, 1e-9)

	blends := p.Blends()
	test.That(t, blends, test.ShouldHaveLength, 1)
	test.That(t, blends[0].Waypoint, test.ShouldEqual, 1)
	test.That(t, blends[0].Radius, test.ShouldAlmostEqual, radius, 1e-9)
	test.That(t, blends[0].Deviation, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, blends[0].Start, test.ShouldAlmostEqual, 1-distance, 1e-9)

	test.That(t, p.Curvature(0.1), test.ShouldEqual, 0.0)
	test.That(t, p.Curvature(blends[0].Start+0.5*blends[0].Length), test.ShouldAlmostEqual, 1/radius, 1e-9)
	test.That(t, p.Curvature(p.Length()-0.01), test.ShouldEqual, 0.0)

	test.That(t, p.Position(0), test.ShouldResemble, []float64{0, 0})
	end := p.Position(p.Length())
	test.That(t, end[0], test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, end[1], test.ShouldAlmostEqual, 1, 1e-9)

	// out of range arc lengths are clamped.
	test.That(t, p.Position(-1), test.ShouldResemble, p.Position(0))
	test.That(t, p.Position(p.Length()+1), test.ShouldResemble, p.Position(p.Length()))
}

func TestTangentUnitAndContinuous(t *testing.T) {
	for name, waypoints := range map[string][][]float64{
		"right angle": rightAngle(),
		"zigzag":      zigzag(),
	} {
		t.Run(name, func(t *testing.T) {
			p, err := New(waypoints, 0.05)
			test.That(t, err, test.ShouldBeNil)

			for s := 0.0; s <= p.Length(); s += p.Length() / 2000 {
				test.That(t, floats.Norm(p.Tangent(s), 2), test.ShouldAlmostEqual, 1, 1e-9)
			}

			const eps = 1e-9
			for _, boundary := range p.offsets[1:] {
				before := p.Tangent(boundary - eps)
				after := p.Tangent(boundary)
				test.That(t, floats.Distance(before, after, 2), test.ShouldBeLessThan, 1e-6)

				posBefore := p.Position(boundary - eps)
				posAfter := p.Position(boundary)
				test.That(t, floats.Distance(posBefore, posAfter, 2), test.ShouldBeLessThan, 1e-6)
			}
		})
	}
}

func TestDeviationWithinTolerance(t *testing.T) {
	for _, tolerance := range []float64{0.01, 0.1, 1, 10} {
		p, err := New(zigzag(), tolerance)
		test.That(t, err, test.ShouldBeNil)

		waypoints := p.Waypoints()
		for i := 1; i < len(waypoints)-1; i++ {
			test.That(t, p.DistanceToPath(waypoints[i], 1e-4), test.ShouldBeLessThanOrEqualTo, tolerance+1e-6)
		}
		for _, blend := range p.Blends() {
			test.That(t, blend.Deviation, test.ShouldBeLessThanOrEqualTo, tolerance+1e-12)
		}
	}
}

func TestSampleStep(t *testing.T) {
	p, err := New(rightAngle(), 0.1)
	test.That(t, err, test.ShouldBeNil)
	fallback := p.Length() / 1000

	for _, tc := range []struct {
		name string
		ds   float64
		want float64
	}{
		{"positive", 0.01, 0.01},
		{"zero", 0, fallback},
		{"negative", -1, fallback},
		{"nan", math.NaN(), fallback},
		{"inf", math.Inf(1), fallback},
		{"tiny", 1e-300, p.Length() / maxSamples},
		{"longer than path", 10, 10},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, p.SampleStep(tc.ds), test.ShouldEqual, tc.want)
			// the corner is 1-cos(pi/4) times the blend radius away from the arc.
			d := p.DistanceToPath([]float64{1, 0}, tc.ds)
			test.That(t, d, test.ShouldBeGreaterThan, 0)
			test.That(t, d, test.ShouldBeLessThanOrEqualTo, 1+1e-9)
			test.That(t, p.DistanceToPath([]float64{0, 0}, tc.ds), test.ShouldEqual, 0)
		})
	}
}

func TestLargeToleranceClampsToLegs(t *testing.T) {
	// a huge tolerance is limited by the legs: the arc may only use half of each.
	p, err := New([][]float64{{0, 0}, {0.2, 0}, {0.2, 0.2}}, 100)
	test.That(t, err, test.ShouldBeNil)
	blends := p.Blends()
	test.That(t, blends, test.ShouldHaveLength, 1)
	test.That(t, blends[0].Radius, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, p.Segments(), test.ShouldEqual, 3)
	test.That(t, blends[0].Start, test.ShouldAlmostEqual, 0.1, 1e-9)
}

func TestSwitchingPoints(t *testing.T) {
	p, err := New(rightAngle(), 0.1)
	test.That(t, err, test.ShouldBeNil)

	blend := p.Blends()[0]
	points := p.SwitchingPoints()
	test.That(t, points, test.ShouldHaveLength, 2)
	test.That(t, points[0].S, test.ShouldAlmostEqual, blend.Start, 1e-9)
	test.That(t, points[0].Discontinuity, test.ShouldBeTrue)
	test.That(t, points[1].S, test.ShouldAlmostEqual, blend.Start+blend.Length, 1e-9)
	test.That(t, points[1].Discontinuity, test.ShouldBeTrue)

	test.That(t, p.NextSwitchingPoint(0), test.ShouldResemble, points[0])
	test.That(t, p.NextSwitchingPoint(points[0].S), test.ShouldResemble, points[1])
	test.That(t, p.NextSwitchingPoint(points[1].S), test.ShouldResemble, SwitchingPoint{S: p.Length(), Discontinuity: true})

	// the second axis changes sign half way around this arc.
	p, err = New([][]float64{{0, 0}, {1, 1}, {2, 0}}, 0.1)
	test.That(t, err, test.ShouldBeNil)
	blend = p.Blends()[0]
	var interior []SwitchingPoint
	for _, sp := range p.SwitchingPoints() {
		if !sp.Discontinuity {
			interior = append(interior, sp)
		}
	}
	test.That(t, interior, test.ShouldHaveLength, 1)
	test.That(t, interior[0].S, test.ShouldAlmostEqual, blend.Start+0.25*math.Pi*blend.Radius, 1e-9)
	test.That(t, p.Tangent(interior[0].S)[1], test.ShouldAlmostEqual, 0, 1e-9)
}

func TestCollinearAndDuplicates(t *testing.T) {
	p, err := New([][]float64{{0, 0}, {0, 0}, {1, 0}, {2, 0}, {2, 0}}, 0.1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Segments(), test.ShouldEqual, 1)
	test.That(t, p.Length(), test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, p.Blends(), test.ShouldBeEmpty)
	test.That(t, p.SwitchingPoints(), test.ShouldBeEmpty)
	test.That(t, p.Waypoints(), test.ShouldHaveLength, 3)

	// collinear waypoints need no blend even with zero tolerance.
	_, err = New([][]float64{{0, 0}, {1, 1}, {2, 2}}, 0)
	test.That(t, err, test.ShouldBeNil)
}

func TestBuildErrors(t *testing.T) {
	for _, tc := range []struct {
		name      string
		waypoints [][]float64
		tolerance float64
		expected  error
	}{
		{"no waypoints", nil, 0.1, ErrDegenerateInput},
		{"single waypoint", [][]float64{{1, 2}}, 0.1, ErrDegenerateInput},
		{"same point twice", [][]float64{{1, 1}, {1, 1}}, 0.1, ErrDegenerateInput},
		{"nearly same point", [][]float64{{1, 1}, {1, 1 + 1e-8}}, 0.1, ErrDegenerateInput},
		{"zero dimensions", [][]float64{{}, {}}, 0.1, ErrDegenerateInput},
		{"mismatched dimensions", [][]float64{{0, 0}, {1, 0, 0}}, 0.1, ErrDegenerateInput},
		{"nan", [][]float64{{0, 0}, {math.NaN(), 0}}, 0.1, ErrDegenerateInput},
		{"negative tolerance", rightAngle(), -0.1, ErrInvalidConfiguration},
		{"infinite tolerance", rightAngle(), math.Inf(1), ErrInvalidConfiguration},
		{"zero tolerance corner", [][]float64{{0, 0}, {1e-3, 0}, {1e-3, 1e-3}}, 0, ErrInfeasibleBlend},
		{"reversal", [][]float64{{0, 0}, {1, 0}, {0, 0}}, 0.1, ErrInfeasibleBlend},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.waypoints, tc.tolerance)
			test.That(t, p, test.ShouldBeNil)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, tc.expected), test.ShouldBeTrue)
		})
	}

	_, err := New([][]float64{{0, 0}, {1, 0}, {0, 0}}, 0.1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "waypoint 1")
}

func TestWaypointsAreCopied(t *testing.T) {
	waypoints := rightAngle()
	p, err := New(waypoints, 0.1)
	test.That(t, err, test.ShouldBeNil)
	waypoints[2][1] = 5
	end := p.Position(p.Length())
	test.That(t, end[1], test.ShouldAlmostEqual, 1, 1e-9)

	got := p.Waypoints()
	got[0][0] = 3
	test.That(t, p.Waypoints()[0][0], test.ShouldEqual, 0.0)
}
