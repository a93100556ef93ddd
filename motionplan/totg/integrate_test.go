package totg

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func constantDeceleration(rate float64) func(s, v float64) float64 {
	return func(s, v float64) float64 { return rate }
}

func TestIntegrateBackwardSplice(t *testing.T) {
	// forward profile along v = s, decelerating at 1 from (5, 0) follows v = sqrt(2(5-s)),
	// which crosses it at s = sqrt(11) - 1.
	forward := []PhasePoint{
		{PathPosition: 0, PathVelocity: 0},
		{PathPosition: 1, PathVelocity: 1},
		{PathPosition: 2, PathVelocity: 2},
		{PathPosition: 3, PathVelocity: 3},
	}
	original := append([]PhasePoint(nil), forward...)

	spliced, err := integrateBackward(forward, 5, 0, -1, 0.001, constantDeceleration(-1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, forward, test.ShouldResemble, original)

	test.That(t, spliced[:3], test.ShouldResemble, forward[:3])
	crossing := math.Sqrt(11) - 1
	test.That(t, spliced[3].PathPosition, test.ShouldAlmostEqual, crossing, 0.01)
	test.That(t, spliced[3].PathVelocity, test.ShouldAlmostEqual, crossing, 0.01)
	test.That(t, spliced[len(spliced)-1], test.ShouldResemble, PhasePoint{PathPosition: 5, PathVelocity: 0})
	for i := 5; i < len(spliced); i++ {
		test.That(t, spliced[i].PathPosition, test.ShouldBeGreaterThan, spliced[i-1].PathPosition)
		test.That(t, spliced[i].PathVelocity, test.ShouldBeLessThan, spliced[i-1].PathVelocity)
		expected := math.Sqrt(2 * (5 - spliced[i].PathPosition))
		test.That(t, spliced[i].PathVelocity, test.ShouldAlmostEqual, expected, 0.01)
	}
}

func TestIntegrateBackwardFailures(t *testing.T) {
	t.Run("misses the forward profile", func(t *testing.T) {
		// the deceleration curve stays above this slow forward profile all the way to s = 0.
		forward := []PhasePoint{{}, {PathPosition: 1, PathVelocity: 0.1}}
		_, err := integrateBackward(forward, 2, 0, -1, 0.001, constantDeceleration(-1))
		test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "does not meet")
	})

	t.Run("negative velocity", func(t *testing.T) {
		forward := []PhasePoint{{}, {PathPosition: 1, PathVelocity: 1}}
		_, err := integrateBackward(forward, 2, 0, 1, 0.001, constantDeceleration(1))
		test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "negative")
	})

	t.Run("stalled", func(t *testing.T) {
		forward := []PhasePoint{{}, {PathPosition: 1, PathVelocity: 1}}
		_, err := integrateBackward(forward, 2, 0, 0, 0.001, constantDeceleration(0))
		test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)
	})

	t.Run("short profile", func(t *testing.T) {
		_, err := integrateBackward([]PhasePoint{{}}, 2, 0, -1, 0.001, constantDeceleration(-1))
		test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)
	})
}

func TestTimeProfile(t *testing.T) {
	steps, err := timeProfile([]PhasePoint{
		{PathPosition: 0, PathVelocity: 0},
		{PathPosition: 0.5, PathVelocity: 1},
		{PathPosition: 1.5, PathVelocity: 1},
		// does not advance, replaced by the next point.
		{PathPosition: 1.5, PathVelocity: 1},
		{PathPosition: 2, PathVelocity: 0},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, steps, test.ShouldHaveLength, 4)
	test.That(t, steps[1].Time, test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, steps[2].Time, test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, steps[3].Time, test.ShouldAlmostEqual, 3, 1e-12)

	_, err = timeProfile([]PhasePoint{{}, {PathPosition: 1}})
	test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)

	_, err = timeProfile([]PhasePoint{{}})
	test.That(t, errors.Is(err, ErrInfeasibleLimits), test.ShouldBeTrue)
}
