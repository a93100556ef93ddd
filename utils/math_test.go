package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestMath(t *testing.T) {
	test.That(t, Float64AlmostEqual(1, 1.0001, 1e-3), test.ShouldBeTrue)
	test.That(t, Float64AlmostEqual(1, 1.01, 1e-3), test.ShouldBeFalse)
	test.That(t, Clamp(5, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-5, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(0.5, 0, 1), test.ShouldEqual, 0.5)
	test.That(t, IsFinite(1, 2, 3), test.ShouldBeTrue)
	test.That(t, IsFinite(1, math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
}
