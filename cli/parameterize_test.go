package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/totg/logging"
	"go.viam.com/totg/motionplan"
	"go.viam.com/totg/referenceframe"
)

func TestSummarize(t *testing.T) {
	limits := referenceframe.StaticLimits{
		"a": {HasVelocity: true, MaxVelocity: 1, MinVelocity: -1, HasAcceleration: true, MaxAcceleration: 1, MinAcceleration: -1},
	}
	waypoints := []motionplan.Waypoint{referenceframe.FloatsToInputs([]float64{0}), referenceframe.FloatsToInputs([]float64{2})}
	res, err := motionplan.TimeParameterize(context.Background(), logging.NewTestLogger(t), waypoints, []string{"a"}, limits,
		motionplan.DefaultOptions())
	test.That(t, err, test.ShouldBeNil)

	s, err := summarize("line", res)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.samples, test.ShouldEqual, len(res.Waypoints))
	test.That(t, s.blends, test.ShouldEqual, 0)
	test.That(t, s.length, test.ShouldAlmostEqual, 2)
	// a trapezoid cruises at the limit for a third of its duration.
	test.That(t, s.peak, test.ShouldAlmostEqual, 1, 1e-2)
	test.That(t, s.mean, test.ShouldBeBetween, 0.5, 0.8)
	test.That(t, s.p95, test.ShouldBeLessThanOrEqualTo, s.peak)

	rendered := summaryTable([]summary{s})
	test.That(t, rendered, test.ShouldContainSubstring, "line")
	test.That(t, rendered, test.ShouldContainSubstring, "%")

	var buf bytes.Buffer
	test.That(t, writeTrajectoryCSV(&buf, []string{"a"}, res.Waypoints), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines[0], test.ShouldEqual, "time,duration_from_previous,a_position,a_velocity,a_acceleration")
	test.That(t, lines, test.ShouldHaveLength, len(res.Waypoints)+1)
}
