package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

const (
	planarRequest = "../config/testdata/planar.json"
	pickRequest   = "../config/testdata/pick.yaml"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	err := app.Run(append([]string{"totg"}, args...))
	return out.String(), errOut.String(), err
}

func TestParameterizeCSV(t *testing.T) {
	output := filepath.Join(t.TempDir(), "planar.csv")
	out, _, err := runApp(t, "parameterize", "--output", output, "--histogram", planarRequest)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "DURATION (S)")
	test.That(t, out, test.ShouldContainSubstring, "planar")
	test.That(t, out, test.ShouldContainSubstring, "velocity utilization of planar")

	//nolint:gosec
	f, err := os.Open(output)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rows[0], test.ShouldResemble, []string{
		"time", "duration_from_previous",
		"x_position", "y_position",
		"x_velocity", "y_velocity",
		"x_acceleration", "y_acceleration",
	})
	test.That(t, len(rows), test.ShouldBeGreaterThan, 10)
	test.That(t, rows[1][:4], test.ShouldResemble, []string{"0", "0", "0", "0"})
}

func TestParameterizeJSONMany(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.json")
	_, _, err := runApp(t, "parameterize", "--format", "json", "--output", output, "--tolerance", "0.02", pickRequest, planarRequest)
	test.That(t, err, test.ShouldBeNil)

	for name, joints := range map[string][]string{
		"pick":   {"shoulder_pan_joint", "shoulder_lift_joint", "wrist_joint"},
		"planar": {"x", "y"},
	} {
		//nolint:gosec
		data, err := os.ReadFile(filepath.Join(dir, "out_"+name+".json"))
		test.That(t, err, test.ShouldBeNil)
		var traj trajectoryJSON
		test.That(t, json.Unmarshal(data, &traj), test.ShouldBeNil)
		test.That(t, traj.Joints, test.ShouldResemble, joints)
		test.That(t, traj.Waypoints[0].Time, test.ShouldEqual, 0.0)
		test.That(t, traj.Waypoints[0].Positions, test.ShouldHaveLength, len(joints))
		end := traj.Waypoints[len(traj.Waypoints)-1]
		for _, v := range end.Velocities {
			test.That(t, v, test.ShouldAlmostEqual, 0, 1e-6)
		}
	}
}

func TestParameterizeErrors(t *testing.T) {
	_, _, err := runApp(t, "parameterize")
	test.That(t, err, test.ShouldBeError, "at least one request file is required")

	_, _, err = runApp(t, "parameterize", "--format", "xml", planarRequest)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown output format "xml"`)

	_, _, err = runApp(t, "parameterize", "--velocity-scale", "2", planarRequest)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "velocity scale")

	_, _, err = runApp(t, "parameterize", "missing.json")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLimits(t *testing.T) {
	out, _, err := runApp(t, "limits", "--velocity-scale", "0.5", planarRequest)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(out, "\n")
	var x, y string
	for _, line := range lines {
		switch {
		case strings.Contains(line, "| x "):
			x = line
		case strings.Contains(line, "| y "):
			y = line
		}
	}
	test.That(t, x, test.ShouldContainSubstring, "[-1, 1]")
	test.That(t, x, test.ShouldContainSubstring, "| 0.5 ")
	test.That(t, y, test.ShouldContainSubstring, "[-1, 2]")
	test.That(t, y, test.ShouldContainSubstring, "| 0.25 ")

	out, _, err = runApp(t, "limits", pickRequest)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "shoulder_lift_joint")
	test.That(t, out, test.ShouldContainSubstring, "1.25")

	_, _, err = runApp(t, "limits", pickRequest, planarRequest)
	test.That(t, err, test.ShouldBeError, "exactly one request file is required")

	_, _, err = runApp(t, "--log-level", "loud", "limits", planarRequest)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")

	_, errOut, err := runApp(t, "--debug", "limits", planarRequest)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "resolving joint limits")
}

func TestPlot(t *testing.T) {
	output := filepath.Join(t.TempDir(), "phase.png")
	_, _, err := runApp(t, "plot", "--output", output, "--samples", "200", pickRequest)
	test.That(t, err, test.ShouldBeNil)
	info, err := os.Stat(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	_, _, err = runApp(t, "plot", "--output", output, "--samples", "1", pickRequest)
	test.That(t, err, test.ShouldNotBeNil)
}
