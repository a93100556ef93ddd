package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/totg/motionplan"
	"go.viam.com/totg/referenceframe"
)

// ParameterizeAction time parameterizes every request file given as an argument, prints a summary
// and optionally writes the resampled trajectories.
func ParameterizeAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	defer func() {
		err = multierr.Combine(err, logger.Sync())
	}()

	format := c.String(flagFormat)
	if format != formatCSV && format != formatJSON {
		return errors.Errorf("unknown output format %q, expected %s or %s", format, formatCSV, formatJSON)
	}
	reqs, err := loadRequests(c, logger)
	if err != nil {
		return err
	}
	results, err := motionplan.TimeParameterizeAll(c.Context, logger, reqs)
	if err != nil {
		return err
	}

	summaries := make([]summary, 0, len(results))
	for i, res := range results {
		s, err := summarize(reqs[i].Name, res)
		if err != nil {
			return err
		}
		summaries = append(summaries, s)
	}
	printf(c.App.Writer, "%s", summaryTable(summaries))

	if c.Bool(flagHistogram) {
		for _, s := range summaries {
			printf(c.App.Writer, "\nvelocity utilization of %s\n", s.name)
			if err := histogram.Fprint(c.App.Writer, histogram.Hist(10, s.utilization), histogram.Linear(40)); err != nil {
				return err
			}
		}
	}

	output := c.String(flagOutput)
	if output == "" {
		return nil
	}
	for i, res := range results {
		file := output
		if len(results) > 1 {
			ext := filepath.Ext(output)
			file = fmt.Sprintf("%s_%s%s", strings.TrimSuffix(output, ext), reqs[i].Name, ext)
		}
		if err := writeTrajectoryFile(file, format, reqs[i].Joints, res.Waypoints); err != nil {
			return err
		}
		logger.Infow("wrote trajectory", "request", reqs[i].Name, "file", file, "waypoints", len(res.Waypoints))
	}
	return nil
}

type summary struct {
	name      string
	joints    int
	waypoints int
	length    float64
	blends    int
	duration  float64
	samples   int
	// utilization holds, for every resampled waypoint, the largest ratio of joint speed to joint
	// velocity limit.
	utilization []float64
	peak        float64
	mean        float64
	p95         float64
}

func summarize(name string, res *motionplan.Result) (summary, error) {
	s := summary{
		name:      name,
		joints:    len(res.MaxVel),
		waypoints: len(res.Path.Waypoints()),
		length:    res.Path.Length(),
		blends:    len(res.Path.Blends()),
		duration:  res.Duration,
		samples:   len(res.Waypoints),
	}
	s.utilization = make([]float64, 0, len(res.Waypoints))
	for _, wp := range res.Waypoints {
		u := 0.0
		for j, v := range wp.Velocities {
			if res.MaxVel[j] > 0 {
				u = math.Max(u, math.Abs(v)/res.MaxVel[j])
			}
		}
		s.utilization = append(s.utilization, u)
	}

	var err error
	if s.peak, err = stats.Max(s.utilization); err != nil {
		return s, errors.Wrapf(err, "%s: velocity utilization", name)
	}
	if s.mean, err = stats.Mean(s.utilization); err != nil {
		return s, errors.Wrapf(err, "%s: velocity utilization", name)
	}
	if s.p95, err = stats.Percentile(s.utilization, 95); err != nil {
		return s, errors.Wrapf(err, "%s: velocity utilization", name)
	}
	return s, nil
}

func summaryTable(summaries []summary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Name", "Joints", "Waypoints", "Blends", "Length", "Duration (s)", "Samples", "Peak vel", "Mean vel", "P95 vel"})
	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.name,
			s.joints,
			s.waypoints,
			s.blends,
			fmt.Sprintf("%.4f", s.length),
			fmt.Sprintf("%.4f", s.duration),
			s.samples,
			percent(s.peak),
			percent(s.mean),
			percent(s.p95),
		})
	}
	return t.Render() + "\n"
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", 100*ratio)
}

// timedWaypointJSON is the json layout of one output sample.
type timedWaypointJSON struct {
	Time                 float64   `json:"time"`
	DurationFromPrevious float64   `json:"duration_from_previous"`
	Positions            []float64 `json:"positions"`
	Velocities           []float64 `json:"velocities"`
	Accelerations        []float64 `json:"accelerations"`
}

type trajectoryJSON struct {
	Joints    []string            `json:"joints"`
	Waypoints []timedWaypointJSON `json:"waypoints"`
}

func writeTrajectoryFile(file, format string, joints []string, waypoints []motionplan.TimedWaypoint) (err error) {
	//nolint:gosec
	f, err := os.Create(file)
	if err != nil {
		return errors.Wrap(err, "failed to create output file")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if format == formatJSON {
		return writeTrajectoryJSON(f, joints, waypoints)
	}
	return writeTrajectoryCSV(f, joints, waypoints)
}

func writeTrajectoryJSON(w io.Writer, joints []string, waypoints []motionplan.TimedWaypoint) error {
	out := trajectoryJSON{Joints: joints, Waypoints: make([]timedWaypointJSON, 0, len(waypoints))}
	for _, wp := range waypoints {
		out.Waypoints = append(out.Waypoints, timedWaypointJSON{
			Time:                 wp.Time,
			DurationFromPrevious: wp.DurationFromPrevious,
			Positions:            referenceframe.InputsToFloats(wp.Positions),
			Velocities:           wp.Velocities,
			Accelerations:        wp.Accelerations,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// writeTrajectoryCSV writes one row per sample: time, then the position, velocity and acceleration
// columns of each joint.
func writeTrajectoryCSV(w io.Writer, joints []string, waypoints []motionplan.TimedWaypoint) error {
	cw := csv.NewWriter(w)
	header := []string{"time", "duration_from_previous"}
	for _, kind := range []string{"position", "velocity", "acceleration"} {
		for _, joint := range joints {
			header = append(header, joint+"_"+kind)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, wp := range waypoints {
		row := []string{format(wp.Time), format(wp.DurationFromPrevious)}
		for _, in := range wp.Positions {
			row = append(row, format(in.Value))
		}
		for _, v := range wp.Velocities {
			row = append(row, format(v))
		}
		for _, a := range wp.Accelerations {
			row = append(row, format(a))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format, a...)
}
