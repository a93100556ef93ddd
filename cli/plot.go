package cli

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/totg/motionplan"
	"go.viam.com/totg/motionplan/totg"
)

var (
	velocityLimitColor     = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	accelerationLimitColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	profileColor           = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// PlotAction draws the phase plane of one request. The limit curves are drawn even when no feasible
// profile exists.
func PlotAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	defer func() {
		err = multierr.Combine(err, logger.Sync())
	}()
	if c.Int(flagSamples) < 2 {
		return errors.Errorf("--%s must be at least 2", flagSamples)
	}

	req, err := loadRequest(c, logger)
	if err != nil {
		return err
	}
	traj, err := motionplan.BuildTrajectory(logger, req.Waypoints, req.Joints, req.Limits, req.Options)
	if err != nil {
		return err
	}
	if !traj.IsValid() {
		logger.Warnw("no feasible profile, plotting limit curves only", "error", traj.Err())
	}

	p, err := phasePlanePlot(req.Name, traj, c.Int(flagSamples))
	if err != nil {
		return err
	}
	output := c.String(flagOutput)
	if err := p.Save(8*vg.Inch, 5*vg.Inch, output); err != nil {
		return errors.Wrap(err, "failed to save plot")
	}
	logger.Infow("wrote phase plane", "request", req.Name, "file", output)
	return nil
}

func phasePlanePlot(name string, traj *totg.Trajectory, samples int) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "phase plane of " + name
	p.X.Label.Text = "path position"
	p.Y.Label.Text = "path velocity"
	p.Legend.Top = true

	limits := traj.LimitCurves(traj.Path().Length() / float64(samples-1))
	velocity := make(plotter.XYs, len(limits))
	ceiling := 0.0
	for i, l := range limits {
		velocity[i] = plotter.XY{X: l.PathPosition, Y: l.VelocityLimit}
		ceiling = math.Max(ceiling, l.VelocityLimit)
	}
	// the acceleration limit is infinite on straight segments, clip it just above the velocity limit.
	ceiling *= 1.25
	acceleration := make(plotter.XYs, len(limits))
	for i, l := range limits {
		acceleration[i] = plotter.XY{X: l.PathPosition, Y: math.Min(l.AccelerationLimit, ceiling)}
	}

	velocityLine, err := plotter.NewLine(velocity)
	if err != nil {
		return nil, err
	}
	velocityLine.Color = velocityLimitColor
	accelerationLine, err := plotter.NewLine(acceleration)
	if err != nil {
		return nil, err
	}
	accelerationLine.Color = accelerationLimitColor
	accelerationLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(velocityLine, accelerationLine)
	p.Legend.Add("velocity limit", velocityLine)
	p.Legend.Add("acceleration limit", accelerationLine)

	if traj.IsValid() {
		steps := traj.Steps()
		profile := make(plotter.XYs, len(steps))
		for i, step := range steps {
			profile[i] = plotter.XY{X: step.PathPosition, Y: step.PathVelocity}
		}
		profileLine, err := plotter.NewLine(profile)
		if err != nil {
			return nil, err
		}
		profileLine.Color = profileColor
		profileLine.Width = vg.Points(1.5)
		p.Add(profileLine)
		p.Legend.Add("profile", profileLine)

		if switching := traj.SwitchingPoints(); len(switching) > 0 {
			pts := make(plotter.XYs, len(switching))
			for i, sp := range switching {
				pts[i] = plotter.XY{X: sp.PathPosition, Y: sp.PathVelocity}
			}
			scatter, err := plotter.NewScatter(pts)
			if err != nil {
				return nil, err
			}
			scatter.Shape = draw.CircleGlyph{}
			scatter.Radius = vg.Points(3)
			scatter.Color = profileColor
			p.Add(scatter)
			p.Legend.Add("switching points", scatter)
		}
	}

	p.X.Min = 0
	p.X.Max = traj.Path().Length()
	p.Y.Min = 0
	p.Y.Max = ceiling
	p.Add(plotter.NewGrid())
	return p, nil
}
