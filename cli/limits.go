package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/totg/motionplan"
	"go.viam.com/totg/referenceframe"
)

// LimitsAction prints the limits each joint of a request resolves to, after scaling.
func LimitsAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	defer func() {
		err = multierr.Combine(err, logger.Sync())
	}()

	req, err := loadRequest(c, logger)
	if err != nil {
		return err
	}
	maxVel, maxAcc, err := motionplan.ResolveLimits(logger, req.Limits, req.Joints, req.Options)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", limitsTable(req, maxVel, maxAcc))
	return nil
}

func limitsTable(req motionplan.Request, maxVel, maxAcc []float64) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Joint", "Position", "Velocity", "Acceleration", "Max velocity", "Max acceleration"})
	for i, joint := range req.Joints {
		bounds, _ := req.Limits.JointBounds(joint)
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			joint,
			positionString(bounds),
			boundString(bounds.HasVelocity, bounds.MinVelocity, bounds.MaxVelocity),
			boundString(bounds.HasAcceleration, bounds.MinAcceleration, bounds.MaxAcceleration),
			fmt.Sprintf("%.4g", maxVel[i]),
			fmt.Sprintf("%.4g", maxAcc[i]),
		})
	}
	return t.Render() + "\n"
}

func positionString(bounds referenceframe.JointBounds) string {
	return boundString(bounds.HasPosition, bounds.Position.Min, bounds.Position.Max)
}

func boundString(ok bool, lower, upper float64) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("[%.4g, %.4g]", lower, upper)
}
