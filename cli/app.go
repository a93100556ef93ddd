// Package cli contains the totg command line, which time parameterizes waypoint files.
package cli

import (
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/totg/config"
	"go.viam.com/totg/logging"
	"go.viam.com/totg/motionplan"
)

const (
	// Global flags.
	flagDebug    = "debug"
	flagLogLevel = "log-level"

	// Option override flags.
	flagTolerance          = "tolerance"
	flagTimeStep           = "time-step"
	flagResampleStep       = "resample-step"
	flagVelocityScale      = "velocity-scale"
	flagAccelerationScale  = "acceleration-scale"
	flagAllowDefaultLimits = "allow-default-limits"

	// Output flags.
	flagOutput    = "output"
	flagFormat    = "format"
	flagHistogram = "histogram"
	flagSamples   = "samples"

	formatCSV  = "csv"
	formatJSON = "json"
)

var optionFlags = []cli.Flag{
	&cli.Float64Flag{
		Name:  flagTolerance,
		Usage: "largest deviation of a blend from its waypoint",
	},
	&cli.Float64Flag{
		Name:  flagTimeStep,
		Usage: "integration time step in seconds",
	},
	&cli.Float64Flag{
		Name:  flagResampleStep,
		Usage: "time between output waypoints in seconds",
	},
	&cli.Float64Flag{
		Name:  flagVelocityScale,
		Usage: "scale every joint velocity limit, in (0, 1]",
	},
	&cli.Float64Flag{
		Name:  flagAccelerationScale,
		Usage: "scale every joint acceleration limit, in (0, 1]",
	},
	&cli.BoolFlag{
		Name:  flagAllowDefaultLimits,
		Usage: "use default limits for joints without bounds instead of failing",
	},
}

var app = &cli.App{
	Name:            "totg",
	Usage:           "time optimal trajectory generation for joint space waypoints",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Value: "info",
			Usage: "log level: debug, info, warn or error",
		},
	},
	Before: func(c *cli.Context) error {
		_, err := logging.LevelFromString(c.String(flagLogLevel))
		return err
	},
	Commands: []*cli.Command{
		{
			Name:      "parameterize",
			Usage:     "compute and resample the time optimal trajectory of each request",
			ArgsUsage: "<request.json|request.yaml> ...",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    flagOutput,
					Aliases: []string{"o"},
					Usage:   "write the resampled waypoints to `FILE`, suffixed with the request name when there are several",
				},
				&cli.StringFlag{
					Name:  flagFormat,
					Value: formatCSV,
					Usage: "output format, csv or json",
				},
				&cli.BoolFlag{
					Name:  flagHistogram,
					Usage: "print a histogram of velocity limit utilization",
				},
			}, optionFlags...),
			Action: ParameterizeAction,
		},
		{
			Name:      "plot",
			Usage:     "draw the phase plane of a request: limit curves and the time optimal profile",
			ArgsUsage: "<request.json|request.yaml>",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     flagOutput,
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "write the figure to `FILE`, its extension selects the image format",
				},
				&cli.IntFlag{
					Name:  flagSamples,
					Value: 1000,
					Usage: "number of samples of the limit curves",
				},
			}, optionFlags...),
			Action: PlotAction,
		},
		{
			Name:      "limits",
			Usage:     "print the joint limits a request resolves to",
			ArgsUsage: "<request.json|request.yaml>",
			Flags:     optionFlags,
			Action:    LimitsAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// newLogger logs to the error writer of the app so tables and data on the writer stay clean.
func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger("totg")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil || c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger.SetLevel(level)
	return logger
}

// loadRequests reads every request file named on the command line and applies the option flags.
func loadRequests(c *cli.Context, logger logging.Logger) ([]motionplan.Request, error) {
	if c.NArg() == 0 {
		return nil, errors.New("at least one request file is required")
	}
	reqs := make([]motionplan.Request, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		cfg, err := config.Read(path)
		if err != nil {
			return nil, err
		}
		req, err := cfg.MotionRequest(logger)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		applyOptionFlags(c, &req.Options)
		if err := req.Options.Validate(); err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func applyOptionFlags(c *cli.Context, opts *motionplan.Options) {
	for flag, dst := range map[string]*float64{
		flagTolerance:         &opts.BlendTolerance,
		flagTimeStep:          &opts.TimeStep,
		flagResampleStep:      &opts.ResampleStep,
		flagVelocityScale:     &opts.VelocityScale,
		flagAccelerationScale: &opts.AccelerationScale,
	} {
		if c.IsSet(flag) {
			*dst = c.Float64(flag)
		}
	}
	if c.IsSet(flagAllowDefaultLimits) {
		opts.AllowDefaultLimits = c.Bool(flagAllowDefaultLimits)
	}
}

// loadRequest is loadRequests for commands that take exactly one file.
func loadRequest(c *cli.Context, logger logging.Logger) (motionplan.Request, error) {
	if c.NArg() != 1 {
		return motionplan.Request{}, errors.New("exactly one request file is required")
	}
	reqs, err := loadRequests(c, logger)
	if err != nil {
		return motionplan.Request{}, err
	}
	return reqs[0], nil
}
