// Package config reads time parameterization requests from JSON or YAML files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"go.viam.com/totg/logging"
	"go.viam.com/totg/motionplan"
	"go.viam.com/totg/referenceframe"
	"go.viam.com/totg/utils"
)

// JointLimitConfig are bounds for one joint given inline in a request. They override the URDF and
// joint_limits.yaml bounds of the same joint.
type JointLimitConfig struct {
	MaxVelocity     *float64 `json:"max_velocity,omitempty"`
	MaxAcceleration *float64 `json:"max_acceleration,omitempty"`
	MinPosition     *float64 `json:"min_position,omitempty"`
	MaxPosition     *float64 `json:"max_position,omitempty"`
}

// OptionsConfig overrides motionplan.DefaultOptions. Unset fields keep their default.
type OptionsConfig struct {
	BlendTolerance     *float64 `json:"blend_tolerance,omitempty"`
	TimeStep           *float64 `json:"time_step,omitempty"`
	ResampleStep       *float64 `json:"resample_step,omitempty"`
	VelocityScale      *float64 `json:"velocity_scale,omitempty"`
	AccelerationScale  *float64 `json:"acceleration_scale,omitempty"`
	AllowDefaultLimits bool     `json:"allow_default_limits,omitempty"`
}

// A Request describes one trajectory to time parameterize.
type Request struct {
	Name      string                      `json:"name"`
	Joints    []string                    `json:"joints"`
	Waypoints [][]float64                 `json:"waypoints"`
	Limits    map[string]JointLimitConfig `json:"limits,omitempty"`

	// URDF and JointLimits are paths, relative to the request file, of a robot description and a
	// MoveIt joint_limits.yaml.
	URDF        string         `json:"urdf,omitempty"`
	JointLimits string         `json:"joint_limits,omitempty"`
	Options     *OptionsConfig `json:"options,omitempty"`

	ConfigFilePath string `json:"-"`
}

// Read reads a request from a .json, .yaml or .yml file and validates it.
func Read(path string) (*Request, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read request file")
	}
	req, err := FromBytes(data, filepath.Ext(path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	req.ConfigFilePath = path
	if req.Name == "" {
		req.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return req, nil
}

// FromBytes decodes and validates a request. ext selects the format: ".yaml" and ".yml" are YAML,
// anything else is JSON.
func FromBytes(data []byte, ext string) (*Request, error) {
	var attributes map[string]interface{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &attributes); err != nil {
			return nil, errors.Wrap(err, "failed to decode request from yaml")
		}
	default:
		if err := json.Unmarshal(data, &attributes); err != nil {
			return nil, errors.Wrap(err, "failed to decode request from json")
		}
	}

	req := &Request{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      req,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "failed to decode request")
	}
	if err := req.Validate("request"); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate ensures all parts of the request are valid.
func (r *Request) Validate(path string) error {
	if len(r.Joints) == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "joints")
	}
	if len(r.Waypoints) == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "waypoints")
	}

	var errs error
	for _, dup := range lo.FindDuplicates(r.Joints) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("joint %q is listed more than once", dup)))
	}
	for idx, wp := range r.Waypoints {
		if len(wp) != len(r.Joints) {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(fmt.Sprintf("%s.waypoints.%d", path, idx),
				errors.Errorf("has %d values for %d joints", len(wp), len(r.Joints))))
			continue
		}
		for _, v := range wp {
			if !utils.IsFinite(v) {
				errs = multierr.Append(errs, goutils.NewConfigValidationError(fmt.Sprintf("%s.waypoints.%d", path, idx),
					errors.Errorf("value %v is not finite", v)))
				break
			}
		}
	}
	for _, name := range lo.Keys(r.Limits) {
		if !lo.Contains(r.Joints, name) {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(fmt.Sprintf("%s.limits", path),
				errors.Errorf("limits given for unknown joint %q", name)))
			continue
		}
		if err := r.Limits[name].Validate(fmt.Sprintf("%s.limits.%s", path, name)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Validate ensures the inline bounds are usable.
func (c JointLimitConfig) Validate(path string) error {
	var errs error
	if c.MaxVelocity != nil && (*c.MaxVelocity <= 0 || !utils.IsFinite(*c.MaxVelocity)) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("max_velocity must be positive, got %v", *c.MaxVelocity)))
	}
	if c.MaxAcceleration != nil && (*c.MaxAcceleration <= 0 || !utils.IsFinite(*c.MaxAcceleration)) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.Errorf("max_acceleration must be positive, got %v", *c.MaxAcceleration)))
	}
	if (c.MinPosition == nil) != (c.MaxPosition == nil) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.New("min_position and max_position must be given together")))
	} else if c.MinPosition != nil && *c.MinPosition > *c.MaxPosition {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.New("min_position is greater than max_position")))
	}
	return errs
}

func (c JointLimitConfig) bounds(name string) referenceframe.JointBounds {
	bounds := referenceframe.JointBounds{Name: name}
	if c.MaxVelocity != nil {
		bounds.MaxVelocity, bounds.MinVelocity, bounds.HasVelocity = *c.MaxVelocity, -*c.MaxVelocity, true
	}
	if c.MaxAcceleration != nil {
		bounds.MaxAcceleration, bounds.MinAcceleration, bounds.HasAcceleration = *c.MaxAcceleration, -*c.MaxAcceleration, true
	}
	if c.MinPosition != nil && c.MaxPosition != nil {
		bounds.Position, bounds.HasPosition = referenceframe.Limit{Min: *c.MinPosition, Max: *c.MaxPosition}, true
	}
	return bounds
}

// Dir is the directory relative paths in the request are resolved against.
func (r *Request) Dir() string {
	if r.ConfigFilePath == "" {
		return "."
	}
	return filepath.Dir(r.ConfigFilePath)
}

// Provider builds the limit provider of the request. URDF bounds are overridden by
// joint_limits.yaml bounds, which are overridden by inline limits. The parsed joint_limits.yaml is
// also returned, nil when the request names none.
func (r *Request) Provider(dir string) (referenceframe.LimitProvider, *referenceframe.JointLimitsYAML, error) {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var layers []referenceframe.LimitProvider
	if r.URDF != "" {
		urdf, err := referenceframe.ParseURDFLimitsFile(resolve(r.URDF))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "urdf %s", r.URDF)
		}
		layers = append(layers, urdf)
	}
	var jointLimits *referenceframe.JointLimitsYAML
	if r.JointLimits != "" {
		var err error
		jointLimits, err = referenceframe.ParseJointLimitsYAMLFile(resolve(r.JointLimits))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "joint limits %s", r.JointLimits)
		}
		layers = append(layers, jointLimits.Provider())
	}
	if len(r.Limits) > 0 {
		inline := make(referenceframe.StaticLimits, len(r.Limits))
		for name, c := range r.Limits {
			inline[name] = c.bounds(name)
		}
		layers = append(layers, inline)
	}
	if len(layers) == 0 {
		return referenceframe.StaticLimits{}, jointLimits, nil
	}
	return referenceframe.OverlayLimits(layers[0], layers[1:]...), jointLimits, nil
}

// MotionOptions returns the options of the request on top of motionplan.DefaultOptions. Scales the
// request leaves unset fall back to the default scaling factors of joint_limits.yaml, if any.
func (r *Request) MotionOptions(jointLimits *referenceframe.JointLimitsYAML) motionplan.Options {
	opts := motionplan.DefaultOptions()
	if jointLimits != nil {
		if jointLimits.DefaultVelocityScalingFactor > 0 {
			opts.VelocityScale = jointLimits.DefaultVelocityScalingFactor
		}
		if jointLimits.DefaultAccelerationScalingFactor > 0 {
			opts.AccelerationScale = jointLimits.DefaultAccelerationScalingFactor
		}
	}
	if r.Options == nil {
		return opts
	}
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&opts.BlendTolerance, r.Options.BlendTolerance)
	set(&opts.TimeStep, r.Options.TimeStep)
	set(&opts.ResampleStep, r.Options.ResampleStep)
	set(&opts.VelocityScale, r.Options.VelocityScale)
	set(&opts.AccelerationScale, r.Options.AccelerationScale)
	opts.AllowDefaultLimits = r.Options.AllowDefaultLimits
	return opts
}

// MotionRequest loads the limit files of the request and converts it for motionplan.TimeParameterizeAll.
func (r *Request) MotionRequest(logger logging.Logger) (motionplan.Request, error) {
	logger = logging.OrBlank(logger, "config")
	provider, jointLimits, err := r.Provider(r.Dir())
	if err != nil {
		return motionplan.Request{}, err
	}
	opts := r.MotionOptions(jointLimits)
	logger.Debugw("loaded request", "name", r.Name, "joints", r.Joints, "waypoints", len(r.Waypoints),
		"known_joints", provider.JointNames())
	return motionplan.Request{
		Name:      r.Name,
		Joints:    r.Joints,
		Waypoints: lo.Map(r.Waypoints, func(wp []float64, _ int) motionplan.Waypoint { return referenceframe.FloatsToInputs(wp) }),
		Limits:    provider,
		Options:   opts,
	}, nil
}
