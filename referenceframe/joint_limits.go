package referenceframe

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// JointLimitsYAML is the joint_limits.yaml layout used by MoveIt configuration packages.
type JointLimitsYAML struct {
	DefaultVelocityScalingFactor     float64                   `yaml:"default_velocity_scaling_factor"`
	DefaultAccelerationScalingFactor float64                   `yaml:"default_acceleration_scaling_factor"`
	JointLimits                      map[string]JointLimitYAML `yaml:"joint_limits"`
}

// JointLimitYAML is the entry of a single joint in joint_limits.yaml.
type JointLimitYAML struct {
	HasPositionLimits     bool    `yaml:"has_position_limits"`
	MinPosition           float64 `yaml:"min_position"`
	MaxPosition           float64 `yaml:"max_position"`
	HasVelocityLimits     bool    `yaml:"has_velocity_limits"`
	MaxVelocity           float64 `yaml:"max_velocity"`
	HasAccelerationLimits bool    `yaml:"has_acceleration_limits"`
	MaxAcceleration       float64 `yaml:"max_acceleration"`
}

// ParseJointLimitsYAMLFile reads a joint_limits.yaml file.
func ParseJointLimitsYAMLFile(filename string) (*JointLimitsYAML, error) {
	//nolint:gosec
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read joint limits file")
	}
	return ParseJointLimitsYAML(data)
}

// ParseJointLimitsYAML parses the contents of a joint_limits.yaml file.
func ParseJointLimitsYAML(data []byte) (*JointLimitsYAML, error) {
	if len(data) == 0 {
		return nil, ErrNoModelInformation
	}
	limits := &JointLimitsYAML{}
	if err := yaml.Unmarshal(data, limits); err != nil {
		return nil, errors.Wrap(err, "failed to parse joint limits yaml")
	}
	for name, joint := range limits.JointLimits {
		if joint.HasVelocityLimits && joint.MaxVelocity <= 0 {
			return nil, NewInvalidLimitError(name, "max_velocity", joint.MaxVelocity)
		}
		if joint.HasAccelerationLimits && joint.MaxAcceleration <= 0 {
			return nil, NewInvalidLimitError(name, "max_acceleration", joint.MaxAcceleration)
		}
		if joint.HasPositionLimits && joint.MinPosition > joint.MaxPosition {
			return nil, NewInvalidLimitError(name, "min_position", joint.MinPosition)
		}
	}
	return limits, nil
}

// Provider returns the limits of the file as a LimitProvider. Only the groups flagged with
// has_*_limits are set.
func (j *JointLimitsYAML) Provider() StaticLimits {
	limits := make(StaticLimits, len(j.JointLimits))
	for name, joint := range j.JointLimits {
		bounds := JointBounds{Name: name}
		if joint.HasPositionLimits {
			bounds.Position = Limit{Min: joint.MinPosition, Max: joint.MaxPosition}
			bounds.HasPosition = true
		}
		if joint.HasVelocityLimits {
			bounds.MaxVelocity, bounds.MinVelocity = joint.MaxVelocity, -joint.MaxVelocity
			bounds.HasVelocity = true
		}
		if joint.HasAccelerationLimits {
			bounds.MaxAcceleration, bounds.MinAcceleration = joint.MaxAcceleration, -joint.MaxAcceleration
			bounds.HasAcceleration = true
		}
		limits[name] = bounds
	}
	return limits
}
