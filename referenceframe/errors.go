package referenceframe

import "github.com/pkg/errors"

// ErrNoModelInformation is used when there is no information about the model.
var ErrNoModelInformation = errors.New("no information found in robot description")

// NewUnsupportedJointTypeError returns an error indicating that a given joint type is not supported by current
// limit parsing.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type detected: %q", jointType)
}

// NewDuplicateJointError returns an error indicating that a joint is described more than once.
func NewDuplicateJointError(name string) error {
	return errors.Errorf("joint %q is described more than once", name)
}

// NewInvalidLimitError returns an error indicating that a joint has a bound that is not usable.
func NewInvalidLimitError(joint, field string, value float64) error {
	return errors.Errorf("joint %q has invalid %s %v", joint, field, value)
}
