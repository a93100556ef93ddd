package referenceframe

import (
	"encoding/xml"
	"math"
	"os"

	"github.com/pkg/errors"
)

// The joint types that may appear in a URDF.
const (
	RevoluteJoint   = "revolute"
	ContinuousJoint = "continuous"
	PrismaticJoint  = "prismatic"
	FixedJoint      = "fixed"
	FloatingJoint   = "floating"
	PlanarJoint     = "planar"
)

// URDFConfig represents the fields of a Universal Robot Description Format (URDF) file needed for joint limits.
type URDFConfig struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Joints  []URDFJoint `xml:"joint"`
}

// URDFLimit is the limit element of a joint. URDF has no acceleration limits.
type URDFLimit struct {
	XMLName  xml.Name `xml:"limit"`
	Lower    *float64 `xml:"lower,attr"` // translation limits are in meters, revolute limits are in radians
	Upper    *float64 `xml:"upper,attr"` // translation limits are in meters, revolute limits are in radians
	Velocity *float64 `xml:"velocity,attr"`
	Effort   *float64 `xml:"effort,attr"`
}

// URDFMimic marks a joint whose position follows another joint.
type URDFMimic struct {
	Joint string `xml:"joint,attr"`
}

// URDFJoint is a struct which details the XML used in a URDF joint element.
type URDFJoint struct {
	XMLName xml.Name   `xml:"joint"`
	Name    string     `xml:"name,attr"`
	Type    string     `xml:"type,attr"`
	Limit   *URDFLimit `xml:"limit,omitempty"`
	Mimic   *URDFMimic `xml:"mimic,omitempty"`
}

// ParseURDFLimitsFile will read a given file and parse the joint limits of the contained URDF XML data.
func ParseURDFLimitsFile(filename string) (StaticLimits, error) {
	//nolint:gosec
	xmlData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read URDF file")
	}
	return ParseURDFLimits(xmlData)
}

// ParseURDFLimits extracts the position and velocity limits of every movable joint. Fixed and mimic
// joints are skipped since they cannot be commanded.
func ParseURDFLimits(xmlData []byte) (StaticLimits, error) {
	// empty data probably means that the read URDF has no actionable information
	if len(xmlData) == 0 {
		return nil, ErrNoModelInformation
	}

	urdf := &URDFConfig{}
	if err := xml.Unmarshal(xmlData, urdf); err != nil {
		return nil, errors.Wrap(err, "Failed to convert URDF data to equivalent URDFConfig struct")
	}

	limits := StaticLimits{}
	for _, jointElem := range urdf.Joints {
		if jointElem.Type == FixedJoint || jointElem.Mimic != nil {
			continue
		}
		if _, ok := limits[jointElem.Name]; ok {
			return nil, NewDuplicateJointError(jointElem.Name)
		}

		bounds := JointBounds{Name: jointElem.Name}
		switch jointElem.Type {
		case ContinuousJoint:
			bounds.Position = Limit{Min: math.Inf(-1), Max: math.Inf(1)}
		case RevoluteJoint, PrismaticJoint:
			if lim := jointElem.Limit; lim != nil && lim.Lower != nil && lim.Upper != nil {
				if *lim.Lower > *lim.Upper {
					return nil, NewInvalidLimitError(jointElem.Name, "position limits", *lim.Lower)
				}
				bounds.Position = Limit{Min: *lim.Lower, Max: *lim.Upper}
				bounds.HasPosition = true
			}
		default:
			return nil, NewUnsupportedJointTypeError(jointElem.Type)
		}

		if lim := jointElem.Limit; lim != nil && lim.Velocity != nil {
			if *lim.Velocity <= 0 {
				return nil, NewInvalidLimitError(jointElem.Name, "velocity limit", *lim.Velocity)
			}
			bounds.MaxVelocity, bounds.MinVelocity = *lim.Velocity, -*lim.Velocity
			bounds.HasVelocity = true
		}
		limits[jointElem.Name] = bounds
	}
	return limits, nil
}
