package referenceframe

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParseURDFLimits(t *testing.T) {
	limits, err := ParseURDFLimitsFile("testurdf/arm.urdf")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, limits.JointNames(), test.ShouldResemble, []string{
		"gripper_joint", "rail_joint", "shoulder_lift_joint", "shoulder_pan_joint", "wrist_joint",
	})

	pan, ok := limits.JointBounds("shoulder_pan_joint")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pan.Name, test.ShouldEqual, "shoulder_pan_joint")
	test.That(t, pan.HasPosition, test.ShouldBeTrue)
	test.That(t, pan.Position, test.ShouldResemble, Limit{Min: -3.14159, Max: 3.14159})
	test.That(t, pan.HasVelocity, test.ShouldBeTrue)
	test.That(t, pan.VelocityLimit(), test.ShouldEqual, 3.15)
	test.That(t, pan.HasAcceleration, test.ShouldBeFalse)

	wrist, ok := limits.JointBounds("wrist_joint")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, wrist.HasPosition, test.ShouldBeFalse)
	test.That(t, math.IsInf(wrist.Position.Max, 1), test.ShouldBeTrue)
	test.That(t, wrist.VelocityLimit(), test.ShouldEqual, 3.2)

	gripper, ok := limits.JointBounds("gripper_joint")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gripper.HasVelocity, test.ShouldBeFalse)

	_, ok = limits.JointBounds("world_joint")
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = limits.JointBounds("finger_joint")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParseURDFLimitsErrors(t *testing.T) {
	_, err := ParseURDFLimits(nil)
	test.That(t, errors.Is(err, ErrNoModelInformation), test.ShouldBeTrue)

	_, err = ParseURDFLimits([]byte("<robot"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseURDFLimitsFile("testurdf/missing.urdf")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseURDFLimits([]byte(`<robot name="r"><joint name="j" type="floating"/></robot>`))
	test.That(t, err, test.ShouldBeError, NewUnsupportedJointTypeError(FloatingJoint))

	_, err = ParseURDFLimits([]byte(`<robot name="r">
		<joint name="j" type="revolute"><limit lower="0" upper="1" velocity="1"/></joint>
		<joint name="j" type="revolute"><limit lower="0" upper="1" velocity="1"/></joint>
	</robot>`))
	test.That(t, err, test.ShouldBeError, NewDuplicateJointError("j"))

	_, err = ParseURDFLimits([]byte(`<robot name="r">
		<joint name="j" type="revolute"><limit lower="0" upper="1" velocity="0"/></joint>
	</robot>`))
	test.That(t, err, test.ShouldBeError, NewInvalidLimitError("j", "velocity limit", 0))

	_, err = ParseURDFLimits([]byte(`<robot name="r">
		<joint name="j" type="prismatic"><limit lower="2" upper="1" velocity="1"/></joint>
	</robot>`))
	test.That(t, err, test.ShouldNotBeNil)
}
