package referenceframe

import (
	"testing"

	"go.viam.com/test"
)

func TestStaticLimits(t *testing.T) {
	limits := StaticLimits{
		"b": {HasVelocity: true, MaxVelocity: 2, MinVelocity: -1},
		"a": {HasAcceleration: true, MaxAcceleration: 3, MinAcceleration: -4},
	}
	test.That(t, limits.JointNames(), test.ShouldResemble, []string{"a", "b"})

	b, ok := limits.JointBounds("b")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, b.Name, test.ShouldEqual, "b")
	// the smaller magnitude applies in both directions.
	test.That(t, b.VelocityLimit(), test.ShouldEqual, 1.0)

	a, _ := limits.JointBounds("a")
	test.That(t, a.AccelerationLimit(), test.ShouldEqual, 3.0)

	_, ok = limits.JointBounds("c")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestOverlayLimits(t *testing.T) {
	urdf, err := ParseURDFLimitsFile("testurdf/arm.urdf")
	test.That(t, err, test.ShouldBeNil)
	yamlFile, err := ParseJointLimitsYAMLFile("testurdf/joint_limits.yaml")
	test.That(t, err, test.ShouldBeNil)
	inline := StaticLimits{
		"wrist_joint": {HasVelocity: true, MaxVelocity: 1, MinVelocity: -1},
		"extra_joint": {HasAcceleration: true, MaxAcceleration: 1, MinAcceleration: -1},
	}

	limits := OverlayLimits(urdf, nil, yamlFile.Provider(), inline)
	test.That(t, limits.JointNames(), test.ShouldResemble, []string{
		"extra_joint", "gripper_joint", "rail_joint", "shoulder_lift_joint", "shoulder_pan_joint", "wrist_joint",
	})

	// yaml replaces the urdf velocity and adds an acceleration.
	pan, ok := limits.JointBounds("shoulder_pan_joint")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pan.Name, test.ShouldEqual, "shoulder_pan_joint")
	test.That(t, pan.VelocityLimit(), test.ShouldEqual, 2.5)
	test.That(t, pan.AccelerationLimit(), test.ShouldEqual, 5.0)
	test.That(t, pan.Position, test.ShouldResemble, Limit{Min: -3.14159, Max: 3.14159})

	// has_velocity_limits: false leaves the urdf velocity in place.
	lift, _ := limits.JointBounds("shoulder_lift_joint")
	test.That(t, lift.VelocityLimit(), test.ShouldEqual, 2.0)
	test.That(t, lift.AccelerationLimit(), test.ShouldEqual, 4.0)

	// inline limits win over both files.
	wrist, _ := limits.JointBounds("wrist_joint")
	test.That(t, wrist.VelocityLimit(), test.ShouldEqual, 1.0)
	test.That(t, wrist.AccelerationLimit(), test.ShouldEqual, 6.0)

	rail, _ := limits.JointBounds("rail_joint")
	test.That(t, rail.Position, test.ShouldResemble, Limit{Min: 0.05, Max: 0.45})
	test.That(t, rail.HasAcceleration, test.ShouldBeFalse)

	_, ok = limits.JointBounds("elbow_joint")
	test.That(t, ok, test.ShouldBeFalse)
}
