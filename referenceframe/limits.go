package referenceframe

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// Limit represents the limits of motion for a referenceframe.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JointBounds holds the kinematic bounds known for one joint. Each group of fields is only meaningful
// when its Has flag is set.
type JointBounds struct {
	Name string

	Position    Limit
	HasPosition bool

	MaxVelocity float64
	MinVelocity float64
	HasVelocity bool

	MaxAcceleration float64
	MinAcceleration float64
	HasAcceleration bool
}

// VelocityLimit returns the largest speed allowed in both directions.
func (b JointBounds) VelocityLimit() float64 {
	return math.Min(math.Abs(b.MaxVelocity), math.Abs(b.MinVelocity))
}

// AccelerationLimit returns the largest acceleration magnitude allowed in both directions.
func (b JointBounds) AccelerationLimit() float64 {
	return math.Min(math.Abs(b.MaxAcceleration), math.Abs(b.MinAcceleration))
}

// merge returns b with every field group that other sets replaced by other's.
func (b JointBounds) merge(other JointBounds) JointBounds {
	if other.HasPosition {
		b.Position, b.HasPosition = other.Position, true
	}
	if other.HasVelocity {
		b.MaxVelocity, b.MinVelocity, b.HasVelocity = other.MaxVelocity, other.MinVelocity, true
	}
	if other.HasAcceleration {
		b.MaxAcceleration, b.MinAcceleration, b.HasAcceleration = other.MaxAcceleration, other.MinAcceleration, true
	}
	return b
}

// A LimitProvider answers joint bound lookups by joint name.
type LimitProvider interface {
	// JointBounds returns the bounds of the named joint, or false if the joint is unknown.
	JointBounds(name string) (JointBounds, bool)
	// JointNames returns every joint the provider knows, sorted.
	JointNames() []string
}

// StaticLimits is a LimitProvider backed by a map from joint name to bounds.
type StaticLimits map[string]JointBounds

// JointBounds implements LimitProvider.
func (s StaticLimits) JointBounds(name string) (JointBounds, bool) {
	bounds, ok := s[name]
	if ok {
		bounds.Name = name
	}
	return bounds, ok
}

// JointNames implements LimitProvider.
func (s StaticLimits) JointNames() []string {
	names := lo.Keys(map[string]JointBounds(s))
	sort.Strings(names)
	return names
}

type overlayLimits []LimitProvider

// OverlayLimits stacks providers: bounds set by a later provider replace those of earlier ones, one
// field group (position, velocity, acceleration) at a time. Nil providers are ignored.
func OverlayLimits(base LimitProvider, overrides ...LimitProvider) LimitProvider {
	return overlayLimits(lo.Filter(append([]LimitProvider{base}, overrides...), func(p LimitProvider, _ int) bool {
		return p != nil
	}))
}

func (o overlayLimits) JointBounds(name string) (JointBounds, bool) {
	var merged JointBounds
	found := false
	for _, provider := range o {
		bounds, ok := provider.JointBounds(name)
		if !ok {
			continue
		}
		merged = merged.merge(bounds)
		found = true
	}
	merged.Name = name
	return merged, found
}

func (o overlayLimits) JointNames() []string {
	names := lo.Uniq(lo.FlatMap(o, func(p LimitProvider, _ int) []string {
		return p.JointNames()
	}))
	sort.Strings(names)
	return names
}
