// Package referenceframe holds the joint space types shared by the trajectory tooling: joint inputs,
// joint limits and the providers that read limits from robot descriptions.
package referenceframe

import (
	"gonum.org/v1/gonum/floats"
)

// Input wraps the input to a mutable frame, e.g. a joint angle or a gantry position.
//   - revolute inputs should be in radians.
//   - prismatic inputs should be in meters.
type Input struct {
	Value float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps Inputs to raw floats.
func InputsToFloats(inputs []Input) []float64 {
	floats := make([]float64, len(inputs))
	for i, f := range inputs {
		floats[i] = f.Value
	}
	return floats
}

// InputsL2Distance returns the two-norm between the from and to vectors.
func InputsL2Distance(from, to []Input) float64 {
	diff := make([]float64, 0, len(from))
	for i, f := range from {
		diff = append(diff, f.Value-to[i].Value)
	}
	// 2 is the L value returning a standard L2 Normalization
	return floats.Norm(diff, 2)
}

// InputsPathLength returns the length of the polyline through the given waypoints.
func InputsPathLength(waypoints [][]Input) float64 {
	var length float64
	for i := 1; i < len(waypoints); i++ {
		length += InputsL2Distance(waypoints[i-1], waypoints[i])
	}
	return length
}
