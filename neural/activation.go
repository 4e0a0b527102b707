package neural

import (
	"fmt"
	"math"
)

// Activation is a named squashing function applied to node outputs.
type Activation struct {
	Name string
	Fn   func(float64) float64
}

var (
	Tanh    = Activation{Name: "tanh", Fn: math.Tanh}
	Sigmoid = Activation{Name: "sigmoid", Fn: sigmoid}
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ParseActivation maps a config string to an Activation.
func ParseActivation(name string) (Activation, error) {
	switch name {
	case "", "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	}
	return Activation{}, fmt.Errorf("unknown activation %q", name)
}

// Probability squashes a raw weight and clamps it to [0,1].
func (a Activation) Probability(w float64) float64 {
	p := a.Fn(w)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
