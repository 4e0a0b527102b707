package neural

import (
	"fmt"
	"math"
)

// ExecuteMode selects how action weights become movement.
type ExecuteMode int

const (
	// ExecuteBlend lets every action contribute to the desire categories.
	ExecuteBlend ExecuteMode = iota
	// ExecuteCompelling keeps only the strongest movement action.
	ExecuteCompelling
)

// ParseExecuteMode maps a config string to an ExecuteMode.
func ParseExecuteMode(s string) (ExecuteMode, error) {
	switch s {
	case "", "blend":
		return ExecuteBlend, nil
	case "compelling":
		return ExecuteCompelling, nil
	}
	return 0, fmt.Errorf("unknown execute mode %q", s)
}

// Config holds genome construction and evaluation settings.
type Config struct {
	// GenesPerGenome is the target gene count C.
	GenesPerGenome int
	// MaxRelays caps the distinct relays in one genome.
	MaxRelays int
	// MutationRate is the per-gene probability of mutating its source and sink.
	MutationRate float64
	// ExactGeneCount tops up recombination to exactly GenesPerGenome genes.
	ExactGeneCount bool
	// MutateActionTypes lets action mutation reassign the action type.
	MutateActionTypes bool

	Sensors    []SensorType
	Actions    []ActionType
	Activation Activation
	Mode       ExecuteMode
}

// DefaultConfig returns a configuration with every sensor and the movement
// actions enabled.
func DefaultConfig() Config {
	return Config{
		GenesPerGenome: 16,
		MaxRelays:      3,
		MutationRate:   0.001,
		ExactGeneCount: true,
		Sensors:        AllSensors(),
		Actions:        MovementActions(),
		Activation:     Tanh,
		Mode:           ExecuteBlend,
	}
}

// Validate reports configuration faults.
func (c Config) Validate() error {
	if c.GenesPerGenome <= 0 {
		return fmt.Errorf("genes per genome must be positive, got %d", c.GenesPerGenome)
	}
	if c.MaxRelays < 0 || c.MaxRelays > math.MaxUint16 {
		return fmt.Errorf("max relays must be in [0,%d], got %d", math.MaxUint16, c.MaxRelays)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutation rate must be in [0,1], got %v", c.MutationRate)
	}
	if len(c.Sensors) == 0 && c.MaxRelays == 0 {
		return fmt.Errorf("no gene sources: sensors empty and max relays is 0")
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("at least one action must be enabled")
	}
	for _, s := range c.Sensors {
		if !s.valid() {
			return fmt.Errorf("%w: %d", ErrUnsupportedSensor, s)
		}
	}
	for _, a := range c.Actions {
		if !a.valid() {
			return fmt.Errorf("%w: %d", ErrUnsupportedAction, a)
		}
	}
	if c.Activation.Fn == nil {
		return fmt.Errorf("activation function not set")
	}
	return nil
}
