package neural

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrUnsupportedSensor is returned when a host cannot read a sensor type.
	ErrUnsupportedSensor = errors.New("unsupported sensor type")
	// ErrUnsupportedAction is returned when an action type has no projection.
	ErrUnsupportedAction = errors.New("unsupported action type")
)

// NodeID identifies a node instance. IDs are unique for the process lifetime
// and only used for identity, never ordering.
type NodeID uint64

var nodeIDs atomic.Uint64

func nextNodeID() NodeID {
	return NodeID(nodeIDs.Add(1))
}

// NodeKind distinguishes the three node arenas of a genome.
type NodeKind uint8

const (
	KindSensor NodeKind = iota + 1
	KindRelay
	KindAction
)

func (k NodeKind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindRelay:
		return "relay"
	case KindAction:
		return "action"
	}
	return "unknown"
}

// NodeRef is a handle into one of a genome's node arenas.
type NodeRef struct {
	Kind  NodeKind
	Index uint16
}

// Host is the agent-side view a genome needs while evaluating.
type Host interface {
	// Sense returns the raw reading for a sensor type, normally in [0,1].
	Sense(t SensorType) (float64, error)
	// Rand is the host's own random stream.
	Rand() Rand
}

// Rand is the subset of rng.Source the engine draws from.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Bool() bool
	Chance(p float64) bool
}

// Activator produces an activation value for a host.
type Activator interface {
	NodeID() NodeID
	Activate(h Host, act Activation) (float64, error)
}

// Sink accepts weight and can be reset to its baseline.
type Sink interface {
	NodeID() NodeID
	UpdateWeight(w float64)
	Reset()
}

var (
	_ Activator = (*Sensor)(nil)
	_ Activator = (*Relay)(nil)
	_ Sink      = (*Relay)(nil)
	_ Sink      = (*Action)(nil)
)

// perturb nudges w toward 1 or toward 0 by a random fraction.
func perturb(w float64, r Rand) float64 {
	f := r.Float64()
	if r.Bool() {
		return w + f*(1-w)
	}
	return w * f
}
