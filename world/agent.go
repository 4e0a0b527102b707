package world

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolve/neural"
	"github.com/pthm-cable/evolve/rng"
)

// ErrNotPlaced is returned when an agent that is not on a grid is asked to sense.
var ErrNotPlaced = errors.New("world: agent not placed")

var agentIDs atomic.Uint32

// Agent is one organism: a genome, its own random stream and the desire
// produced by its last Execute.
type Agent struct {
	id         uint32
	generation int32
	genome     *neural.Genome
	rand       *rng.Stream
	desire     neural.Desire

	world  *World
	entity ecs.Entity
	slot   int // index in the current step roster, -1 when absent
}

// NewAgent creates an unplaced agent.
func NewAgent(g *neural.Genome, r *rng.Stream, generation int) *Agent {
	return &Agent{
		id:         agentIDs.Add(1),
		generation: int32(generation),
		genome:     g,
		rand:       r,
		slot:       -1,
	}
}

// ID is the agent's process-unique identifier.
func (a *Agent) ID() uint32 { return a.id }

// Generation is the generation the agent was born into.
func (a *Agent) Generation() int { return int(a.generation) }

// Genome returns the agent's genome.
func (a *Agent) Genome() *neural.Genome { return a.genome }

// Desire exposes the desire from the last Execute. Conflict resolution reads
// Bully, Kill and Defend from it.
func (a *Agent) Desire() *neural.Desire { return &a.desire }

// Rand returns the agent's random stream.
func (a *Agent) Rand() neural.Rand { return a.rand }

// Alive reports whether the agent is on a grid and has not been killed.
func (a *Agent) Alive() bool {
	if a.world == nil || !a.world.ecs.Alive(a.entity) {
		return false
	}
	return a.world.vitalsMap.Get(a.entity).Alive
}

// Location returns the agent's cell.
func (a *Agent) Location() (x, y int) {
	if a.world == nil {
		return -1, -1
	}
	pos := a.world.posMap.Get(a.entity)
	return int(pos.X), int(pos.Y)
}

// LastMoveStep is the step of the agent's last successful move.
func (a *Agent) LastMoveStep() int {
	if a.world == nil {
		return 0
	}
	return int(a.world.vitalsMap.Get(a.entity).LastMoveStep)
}

// Sense implements neural.Host.
func (a *Agent) Sense(t neural.SensorType) (float64, error) {
	if a.world == nil {
		return 0, ErrNotPlaced
	}
	return a.world.sense(a, t)
}

// Reset clears per-tick genome state and desire.
func (a *Agent) Reset() {
	if a.genome != nil {
		a.genome.Reset()
	}
	a.desire.Reset()
}

// Evaluate runs the genome against the agent's current surroundings.
func (a *Agent) Evaluate() error {
	if a.genome == nil {
		return nil
	}
	if err := a.genome.Evaluate(a); err != nil {
		return fmt.Errorf("agent %d evaluate: %w", a.id, err)
	}
	return nil
}

// Execute turns the evaluated genome into a desire and queues at most one
// move with the world.
func (a *Agent) Execute() error {
	if a.genome == nil {
		return nil
	}
	dir, moved, err := a.genome.Execute(a, &a.desire)
	if err != nil {
		return fmt.Errorf("agent %d execute: %w", a.id, err)
	}
	if moved && a.world != nil {
		a.world.MoveNodeTo(a, dir)
	}
	return nil
}

// Reproduce builds a child of a and other. The child is not placed.
func (a *Agent) Reproduce(other *Agent, b *neural.Builder, r *rng.Stream, generation int) *Agent {
	child := a.genome.Reproduce(other.genome, b, r)
	return NewAgent(child, r.Split(), generation)
}

// Fingerprint is the genome's phenotype fingerprint.
func (a *Agent) Fingerprint() uint32 {
	if a.genome == nil {
		return 0
	}
	return a.genome.Fingerprint()
}

// Describe renders the agent's genome.
func (a *Agent) Describe() string {
	if a.genome == nil {
		return ""
	}
	return a.genome.Describe()
}

func (a *Agent) LogValue() slog.Value {
	x, y := a.Location()
	return slog.GroupValue(
		slog.Any("id", a.id),
		slog.Int("x", x),
		slog.Int("y", y),
		slog.Int("genes", a.genomeLen()),
		slog.Any("fingerprint", a.Fingerprint()),
	)
}

func (a *Agent) genomeLen() int {
	if a.genome == nil {
		return 0
	}
	return a.genome.Len()
}
