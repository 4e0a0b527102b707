package sim

import (
	"fmt"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/neural"
	"github.com/pthm-cable/evolve/world"
)

// GenomeConfig translates the genome and actions sections into a builder
// configuration. Empty sensor and movement lists select the full catalogs.
func GenomeConfig(cfg *config.Config) (neural.Config, error) {
	nc := neural.Config{
		GenesPerGenome:    cfg.Genome.Genes,
		MaxRelays:         cfg.Genome.MaxRelays,
		MutationRate:      cfg.Genome.MutationRate,
		ExactGeneCount:    cfg.Genome.ExactGeneCount,
		MutateActionTypes: cfg.Genome.MutateActionTypes,
	}

	act, err := neural.ParseActivation(cfg.Genome.Activation)
	if err != nil {
		return nc, fmt.Errorf("genome.activation: %w", err)
	}
	nc.Activation = act

	mode, err := neural.ParseExecuteMode(cfg.Genome.ExecuteMode)
	if err != nil {
		return nc, fmt.Errorf("genome.execute_mode: %w", err)
	}
	nc.Mode = mode

	if len(cfg.Genome.Sensors) == 0 {
		nc.Sensors = neural.AllSensors()
	}
	for _, name := range cfg.Genome.Sensors {
		t, err := neural.ParseSensor(name)
		if err != nil {
			return nc, fmt.Errorf("genome.sensors: %w", err)
		}
		nc.Sensors = append(nc.Sensors, t)
	}

	if len(cfg.Actions.Movement) == 0 {
		nc.Actions = neural.MovementActions()
	}
	for _, name := range cfg.Actions.Movement {
		t, err := neural.ParseAction(name)
		if err != nil {
			return nc, fmt.Errorf("actions.movement: %w", err)
		}
		nc.Actions = append(nc.Actions, t)
	}
	for _, opt := range []struct {
		on bool
		t  neural.ActionType
	}{
		{cfg.Actions.Bully, neural.ActBully},
		{cfg.Actions.Kill, neural.ActKill},
		{cfg.Actions.Defend, neural.ActDefend},
	} {
		if opt.on {
			nc.Actions = append(nc.Actions, opt.t)
		}
	}

	return nc, nc.Validate()
}

func toRect(r config.Rect) world.Rect {
	return world.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
}
