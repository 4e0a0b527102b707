// Package sim drives generations: steps the board, culls agents outside the
// breeding zone, reports, and refills the board with children of the
// survivors.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/neural"
	"github.com/pthm-cable/evolve/render"
	"github.com/pthm-cable/evolve/rng"
	"github.com/pthm-cable/evolve/store"
	"github.com/pthm-cable/evolve/telemetry"
	"github.com/pthm-cable/evolve/world"
)

// ErrExtinct is returned when no agent survives a generation.
var ErrExtinct = errors.New("sim: population extinct")

// Clock is the position of the run.
type Clock struct {
	Generation int
	Step       int
}

// Outcome summarizes a finished run.
type Outcome struct {
	Generations   int
	SurvivalRatio float64
	Reason        string // generations | threshold | extinct | canceled
}

// Simulator owns one run.
type Simulator struct {
	cfg     *config.Config
	world   *world.World
	builder *neural.Builder
	rand    *rng.Stream
	pool    *pool
	zone    world.Rect
	clock   Clock

	highWater         int
	thresholdExceeded bool
	history           []telemetry.GenerationStats

	stepPerf *telemetry.PerfCollector
	genPerf  *telemetry.PerfCollector
	output   *telemetry.OutputManager
	store    *store.Store
	runID    string
	renderer *render.Renderer
}

// New builds the board, places the initial random population and opens the
// configured outputs.
func New(cfg *config.Config) (*Simulator, error) {
	gc, err := GenomeConfig(cfg)
	if err != nil {
		return nil, err
	}
	builder, err := neural.NewBuilder(gc)
	if err != nil {
		return nil, err
	}

	master := rng.NewStream(cfg.Sim.Seed)
	w, err := world.New(cfg.World.Dimension, master.Split())
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:      cfg,
		world:    w,
		builder:  builder,
		rand:     master,
		pool:     newPool(cfg.Sim.Workers, cfg.Sim.ParallelThreshold),
		zone:     toRect(cfg.Selection.BreedingZone),
		stepPerf: telemetry.NewPerfCollector(cfg.Population.StepsPerGeneration),
		genPerf:  telemetry.NewPerfCollector(max(cfg.Telemetry.PerfEvery, 1)),
	}

	if err := s.buildTerrain(); err != nil {
		return nil, err
	}
	if err := s.openOutputs(); err != nil {
		s.Close()
		return nil, err
	}

	initial := make([]*world.Agent, cfg.Population.Size)
	for i := range initial {
		r := master.Split()
		initial[i] = world.NewAgent(builder.CreateRandom(r), r, 1)
	}
	if err := s.populate(initial); err != nil {
		s.Close()
		return nil, err
	}

	slog.Info("simulator ready",
		"seed", cfg.Sim.Seed,
		"dimension", cfg.World.Dimension,
		"population", cfg.Population.Size,
		"walls", w.WallCount(),
		"workers", s.pool.numWorkers,
	)
	return s, nil
}

func (s *Simulator) buildTerrain() error {
	for _, r := range s.cfg.World.Walls {
		if err := s.world.AddWall(toRect(r)); err != nil {
			return fmt.Errorf("world.walls: %w", err)
		}
	}

	tc := s.cfg.World.Terrain
	if !tc.Enabled {
		return nil
	}
	var keep []world.Rect
	if s.cfg.Selection.KeepZoneClear {
		keep = append(keep, s.zone)
	}
	added := s.world.GenerateTerrain(world.TerrainConfig{
		Seed:        int64(s.rand.Uint64()),
		Frequency:   tc.Frequency,
		Octaves:     tc.Octaves,
		Persistence: tc.Persistence,
		Threshold:   tc.Threshold,
		Keep:        keep,
	})
	slog.Info("terrain generated", "walls", added)
	return nil
}

func (s *Simulator) openOutputs() error {
	om, err := telemetry.NewOutputManager(s.cfg.Telemetry.OutputDir)
	if err != nil {
		return err
	}
	s.output = om
	if err := om.WriteConfig(s.cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	if s.cfg.Render.Enabled {
		s.renderer = render.New(om.Dir(), s.cfg.Render.Scale, s.zone)
	}

	if s.cfg.Store.Path != "" {
		st, err := store.Open(s.cfg.Store.Path)
		if err != nil {
			return err
		}
		s.store = st
		data, err := yaml.Marshal(s.cfg)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		if s.runID, err = st.StartRun(s.cfg.Sim.Seed, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// populate places agents at random free cells.
func (s *Simulator) populate(agents []*world.Agent) error {
	for _, a := range agents {
		if err := s.world.AddAgentAtRandomLocation(a); err != nil {
			return fmt.Errorf("placing agent %d: %w", a.ID(), err)
		}
	}
	return nil
}

// World exposes the board.
func (s *Simulator) World() *world.World { return s.world }

// Clock returns the current generation and step.
func (s *Simulator) Clock() Clock { return s.clock }

// History returns the stats of every completed generation.
func (s *Simulator) History() []telemetry.GenerationStats { return s.history }

// RunID is the store's identifier for this run, empty without a store.
func (s *Simulator) RunID() string { return s.runID }

// Run plays generations until the limit, the success threshold or
// extinction. ctx is checked between generations.
func (s *Simulator) Run(ctx context.Context) (Outcome, error) {
	out := Outcome{Reason: "generations"}
	for gen := 1; gen <= s.cfg.Population.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			out.Reason = "canceled"
			s.finish(out)
			return out, err
		}

		stats, done, err := s.RunGeneration(gen)
		if err != nil {
			if errors.Is(err, ErrExtinct) {
				out.Reason = "extinct"
			}
			s.finish(out)
			return out, err
		}
		out.Generations = gen
		out.SurvivalRatio = stats.SurvivalRatio
		if done {
			out.Reason = "threshold"
			break
		}
	}
	s.finish(out)
	return out, nil
}

func (s *Simulator) finish(out Outcome) {
	slog.Info("run finished",
		"reason", out.Reason,
		"generations", out.Generations,
		"survival_ratio", out.SurvivalRatio,
	)
	if dir := s.output.Dir(); dir != "" {
		if path, err := telemetry.SaveSnapshot(s.snapshot(out), dir); err != nil {
			slog.Error("saving snapshot", "error", err)
		} else {
			slog.Info("snapshot saved", "path", path)
		}
	}
	if s.store != nil {
		if err := s.store.FinishRun(s.runID, out.Generations, out.Reason); err != nil {
			slog.Error("finishing run", "error", err)
		}
	}
}

func (s *Simulator) snapshot(out Outcome) *telemetry.Snapshot {
	snap := &telemetry.Snapshot{
		Version:       telemetry.SnapshotVersion,
		Seed:          s.cfg.Sim.Seed,
		Dimension:     s.world.Dimension(),
		Generation:    out.Generations,
		SurvivalRatio: out.SurvivalRatio,
	}
	for _, a := range s.world.Agents() {
		x, y := a.Location()
		snap.Agents = append(snap.Agents, telemetry.AgentState{
			ID:          a.ID(),
			X:           x,
			Y:           y,
			Fingerprint: a.Fingerprint(),
			Genes:       a.Genome().Len(),
			Description: a.Describe(),
		})
	}
	return snap
}

// Close stops the workers and closes outputs.
func (s *Simulator) Close() error {
	s.pool.stop()
	var errs []error
	if err := s.output.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
