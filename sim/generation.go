package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/evolve/rng"
	"github.com/pthm-cable/evolve/telemetry"
	"github.com/pthm-cable/evolve/world"
)

// Step advances the board by one tick.
func (s *Simulator) Step() error {
	return s.step(false)
}

func (s *Simulator) step(render bool) error {
	s.clock.Step++
	s.stepPerf.StartTick()

	s.stepPerf.StartPhase(telemetry.PhaseBeginStep)
	s.world.BeginStep(s.clock.Step)

	s.stepPerf.StartPhase(telemetry.PhaseThink)
	err := s.pool.run(s.world.Roster())

	// The queue must be drained even when thinking failed.
	s.stepPerf.StartPhase(telemetry.PhaseResolve)
	s.world.EndStep()

	if render && s.clock.Step%max(s.cfg.Render.Every, 1) == 0 {
		s.stepPerf.StartPhase(telemetry.PhaseRender)
		s.exportFrame()
	}
	s.stepPerf.EndTick()

	if err != nil {
		return fmt.Errorf("generation %d step %d: %w", s.clock.Generation, s.clock.Step, err)
	}
	return nil
}

func (s *Simulator) exportFrame() {
	if s.renderer == nil {
		return
	}
	if _, err := s.renderer.Export(s.world, s.clock.Generation, s.clock.Step); err != nil {
		slog.Error("exporting frame", "error", err)
	}
}

// rendering reports whether generation gen exports frames: the first, the
// last, and the one after the success threshold is crossed.
func (s *Simulator) rendering(gen int) bool {
	if s.renderer == nil {
		return false
	}
	return gen == 1 || gen == s.cfg.Population.Generations || s.thresholdExceeded
}

// RunGeneration plays one generation. done is true once the run should stop
// because the success threshold was crossed in the previous generation.
// The board is refilled with children unless the run is ending.
func (s *Simulator) RunGeneration(gen int) (telemetry.GenerationStats, bool, error) {
	started := time.Now()
	s.clock = Clock{Generation: gen}
	render := s.rendering(gen)
	done := s.thresholdExceeded

	stats := telemetry.GenerationStats{
		Generation: gen,
		Population: s.world.Len(),
	}
	s.genomeStats(&stats)

	s.world.ResetStats()
	for step := 0; step < s.cfg.Population.StepsPerGeneration; step++ {
		if err := s.step(render); err != nil {
			return stats, done, err
		}
	}
	moves := s.world.Stats()

	s.genPerf.StartTick()
	s.genPerf.StartPhase(telemetry.PhaseSelection)
	s.world.RemoveAgentsWhere(func(a *world.Agent) bool {
		x, y := a.Location()
		return !s.zone.Contains(x, y)
	})
	survivors := s.world.Agents()

	if render {
		s.genPerf.StartPhase(telemetry.PhaseRender)
		s.clock.Step++
		s.exportFrame()
	}

	s.genPerf.StartPhase(telemetry.PhaseTelemetry)
	stats.Survivors = len(survivors)
	stats.SurvivalRatio = float64(len(survivors)) / float64(s.cfg.Population.Size)
	stats.Moves = moves.Moves
	stats.Blocked = moves.Blocked
	stats.Bullied = moves.Bullied
	stats.Swapped = moves.Swapped
	stats.Kills = moves.Kills
	stats.Reversals = moves.Reversals
	stats.Phenotypes = telemetry.Distinct(survivors)
	s.report(gen, survivors, render)

	s.thresholdExceeded = stats.SurvivalRatio >= s.cfg.Selection.SuccessThreshold
	last := done || gen == s.cfg.Population.Generations

	var err error
	if len(survivors) == 0 {
		err = fmt.Errorf("%w: generation %d", ErrExtinct, gen)
	} else if !last {
		s.genPerf.StartPhase(telemetry.PhaseReproduction)
		err = s.reproduce(gen+1, survivors)
	}
	s.genPerf.EndTick()

	stats.DurationMS = time.Since(started).Milliseconds()
	s.record(stats)
	return stats, done, err
}

func (s *Simulator) genomeStats(stats *telemetry.GenerationStats) {
	agents := s.world.Agents()
	genes := make([]float64, len(agents))
	var relays float64
	for i, a := range agents {
		genes[i] = float64(a.Genome().Len())
		relays += float64(a.Genome().RelayCount())
	}
	stats.SetGenes(telemetry.Summarize(genes))
	if len(agents) > 0 {
		stats.RelaysMean = relays / float64(len(agents))
	}
}

// report lists the most common survivor phenotypes on a new high-water mark
// or a rendered generation.
func (s *Simulator) report(gen int, survivors []*world.Agent, render bool) {
	if len(survivors) <= s.highWater && !render {
		return
	}
	s.highWater = len(survivors)

	groups := telemetry.Census(gen, survivors, s.cfg.Telemetry.ReportTop)
	telemetry.LogPhenotypes(groups)
	if err := s.output.WritePhenotypes(groups); err != nil {
		slog.Error("writing phenotypes", "error", err)
	}
	if s.store != nil {
		if err := s.store.SavePhenotypes(s.runID, groups); err != nil {
			slog.Error("storing phenotypes", "error", err)
		}
	}
}

// reproduce replaces the board with Population.Size children of uniformly
// sampled survivor pairs.
func (s *Simulator) reproduce(generation int, survivors []*world.Agent) error {
	children := make([]*world.Agent, s.cfg.Population.Size)
	for i := range children {
		a, err := rng.Pick(s.rand, survivors)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExtinct, err)
		}
		b, err := rng.Pick(s.rand, survivors)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExtinct, err)
		}
		children[i] = a.Reproduce(b, s.builder, s.rand, generation)
	}
	s.world.Clear()
	return s.populate(children)
}

func (s *Simulator) record(stats telemetry.GenerationStats) {
	s.history = append(s.history, stats)
	stats.LogStats()
	if err := s.output.WriteGeneration(stats); err != nil {
		slog.Error("writing generation stats", "error", err)
	}
	if s.store != nil {
		if err := s.store.SaveGeneration(s.runID, stats); err != nil {
			slog.Error("storing generation", "error", err)
		}
	}

	every := s.cfg.Telemetry.PerfEvery
	if every <= 0 || stats.Generation%every != 0 {
		return
	}
	step, gen := s.stepPerf.Stats(), s.genPerf.Stats()
	slog.Info("perf", "generation", stats.Generation, "step", step, "between_generations", gen)
	if err := s.output.WritePerf(step, stats.Generation, "step"); err != nil {
		slog.Error("writing perf", "error", err)
	}
	if err := s.output.WritePerf(gen, stats.Generation, "generation"); err != nil {
		slog.Error("writing perf", "error", err)
	}
}
