package main

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/sim"
)

// FitnessEvaluator runs short simulations and scores them.
type FitnessEvaluator struct {
	params     *ParamVector
	seeds      []uint64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastRatio   float64 // mean final survival ratio of the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastRatio returns the mean survival ratio from the most recent evaluation.
func (fe *FitnessEvaluator) LastRatio() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRatio
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	ratio   float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(x, s)
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalRatio float64
	for _, r := range results {
		totalFitness += r.fitness
		totalRatio += r.ratio
	}
	n := float64(len(fe.seeds))
	avg := totalFitness / n

	fe.mu.Lock()
	fe.bestFitness = min(fe.bestFitness, avg)
	fe.lastRatio = totalRatio / n
	fe.mu.Unlock()

	return avg
}

// runSimulation executes one run with outputs disabled.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) seedResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Sim.Seed = seed

	s, err := sim.New(cfg)
	if err != nil {
		// Unbuildable parameters score worst.
		return seedResult{fitness: 0}
	}
	defer s.Close()

	out, err := s.Run(context.Background())
	if err != nil && !errors.Is(err, sim.ErrExtinct) {
		return seedResult{fitness: 0}
	}
	return seedResult{
		fitness: computeFitness(out, cfg.Population.Generations),
		ratio:   out.SurvivalRatio,
	}
}

// copyConfig copies the base config with every output surface switched off.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Telemetry.OutputDir = ""
	cfg.Telemetry.PerfEvery = 0
	cfg.Render.Enabled = false
	cfg.Store.Path = ""
	return &cfg
}

// computeFitness scores a run (lower = better).
// Formula: -(survival_ratio + speed), where speed is the unused share of the
// generation budget when the success threshold ended the run early.
// Extinct runs score 0.
func computeFitness(out sim.Outcome, generations int) float64 {
	if out.Reason == "extinct" {
		return 0
	}
	speed := 0.0
	if out.Reason == "threshold" && generations > 0 {
		speed = 1 - float64(out.Generations)/float64(generations)
	}
	return -(out.SurvivalRatio + speed)
}
