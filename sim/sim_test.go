package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/neural"
	"github.com/pthm-cable/evolve/store"
)

func testConfig(t testing.TB) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.World.Dimension = 24
	cfg.Population.Size = 60
	cfg.Population.Generations = 3
	cfg.Population.StepsPerGeneration = 15
	cfg.Genome.Genes = 6
	cfg.Selection.BreedingZone = config.Rect{X: 0, Y: 0, W: 12, H: 24}
	cfg.Telemetry.PerfEvery = 1
	return cfg
}

func newSim(t testing.TB, cfg *config.Config) *Simulator {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGenomeConfig(t *testing.T) {
	cfg := testConfig(t)
	gc, err := GenomeConfig(cfg)
	if err != nil {
		t.Fatalf("GenomeConfig: %v", err)
	}
	if len(gc.Sensors) != len(neural.AllSensors()) {
		t.Errorf("sensors = %d, want all %d", len(gc.Sensors), len(neural.AllSensors()))
	}
	if len(gc.Actions) != len(neural.MovementActions()) {
		t.Errorf("actions = %d, want movement set", len(gc.Actions))
	}

	cfg.Actions.Movement = []string{"MoveEast", "MoveWest"}
	cfg.Actions.Kill = true
	gc, err = GenomeConfig(cfg)
	if err != nil {
		t.Fatalf("GenomeConfig: %v", err)
	}
	want := []neural.ActionType{neural.ActMoveEast, neural.ActMoveWest, neural.ActKill}
	if len(gc.Actions) != len(want) {
		t.Fatalf("actions = %v, want %v", gc.Actions, want)
	}
	for i := range want {
		if gc.Actions[i] != want[i] {
			t.Errorf("action %d = %v, want %v", i, gc.Actions[i], want[i])
		}
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   error
	}{
		{"bad sensor", func(c *config.Config) { c.Genome.Sensors = []string{"Smell"} }, neural.ErrUnsupportedSensor},
		{"bad action", func(c *config.Config) { c.Actions.Movement = []string{"Fly"} }, neural.ErrUnsupportedAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig(t)
			tt.mutate(c)
			if _, err := GenomeConfig(c); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	c := testConfig(t)
	c.Genome.ExecuteMode = "loudest"
	if _, err := GenomeConfig(c); err == nil {
		t.Error("expected execute mode error")
	}
}

func TestNewPlacesPopulation(t *testing.T) {
	cfg := testConfig(t)
	s := newSim(t, cfg)

	agents := s.World().Agents()
	if len(agents) != cfg.Population.Size {
		t.Fatalf("placed %d agents, want %d", len(agents), cfg.Population.Size)
	}
	seen := make(map[[2]int]bool)
	for _, a := range agents {
		x, y := a.Location()
		if seen[[2]int{x, y}] {
			t.Fatalf("two agents at (%d,%d)", x, y)
		}
		seen[[2]int{x, y}] = true
		if a.Genome().Len() > cfg.Genome.Genes {
			t.Errorf("agent %d has %d genes", a.ID(), a.Genome().Len())
		}
	}
}

func TestStepKeepsGridExclusive(t *testing.T) {
	cfg := testConfig(t)
	s := newSim(t, cfg)

	for i := 0; i < 20; i++ {
		if err := s.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if got := s.Clock().Step; got != 20 {
		t.Errorf("clock step = %d, want 20", got)
	}
	agents := s.World().Agents()
	if len(agents) != cfg.Population.Size {
		t.Errorf("population changed within a generation: %d", len(agents))
	}
	for _, a := range agents {
		x, y := a.Location()
		if s.World().AgentAt(x, y) != a {
			t.Fatalf("cell (%d,%d) does not hold agent %d", x, y, a.ID())
		}
	}
	if s.World().Stats().Moves == 0 {
		t.Error("no agent moved in 20 steps")
	}
}

// Same seed, same outcome: sequential and parallel thinking must agree.
func TestRunDeterministic(t *testing.T) {
	run := func(workers, threshold int) []float64 {
		cfg := testConfig(t)
		cfg.Sim.Seed = 77
		cfg.Sim.Workers = workers
		cfg.Sim.ParallelThreshold = threshold
		s := newSim(t, cfg)
		if _, err := s.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		var out []float64
		for _, st := range s.History() {
			out = append(out,
				float64(st.Survivors), float64(st.Moves), float64(st.Blocked),
				st.GenesMean, st.RelaysMean, float64(st.Phenotypes),
			)
		}
		return out
	}

	a := run(1, 1000)
	b := run(4, 1)
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("history lengths %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverge at value %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRunRefillsPopulation(t *testing.T) {
	cfg := testConfig(t)
	s := newSim(t, cfg)

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Generations != cfg.Population.Generations || out.Reason != "generations" {
		t.Errorf("outcome = %+v", out)
	}
	for _, st := range s.History() {
		if st.Population != cfg.Population.Size {
			t.Errorf("generation %d started with %d agents", st.Generation, st.Population)
		}
		if st.Survivors > st.Population {
			t.Errorf("generation %d: %d survivors of %d", st.Generation, st.Survivors, st.Population)
		}
	}
	for _, a := range s.World().Agents() {
		x, y := a.Location()
		if !s.zone.Contains(x, y) {
			t.Errorf("survivor %d outside the breeding zone at (%d,%d)", a.ID(), x, y)
		}
	}
}

func TestRunStopsAfterThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Generations = 10
	cfg.Selection.BreedingZone = config.Rect{X: 0, Y: 0, W: 24, H: 24}
	cfg.Selection.SuccessThreshold = 0.5
	s := newSim(t, cfg)

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Reason != "threshold" || out.Generations != 2 {
		t.Errorf("outcome = %+v, want threshold after generation 2", out)
	}
	if len(s.History()) != 2 {
		t.Errorf("history has %d generations, want 2", len(s.History()))
	}
}

func TestRunExtinct(t *testing.T) {
	cfg := testConfig(t)
	cfg.World.Walls = []config.Rect{{X: 0, Y: 0, W: 1, H: 1}}
	cfg.Selection.BreedingZone = config.Rect{X: 0, Y: 0, W: 1, H: 1}
	s := newSim(t, cfg)

	out, err := s.Run(context.Background())
	if !errors.Is(err, ErrExtinct) {
		t.Fatalf("err = %v, want ErrExtinct", err)
	}
	if out.Reason != "extinct" {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestRunCanceled(t *testing.T) {
	s := newSim(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out.Reason != "canceled" || len(s.History()) != 0 {
		t.Errorf("outcome = %+v after %d generations", out, len(s.History()))
	}
}

func TestRunOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Population.Generations = 2
	cfg.Telemetry.OutputDir = dir
	cfg.Render.Enabled = true
	cfg.Render.Scale = 2
	cfg.Render.Every = 5
	cfg.Store.Path = filepath.Join(dir, "runs.db")
	s := newSim(t, cfg)

	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, name := range []string{
		"config.yaml",
		"generations.csv",
		"perf.csv",
		"phenotypes.csv",
		filepath.Join("gen-1", "frame-5.png"),
		filepath.Join("gen-1", "frame-16.png"),
		filepath.Join("gen-2", "frame-15.png"),
		"snapshot_gen_2.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	gens, err := db.Generations(s.RunID())
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(gens) != out.Generations {
		t.Errorf("stored %d generations, want %d", len(gens), out.Generations)
	}
	run, err := db.Run(s.RunID())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Outcome != out.Reason {
		t.Errorf("stored outcome %q, want %q", run.Outcome, out.Reason)
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := testConfig(b)
	cfg.World.Dimension = 128
	cfg.Population.Size = 1000
	cfg.Genome.Genes = 16
	s := newSim(b, cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Step(); err != nil {
			b.Fatal(err)
		}
	}
}
