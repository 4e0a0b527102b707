package neural

import (
	"testing"

	"github.com/pthm-cable/evolve/rng"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.GenesPerGenome = 12
	cfg.MaxRelays = 3
	return cfg
}

func newTestBuilder(t testing.TB, cfg Config) *Builder {
	t.Helper()
	b, err := NewBuilder(cfg)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// reachesAction reports whether every gene's sink is an action or a node
// that transitively feeds one.
func reachesAction(g *Genome) bool {
	used := make(map[NodeRef]bool)
	for _, gene := range g.genes {
		if gene.Sink.Kind == KindAction {
			used[gene.Sink] = true
			used[gene.Source] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for _, gene := range g.genes {
			if used[gene.Sink] && !used[gene.Source] {
				used[gene.Source] = true
				changed = true
			}
		}
	}
	for _, gene := range g.genes {
		if !used[gene.Sink] {
			return false
		}
	}
	return true
}

func TestNewBuilderRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero genes", func(c *Config) { c.GenesPerGenome = 0 }},
		{"negative relays", func(c *Config) { c.MaxRelays = -1 }},
		{"relays past handle range", func(c *Config) { c.MaxRelays = 1 << 16 }},
		{"no actions", func(c *Config) { c.Actions = nil }},
		{"unknown sensor", func(c *Config) { c.Sensors = []SensorType{3} }},
		{"unknown action", func(c *Config) { c.Actions = []ActionType{1} }},
		{"rate above one", func(c *Config) { c.MutationRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewBuilder(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCreateRandomInvariants(t *testing.T) {
	b := newTestBuilder(t, testConfig())
	r := rng.NewStream(1)

	for i := 0; i < 500; i++ {
		g := b.CreateRandom(r)
		if g.Len() > 12 {
			t.Fatalf("genome has %d genes, want <= 12", g.Len())
		}
		if !Sorted(g.genes) {
			t.Fatalf("genes not in tier order:\n%s", g.Describe())
		}
		if !reachesAction(g) {
			t.Fatalf("genome keeps a gene that cannot reach an action:\n%s", g.Describe())
		}
		if g.RelayCount() > 3 {
			t.Fatalf("genome has %d relays, want <= 3", g.RelayCount())
		}
	}
}

func TestCreateRandomSharesSensorsByType(t *testing.T) {
	cfg := testConfig()
	cfg.Sensors = []SensorType{SenseBlocked}
	cfg.MaxRelays = 0
	cfg.Actions = []ActionType{ActMoveEast}
	b := newTestBuilder(t, cfg)

	g := b.CreateRandom(rng.NewStream(2))
	// Every gene is Blocked -> MoveEast; duplicates collapse to one.
	if g.Len() != 1 {
		t.Errorf("expected 1 gene after dedupe, got %d:\n%s", g.Len(), g.Describe())
	}
	if len(g.sensors) != 1 || len(g.actions) != 1 {
		t.Errorf("expected one sensor and one action, got %d and %d", len(g.sensors), len(g.actions))
	}
}

func TestOptimizePrunes(t *testing.T) {
	b := newTestBuilder(t, testConfig())
	c := b.acquire()
	defer b.release(c)

	s := c.sensor(SenseDistanceNorth)
	act := c.action(ActMoveNorth)
	r := rng.NewStream(3)
	r0 := c.relaySlot(0, r) // dead end
	r1 := c.relaySlot(1, r) // loops and feeds the action
	r2 := c.relaySlot(2, r) // feeds r1

	c.g.genes = []Gene{
		{ID: 1, Source: s, Sink: r0},
		{ID: 2, Source: r1, Sink: act},
		{ID: 3, Source: r1, Sink: r1},
		{ID: 4, Source: r2, Sink: r1},
		{ID: 5, Source: s, Sink: r2},
		{ID: 6, Source: s, Sink: act},
		{ID: 7, Source: s, Sink: act}, // duplicate of 6
	}
	c.optimize()

	got := make(map[GeneID]bool)
	for _, gene := range c.g.genes {
		got[gene.ID] = true
	}
	want := []GeneID{2, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("kept %d genes, want %d:\n%s", len(got), len(want), c.g.Describe())
	}
	for _, id := range want {
		if !got[id] {
			t.Errorf("gene %d pruned", id)
		}
	}
	if got[1] {
		t.Error("dead-end gene survived")
	}
	if c.g.RelayCount() != 2 {
		t.Errorf("expected dead relay compacted away, have %d relays", c.g.RelayCount())
	}
	if !Sorted(c.g.genes) {
		t.Error("genes not sorted after optimize")
	}

	// Tier order: sensor-sourced, loop, relay->relay, relay->action.
	tiers := make([]int, len(c.g.genes))
	for i, gene := range c.g.genes {
		tiers[i] = gene.tier()
	}
	wantTiers := []int{tierSensor, tierSensor, tierRelayLoop, tierRelayRelay, tierRelayAction}
	for i := range wantTiers {
		if tiers[i] != wantTiers[i] {
			t.Errorf("tiers = %v, want %v", tiers, wantTiers)
			break
		}
	}
}

func TestOptimizeEmptyIsValid(t *testing.T) {
	b := newTestBuilder(t, testConfig())
	c := b.acquire()
	defer b.release(c)

	r0 := c.relaySlot(0, rng.NewStream(1))
	c.g.genes = []Gene{{ID: 1, Source: r0, Sink: r0}}
	c.optimize()

	if c.g.Len() != 0 {
		t.Errorf("expected inert genome, got %d genes", c.g.Len())
	}
	var d Desire
	if _, moved, err := c.g.Execute(&fakeHost{r: rng.NewStream(1)}, &d); err != nil || moved {
		t.Errorf("inert genome: moved=%v err=%v", moved, err)
	}
}

func TestSortStableWithinTier(t *testing.T) {
	s := NodeRef{Kind: KindSensor}
	a := NodeRef{Kind: KindAction}
	r := NodeRef{Kind: KindRelay}
	genes := []Gene{
		{ID: 1, Source: r, Sink: a},
		{ID: 2, Source: s, Sink: a},
		{ID: 3, Source: r, Sink: r},
		{ID: 4, Source: s, Sink: r},
		{ID: 5, Source: r, Sink: a},
	}
	sortGenes(genes)

	var ids []GeneID
	for _, g := range genes {
		ids = append(ids, g.ID)
	}
	want := []GeneID{2, 4, 3, 1, 5}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func BenchmarkCreateRandom(b *testing.B) {
	cfg := DefaultConfig()
	builder := newTestBuilder(b, cfg)
	r := rng.NewStream(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		builder.CreateRandom(r)
	}
}
