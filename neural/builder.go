package neural

import (
	"fmt"
	"sync"
)

// Builder constructs genomes, either at random or by recombining parents.
// It is safe for concurrent use; each call works in its own scratch arena.
type Builder struct {
	cfg     Config
	scratch sync.Pool
}

// NewBuilder validates cfg and returns a builder for it.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genome config: %w", err)
	}
	b := &Builder{cfg: cfg}
	b.scratch.New = func() any { return newConstruction() }
	return b, nil
}

// Config returns the builder's configuration.
func (b *Builder) Config() Config { return b.cfg }

// construction is the per-call registry: type caches, identity maps and the
// in-use set for pruning.
type construction struct {
	cfg *Config
	g   *Genome

	sensorByType map[SensorType]uint16
	actionByType map[ActionType]uint16
	relayBySlot  map[int]uint16
	relayByID    map[NodeID]uint16

	pairs map[[2]NodeID]struct{}
	inUse map[NodeRef]struct{}

	mixed []parentGene
}

func newConstruction() *construction {
	return &construction{
		sensorByType: make(map[SensorType]uint16),
		actionByType: make(map[ActionType]uint16),
		relayBySlot:  make(map[int]uint16),
		relayByID:    make(map[NodeID]uint16),
		pairs:        make(map[[2]NodeID]struct{}),
		inUse:        make(map[NodeRef]struct{}),
	}
}

func (b *Builder) acquire() *construction {
	c := b.scratch.Get().(*construction)
	c.cfg = &b.cfg
	c.g = &Genome{act: b.cfg.Activation, mode: b.cfg.Mode}
	return c
}

func (b *Builder) release(c *construction) {
	clear(c.sensorByType)
	clear(c.actionByType)
	clear(c.relayBySlot)
	clear(c.relayByID)
	clear(c.pairs)
	clear(c.inUse)
	clear(c.mixed)
	c.mixed = c.mixed[:0]
	c.g = nil
	c.cfg = nil
	b.scratch.Put(c)
}

// CreateRandom builds a genome of random genes and prunes it.
func (b *Builder) CreateRandom(r Rand) *Genome {
	c := b.acquire()
	defer b.release(c)

	for i := 0; i < b.cfg.GenesPerGenome; i++ {
		c.g.genes = append(c.g.genes, c.randomGene(r))
	}
	c.optimize()
	return c.g
}

func (c *construction) randomGene(r Rand) Gene {
	return Gene{ID: nextGeneID(), Source: c.randomSource(r), Sink: c.randomSink(r)}
}

func (c *construction) randomSource(r Rand) NodeRef {
	if len(c.cfg.Sensors) > 0 && (c.cfg.MaxRelays == 0 || r.Bool()) {
		return c.sensor(c.cfg.Sensors[r.Intn(len(c.cfg.Sensors))])
	}
	return c.relaySlot(r.Intn(c.cfg.MaxRelays), r)
}

func (c *construction) randomSink(r Rand) NodeRef {
	if c.cfg.MaxRelays == 0 || r.Bool() {
		return c.action(c.cfg.Actions[r.Intn(len(c.cfg.Actions))])
	}
	return c.relaySlot(r.Intn(c.cfg.MaxRelays), r)
}

// sensor returns the cached sensor of type t, creating it on first use.
func (c *construction) sensor(t SensorType) NodeRef {
	idx, ok := c.sensorByType[t]
	if !ok {
		idx = uint16(len(c.g.sensors))
		c.g.sensors = append(c.g.sensors, newSensor(t))
		c.sensorByType[t] = idx
	}
	return NodeRef{Kind: KindSensor, Index: idx}
}

func (c *construction) action(t ActionType) NodeRef {
	idx, ok := c.actionByType[t]
	if !ok {
		idx = uint16(len(c.g.actions))
		c.g.actions = append(c.g.actions, newAction(t))
		c.actionByType[t] = idx
	}
	return NodeRef{Kind: KindAction, Index: idx}
}

func (c *construction) relaySlot(slot int, r Rand) NodeRef {
	idx, ok := c.relayBySlot[slot]
	if !ok {
		idx = uint16(len(c.g.relays))
		c.g.relays = append(c.g.relays, newRelay(r.Float64()))
		c.relayBySlot[slot] = idx
	}
	return NodeRef{Kind: KindRelay, Index: idx}
}

// optimize prunes genes that cannot reach an action, removes duplicate
// links, sorts into evaluation order and compacts the node arenas.
func (c *construction) optimize() {
	g := c.g

	clear(c.inUse)
	for _, gene := range g.genes {
		if gene.Sink.Kind == KindAction {
			c.inUse[gene.Sink] = struct{}{}
			c.inUse[gene.Source] = struct{}{}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, gene := range g.genes {
			if _, ok := c.inUse[gene.Sink]; !ok {
				continue
			}
			if _, ok := c.inUse[gene.Source]; !ok {
				c.inUse[gene.Source] = struct{}{}
				changed = true
			}
		}
	}

	kept := g.genes[:0]
	for _, gene := range g.genes {
		if _, ok := c.inUse[gene.Sink]; ok {
			kept = append(kept, gene)
		}
	}
	g.genes = c.dedupe(kept)
	sortGenes(g.genes)
	c.compact()
}

// dedupe drops genes whose (source, sink) identity pair was already seen.
func (c *construction) dedupe(genes []Gene) []Gene {
	clear(c.pairs)
	out := genes[:0]
	for _, gene := range genes {
		key := [2]NodeID{c.g.NodeID(gene.Source), c.g.NodeID(gene.Sink)}
		if _, dup := c.pairs[key]; dup {
			continue
		}
		c.pairs[key] = struct{}{}
		out = append(out, gene)
	}
	return out
}

// compact drops nodes no gene references and rewrites handles.
func (c *construction) compact() {
	g := c.g
	sensorMap := make([]int, len(g.sensors))
	relayMap := make([]int, len(g.relays))
	actionMap := make([]int, len(g.actions))
	for i := range sensorMap {
		sensorMap[i] = -1
	}
	for i := range relayMap {
		relayMap[i] = -1
	}
	for i := range actionMap {
		actionMap[i] = -1
	}

	var sensors []Sensor
	var relays []Relay
	var actions []Action
	remap := func(ref NodeRef) NodeRef {
		switch ref.Kind {
		case KindSensor:
			if sensorMap[ref.Index] < 0 {
				sensorMap[ref.Index] = len(sensors)
				sensors = append(sensors, g.sensors[ref.Index])
			}
			ref.Index = uint16(sensorMap[ref.Index])
		case KindRelay:
			if relayMap[ref.Index] < 0 {
				relayMap[ref.Index] = len(relays)
				relays = append(relays, g.relays[ref.Index])
			}
			ref.Index = uint16(relayMap[ref.Index])
		case KindAction:
			if actionMap[ref.Index] < 0 {
				actionMap[ref.Index] = len(actions)
				actions = append(actions, g.actions[ref.Index])
			}
			ref.Index = uint16(actionMap[ref.Index])
		}
		return ref
	}

	for i := range g.genes {
		g.genes[i].Source = remap(g.genes[i].Source)
		g.genes[i].Sink = remap(g.genes[i].Sink)
	}
	g.sensors, g.relays, g.actions = sensors, relays, actions
}
