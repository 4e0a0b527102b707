package neural

import "github.com/pthm-cable/evolve/rng"

// parentGene is a gene still bound to the genome it came from.
type parentGene struct {
	owner *Genome
	gene  Gene
}

func (p parentGene) key() [2]NodeID {
	return [2]NodeID{p.owner.NodeID(p.gene.Source), p.owner.NodeID(p.gene.Sink)}
}

// Recombine builds a child genome from two parents: their genes are mixed,
// deduplicated, deep-copied under the relay budget, mutated and pruned.
// Parents are not modified.
func (b *Builder) Recombine(a, other *Genome, r Rand) *Genome {
	c := b.acquire()
	defer b.release(c)

	c.mix(a, other, r)
	c.adopt(r)
	c.topUp(r)
	c.mutate(r)
	c.optimize()
	return c.g
}

// mix concatenates both parents' genes, shuffles and keeps the first C.
func (c *construction) mix(a, b *Genome, r Rand) {
	for _, gene := range a.genes {
		c.mixed = append(c.mixed, parentGene{owner: a, gene: gene})
	}
	for _, gene := range b.genes {
		c.mixed = append(c.mixed, parentGene{owner: b, gene: gene})
	}
	rng.Shuffle(r, c.mixed)
	if len(c.mixed) > c.cfg.GenesPerGenome {
		c.mixed = c.mixed[:c.cfg.GenesPerGenome]
	}
}

// adopt copies the mixed genes into the child, skipping duplicate links and
// reducing relays to the budget.
func (c *construction) adopt(r Rand) {
	clear(c.pairs)
	for _, pg := range c.mixed {
		key := pg.key()
		if _, dup := c.pairs[key]; dup {
			continue
		}
		c.pairs[key] = struct{}{}

		src, ok := c.copyNode(pg.owner, pg.gene.Source, r)
		if !ok {
			continue
		}
		sink, ok := c.copyNode(pg.owner, pg.gene.Sink, r)
		if !ok {
			continue
		}
		c.g.genes = append(c.g.genes, Gene{ID: nextGeneID(), Source: src, Sink: sink})
	}
}

// topUp adds random genes until the child has exactly C when the parents
// together carried fewer.
func (c *construction) topUp(r Rand) {
	if !c.cfg.ExactGeneCount {
		return
	}
	for len(c.g.genes) < c.cfg.GenesPerGenome {
		src := c.randomAdoptedSource(r)
		sink := c.randomAdoptedSink(r)
		c.g.genes = append(c.g.genes, Gene{ID: nextGeneID(), Source: src, Sink: sink})
	}
}

func (c *construction) randomAdoptedSource(r Rand) NodeRef {
	if len(c.cfg.Sensors) > 0 && (c.cfg.MaxRelays == 0 || r.Bool()) {
		return c.sensor(c.cfg.Sensors[r.Intn(len(c.cfg.Sensors))])
	}
	return c.budgetRelay(r)
}

func (c *construction) randomAdoptedSink(r Rand) NodeRef {
	if c.cfg.MaxRelays == 0 || r.Bool() {
		return c.action(c.cfg.Actions[r.Intn(len(c.cfg.Actions))])
	}
	return c.budgetRelay(r)
}

// budgetRelay creates a relay while under budget, otherwise reuses one.
func (c *construction) budgetRelay(r Rand) NodeRef {
	if len(c.g.relays) < c.cfg.MaxRelays {
		idx := uint16(len(c.g.relays))
		c.g.relays = append(c.g.relays, newRelay(r.Float64()))
		return NodeRef{Kind: KindRelay, Index: idx}
	}
	return NodeRef{Kind: KindRelay, Index: uint16(r.Intn(len(c.g.relays)))}
}

// copyNode maps a parent node into the child arena. Sensors and actions are
// shared per type; relays are admitted until the budget is reached and then
// replaced by a random admitted relay. It reports false when a relay is
// needed but the budget is zero.
func (c *construction) copyNode(parent *Genome, ref NodeRef, r Rand) (NodeRef, bool) {
	switch ref.Kind {
	case KindSensor:
		return c.sensor(parent.sensors[ref.Index].Type), true

	case KindAction:
		src := parent.actions[ref.Index]
		_, seen := c.actionByType[src.Type]
		out := c.action(src.Type)
		if !seen {
			a := &c.g.actions[out.Index]
			a.Initial = src.Initial
			a.Weight = src.Initial
		}
		return out, true

	case KindRelay:
		src := parent.relays[ref.Index]
		if idx, ok := c.relayByID[src.ID]; ok {
			return NodeRef{Kind: KindRelay, Index: idx}, true
		}
		if len(c.g.relays) < c.cfg.MaxRelays {
			idx := uint16(len(c.g.relays))
			c.g.relays = append(c.g.relays, newRelay(src.Initial))
			c.relayByID[src.ID] = idx
			return NodeRef{Kind: KindRelay, Index: idx}, true
		}
		if len(c.g.relays) == 0 {
			return NodeRef{}, false
		}
		return NodeRef{Kind: KindRelay, Index: uint16(r.Intn(len(c.g.relays)))}, true
	}
	return NodeRef{}, false
}

// mutate gates each gene's source and sink on the mutation rate.
func (c *construction) mutate(r Rand) {
	rate := c.cfg.MutationRate
	if rate <= 0 {
		return
	}
	for _, gene := range c.g.genes {
		if r.Chance(rate) {
			c.mutateNode(gene.Source, r)
		}
		if r.Chance(rate) {
			c.mutateNode(gene.Sink, r)
		}
	}
}

func (c *construction) mutateNode(ref NodeRef, r Rand) {
	switch ref.Kind {
	case KindSensor:
		c.g.sensors[ref.Index].Mutate(r, c.cfg.Sensors)
	case KindRelay:
		c.g.relays[ref.Index].Mutate(r)
	case KindAction:
		var catalog []ActionType
		if c.cfg.MutateActionTypes {
			catalog = c.cfg.Actions
		}
		c.g.actions[ref.Index].Mutate(r, catalog)
	}
}
