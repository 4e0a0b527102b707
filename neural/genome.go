package neural

import (
	"fmt"
	"math"
	"strings"
)

// Genome is an agent's control network: node arenas plus the genes that wire
// them, kept in evaluation order.
type Genome struct {
	sensors []Sensor
	relays  []Relay
	actions []Action
	genes   []Gene

	act  Activation
	mode ExecuteMode
}

// Genes returns a copy of the gene list.
func (g *Genome) Genes() []Gene {
	return append([]Gene(nil), g.genes...)
}

// Len is the number of genes.
func (g *Genome) Len() int { return len(g.genes) }

// RelayCount is the number of distinct relays referenced by the genome.
func (g *Genome) RelayCount() int { return len(g.relays) }

// NodeID resolves a handle to the node's identity.
func (g *Genome) NodeID(ref NodeRef) NodeID {
	switch ref.Kind {
	case KindSensor:
		return g.sensors[ref.Index].ID
	case KindRelay:
		return g.relays[ref.Index].ID
	case KindAction:
		return g.actions[ref.Index].ID
	}
	panic(fmt.Sprintf("neural: invalid node handle %+v", ref))
}

func (g *Genome) source(ref NodeRef) Activator {
	switch ref.Kind {
	case KindSensor:
		return &g.sensors[ref.Index]
	case KindRelay:
		return &g.relays[ref.Index]
	}
	panic(fmt.Sprintf("neural: %s cannot be a gene source", ref.Kind))
}

func (g *Genome) sink(ref NodeRef) Sink {
	switch ref.Kind {
	case KindRelay:
		return &g.relays[ref.Index]
	case KindAction:
		return &g.actions[ref.Index]
	}
	panic(fmt.Sprintf("neural: %s cannot be a gene sink", ref.Kind))
}

func (g *Genome) tag(ref NodeRef) uint32 {
	switch ref.Kind {
	case KindSensor:
		return g.sensors[ref.Index].tag()
	case KindRelay:
		return relayTag
	case KindAction:
		return g.actions[ref.Index].tag()
	}
	return 0
}

func (g *Genome) label(ref NodeRef) string {
	switch ref.Kind {
	case KindSensor:
		return "Sensor(" + g.sensors[ref.Index].Type.String() + ")"
	case KindRelay:
		r := g.relays[ref.Index]
		return fmt.Sprintf("Relay#%d(%.3f)", ref.Index, g.act.Fn(r.Weight))
	case KindAction:
		a := g.actions[ref.Index]
		return fmt.Sprintf("Action(%s %.3f)", a.Type, g.act.Fn(a.Weight))
	}
	return "?"
}

// Evaluate propagates activations along every gene in sorted order.
func (g *Genome) Evaluate(h Host) error {
	for _, gene := range g.genes {
		v, err := g.source(gene.Source).Activate(h, g.act)
		if err != nil {
			return err
		}
		g.sink(gene.Sink).UpdateWeight(v)
	}
	return nil
}

// Reset returns relays and actions to their baseline weights.
func (g *Genome) Reset() {
	for i := range g.relays {
		g.relays[i].Reset()
	}
	for i := range g.actions {
		g.actions[i].Reset()
	}
}

// Execute projects action weights into d and decides a move. It reports
// false when the agent stays put this tick.
func (g *Genome) Execute(h Host, d *Desire) (Direction, bool, error) {
	d.Reset()
	r := h.Rand()

	strongest := -1
	if g.mode == ExecuteCompelling {
		best := math.Inf(-1)
		for i, a := range g.actions {
			if (a.Type.moves() || a.Type == ActStay) && a.Weight > best {
				best, strongest = a.Weight, i
			}
		}
	}

	var hasBully, hasKill, hasDefend bool
	for i := range g.actions {
		a := &g.actions[i]
		w := a.Weight
		if strongest >= 0 && i != strongest && (a.Type.moves() || a.Type == ActStay) {
			continue
		}

		switch a.Type {
		case ActStay:
			d.Stay += w
		case ActMoveNorth:
			d.MoveY += w
		case ActMoveSouth:
			d.MoveY -= w
		case ActMoveEast:
			d.MoveX += w
		case ActMoveWest:
			d.MoveX -= w
		case ActMoveRandom:
			d.MoveX += w * float64(r.Intn(3)-1)
			d.MoveY += w * float64(r.Intn(3)-1)
		case ActMoveCenterX:
			west, err := h.Sense(SenseDistanceWest)
			if err != nil {
				return Direction{}, false, err
			}
			d.MoveX += w * towardCenter(west)
		case ActMoveCenterY:
			south, err := h.Sense(SenseDistanceSouth)
			if err != nil {
				return Direction{}, false, err
			}
			d.MoveY += w * towardCenter(south)
		case ActBully:
			d.Bully += w
			hasBully = true
		case ActKill:
			d.Kill += w
			hasKill = true
		case ActDefend:
			d.Defend += w
			hasDefend = true
		default:
			return Direction{}, false, fmt.Errorf("%w: %s", ErrUnsupportedAction, a.Type)
		}
	}

	d.Bully = g.probability(d.Bully, hasBully)
	d.Kill = g.probability(d.Kill, hasKill)
	d.Defend = g.probability(d.Defend, hasDefend)

	moveMag := math.Max(math.Abs(d.MoveX), math.Abs(d.MoveY))
	if d.Stay > moveMag && r.Chance(g.act.Probability(d.Stay)) {
		return Direction{}, false, nil
	}

	var dir Direction
	if d.MoveX != 0 && r.Chance(g.act.Probability(math.Abs(d.MoveX))) {
		dir.DX = sign(d.MoveX)
	}
	if d.MoveY != 0 && r.Chance(g.act.Probability(math.Abs(d.MoveY))) {
		dir.DY = sign(d.MoveY)
	}
	if dir.IsZero() {
		return Direction{}, false, nil
	}
	return dir, true, nil
}

func (g *Genome) probability(w float64, present bool) float64 {
	if !present {
		return 0
	}
	return g.act.Probability(w)
}

// towardCenter turns a normalized distance from the low edge into a step
// sign toward the middle of the axis.
func towardCenter(frac float64) float64 {
	switch {
	case frac < 0.5:
		return 1
	case frac > 0.5:
		return -1
	}
	return 0
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// Fingerprint ORs the type tags of every gene's endpoints.
func (g *Genome) Fingerprint() uint32 {
	var fp uint32
	for _, gene := range g.genes {
		fp |= g.tag(gene.Source) | g.tag(gene.Sink)
	}
	return fp
}

// Describe renders one line per gene.
func (g *Genome) Describe() string {
	var sb strings.Builder
	for _, gene := range g.genes {
		sb.WriteString(g.label(gene.Source))
		sb.WriteString(" -> ")
		sb.WriteString(g.label(gene.Sink))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Reproduce recombines g with other into a new genome.
func (g *Genome) Reproduce(other *Genome, b *Builder, r Rand) *Genome {
	return b.Recombine(g, other, r)
}
