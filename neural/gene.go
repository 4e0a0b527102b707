package neural

import (
	"slices"
	"sync/atomic"
)

// GeneID identifies a gene instance.
type GeneID uint64

var geneIDs atomic.Uint64

func nextGeneID() GeneID {
	return GeneID(geneIDs.Add(1))
}

// Gene is a directed weighted link from a source node to a sink node.
type Gene struct {
	ID     GeneID
	Source NodeRef
	Sink   NodeRef
}

// Evaluation tiers. Lower tiers run first.
const (
	tierSensor = iota
	tierRelayLoop
	tierRelayRelay
	tierRelayAction
)

// tier places sensor-fed genes first, then self-loops on a relay, then
// relay-to-relay links, and relay-to-action links last.
func (g Gene) tier() int {
	switch {
	case g.Source.Kind == KindSensor:
		return tierSensor
	case g.Sink.Kind == KindAction:
		return tierRelayAction
	case g.Source == g.Sink:
		return tierRelayLoop
	default:
		return tierRelayRelay
	}
}

// sortGenes orders genes by tier, preserving relative order within a tier.
func sortGenes(genes []Gene) {
	slices.SortStableFunc(genes, func(a, b Gene) int {
		return a.tier() - b.tier()
	})
}

// Sorted reports whether genes are in evaluation order.
func Sorted(genes []Gene) bool {
	return slices.IsSortedFunc(genes, func(a, b Gene) int {
		return a.tier() - b.tier()
	})
}
