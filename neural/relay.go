package neural

// relayTag marks a relay in gene fingerprints.
const relayTag uint32 = 1 << 8

// Relay is an internal node: it accumulates weight during a tick and feeds
// the squashed total onward.
type Relay struct {
	ID      NodeID
	Initial float64
	Weight  float64
}

func newRelay(initial float64) Relay {
	return Relay{ID: nextNodeID(), Initial: initial, Weight: initial}
}

func (r *Relay) NodeID() NodeID { return r.ID }

func (r *Relay) Activate(_ Host, act Activation) (float64, error) {
	return act.Fn(r.Weight), nil
}

func (r *Relay) UpdateWeight(w float64) { r.Weight += w }

func (r *Relay) Reset() { r.Weight = r.Initial }

// Mutate perturbs the baseline weight.
func (r *Relay) Mutate(rnd Rand) {
	r.Initial = perturb(r.Initial, rnd)
	r.Weight = r.Initial
}
