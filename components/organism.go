package components

// Organism bundles identity and lineage.
type Organism struct {
	ID          uint32
	Generation  int32  // generation the agent was born into
	Fingerprint uint32 // phenotype fingerprint of the agent's genome
}
