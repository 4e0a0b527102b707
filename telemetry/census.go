package telemetry

import (
	"log/slog"
	"sort"
)

// Phenotyped is anything that can be grouped by genome fingerprint.
type Phenotyped interface {
	Fingerprint() uint32
	Describe() string
}

// Phenotype is one fingerprint group in a census.
type Phenotype struct {
	Generation  int    `csv:"generation"`
	Rank        int    `csv:"rank"`
	Fingerprint uint32 `csv:"fingerprint"`
	Count       int    `csv:"count"`
	Description string `csv:"description"`
}

// Census groups members by fingerprint and returns the n largest groups,
// largest first. Ties are broken by fingerprint. Each group is described by
// its first member.
func Census[T Phenotyped](generation int, members []T, n int) []Phenotype {
	counts := make(map[uint32]int)
	first := make(map[uint32]int)
	for i, m := range members {
		fp := m.Fingerprint()
		if _, ok := first[fp]; !ok {
			first[fp] = i
		}
		counts[fp]++
	}

	groups := make([]Phenotype, 0, len(counts))
	for fp, c := range counts {
		groups = append(groups, Phenotype{Generation: generation, Fingerprint: fp, Count: c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Fingerprint < groups[j].Fingerprint
	})
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	for i := range groups {
		groups[i].Rank = i + 1
		groups[i].Description = members[first[groups[i].Fingerprint]].Describe()
	}
	return groups
}

// Distinct counts distinct fingerprints.
func Distinct[T Phenotyped](members []T) int {
	seen := make(map[uint32]struct{})
	for _, m := range members {
		seen[m.Fingerprint()] = struct{}{}
	}
	return len(seen)
}

// LogPhenotypes logs a census report.
func LogPhenotypes(groups []Phenotype) {
	for _, g := range groups {
		slog.Info("phenotype",
			"generation", g.Generation,
			"rank", g.Rank,
			"fingerprint", g.Fingerprint,
			"count", g.Count,
			"genes", g.Description,
		)
	}
}
