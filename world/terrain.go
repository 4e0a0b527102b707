package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// TerrainConfig controls procedural wall generation.
type TerrainConfig struct {
	Seed        int64
	Frequency   float64 // base noise frequency per cell
	Octaves     int
	Persistence float64
	Threshold   float64 // cells whose noise exceeds this become walls
	Keep        []Rect  // regions left clear
}

// GenerateTerrain turns high noise cells into walls and returns how many
// were added. Occupied cells and Keep regions are skipped.
func (w *World) GenerateTerrain(cfg TerrainConfig) int {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	noise := opensimplex.NewNormalized(cfg.Seed)

	added := 0
	for idx := range w.cells {
		if w.walls[idx] || w.cells[idx] != 0 {
			continue
		}
		x, y := w.coords(idx)
		if kept(cfg.Keep, x, y) {
			continue
		}
		v := octaveNoise(noise, float64(x), float64(y), cfg.Octaves, cfg.Frequency, cfg.Persistence)
		if v > cfg.Threshold {
			w.walls[idx] = true
			added++
		}
	}
	if added > 0 {
		w.buildNeighbors()
	}
	return added
}

func kept(rects []Rect, x, y int) bool {
	for _, r := range rects {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}

// octaveNoise sums octaves of normalized noise and rescales to [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
