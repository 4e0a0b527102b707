package world

import (
	"fmt"
	"math"

	"github.com/pthm-cable/evolve/neural"
)

// sense returns the raw reading of sensor t for a, normalized to [0,1].
// North is the +Y edge.
func (w *World) sense(a *Agent, t neural.SensorType) (float64, error) {
	pos := w.posMap.Get(a.entity)
	x, y := float64(pos.X), float64(pos.Y)
	span := float64(w.dim - 1)
	if span == 0 {
		span = 1
	}

	switch t {
	case neural.SenseDistanceNorth:
		return (span - y) / span, nil
	case neural.SenseDistanceSouth:
		return y / span, nil
	case neural.SenseDistanceEast:
		return (span - x) / span, nil
	case neural.SenseDistanceWest:
		return x / span, nil
	case neural.SenseDistanceCenter:
		c := span / 2
		maxDist := math.Hypot(c, c)
		if maxDist == 0 {
			return 0, nil
		}
		return math.Hypot(x-c, y-c) / maxDist, nil
	case neural.SenseLocalPopulation:
		return float64(w.occupiedNeighbors(int(pos.X), int(pos.Y))) / 8, nil
	case neural.SenseBlocked:
		return float64(8-w.freeNeighbors(int(pos.X), int(pos.Y))) / 8, nil
	case neural.SenseTimeSinceMove:
		if w.step <= 0 {
			return 0, nil
		}
		last := int(w.vitalsMap.Get(a.entity).LastMoveStep)
		return float64(w.step-last) / float64(w.step), nil
	}
	return 0, fmt.Errorf("%w: %s", neural.ErrUnsupportedSensor, t)
}

// occupiedNeighbors counts agents in the 8 cells around (x, y).
func (w *World) occupiedNeighbors(x, y int) int {
	n := 0
	for _, ni := range w.neighbors[w.index(x, y)] {
		if w.cells[ni] != 0 {
			n++
		}
	}
	return n
}

// freeNeighbors counts on-grid, non-wall, empty cells around (x, y).
func (w *World) freeNeighbors(x, y int) int {
	n := 0
	for _, ni := range w.neighbors[w.index(x, y)] {
		if w.cells[ni] == 0 {
			n++
		}
	}
	return n
}
