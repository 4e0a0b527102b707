// Package world provides the square grid agents live on: walls, cell
// occupancy, sensor readings and the per-tick move queue.
package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolve/components"
	"github.com/pthm-cable/evolve/rng"
)

var (
	// ErrGridFull is returned when no free cell is left for placement.
	ErrGridFull = errors.New("world: no free cell")
	// ErrCellUnavailable is returned when a cell is off-grid, a wall or occupied.
	ErrCellUnavailable = errors.New("world: cell unavailable")
)

// Rect is an axis-aligned block of cells.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// neighborOffsets are the 8-connected steps around a cell.
var neighborOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// World is a dimension x dimension grid. Each cell holds at most one agent.
type World struct {
	dim   int
	cells []uint32 // agent ID per cell, 0 when empty
	walls []bool

	// neighbors[i] lists the on-board, non-wall cells around cell i.
	neighbors [][]int32

	ecs       *ecs.World
	mapper    *ecs.Map3[components.Position, components.Vitals, components.Organism]
	filter    *ecs.Filter3[components.Position, components.Vitals, components.Organism]
	posMap    *ecs.Map1[components.Position]
	vitalsMap *ecs.Map1[components.Vitals]
	orgMap    *ecs.Map1[components.Organism]
	agents    map[uint32]*Agent

	rand rng.Source

	step    int
	roster  []*Agent
	queue   []intent
	pending atomic.Int64
	stats   MoveStats
}

// New creates an empty grid. r drives placement and conflict resolution.
func New(dimension int, r rng.Source) (*World, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("world dimension must be positive, got %d", dimension)
	}
	w := ecs.NewWorld()
	g := &World{
		dim:       dimension,
		cells:     make([]uint32, dimension*dimension),
		walls:     make([]bool, dimension*dimension),
		ecs:       w,
		mapper:    ecs.NewMap3[components.Position, components.Vitals, components.Organism](w),
		filter:    ecs.NewFilter3[components.Position, components.Vitals, components.Organism](w),
		posMap:    ecs.NewMap1[components.Position](w),
		vitalsMap: ecs.NewMap1[components.Vitals](w),
		orgMap:    ecs.NewMap1[components.Organism](w),
		agents:    make(map[uint32]*Agent),
		rand:      r,
	}
	g.buildNeighbors()
	return g, nil
}

// Dimension is the side length of the grid.
func (w *World) Dimension() int { return w.dim }

// Step is the step number set by the last BeginStep.
func (w *World) Step() int { return w.step }

// InBounds reports whether (x, y) is on the grid.
func (w *World) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < w.dim && y < w.dim
}

func (w *World) index(x, y int) int { return y*w.dim + x }

func (w *World) coords(i int) (int, int) { return i % w.dim, i / w.dim }

// IsWall reports whether (x, y) is a wall. Off-grid cells count as walls.
func (w *World) IsWall(x, y int) bool {
	if !w.InBounds(x, y) {
		return true
	}
	return w.walls[w.index(x, y)]
}

// AddWall marks every on-grid cell of r as a wall. Cells already holding an
// agent are refused.
func (w *World) AddWall(r Rect) error {
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if w.InBounds(x, y) && w.cells[w.index(x, y)] != 0 {
				return fmt.Errorf("add wall at (%d,%d): %w", x, y, ErrCellUnavailable)
			}
		}
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			if w.InBounds(x, y) {
				w.walls[w.index(x, y)] = true
			}
		}
	}
	w.buildNeighbors()
	return nil
}

// WallCount is the number of wall cells.
func (w *World) WallCount() int {
	n := 0
	for _, wall := range w.walls {
		if wall {
			n++
		}
	}
	return n
}

// buildNeighbors precomputes the valid neighbors of every cell.
func (w *World) buildNeighbors() {
	if w.neighbors == nil {
		w.neighbors = make([][]int32, len(w.cells))
	}
	for i := range w.cells {
		x, y := w.coords(i)
		list := w.neighbors[i][:0]
		for _, off := range neighborOffsets {
			nx, ny := x+off[0], y+off[1]
			if !w.InBounds(nx, ny) {
				continue
			}
			ni := w.index(nx, ny)
			if w.walls[ni] {
				continue
			}
			list = append(list, int32(ni))
		}
		w.neighbors[i] = list
	}
}

// AgentAt returns the agent occupying (x, y), or nil.
func (w *World) AgentAt(x, y int) *Agent {
	if !w.InBounds(x, y) {
		return nil
	}
	id := w.cells[w.index(x, y)]
	if id == 0 {
		return nil
	}
	return w.agents[id]
}
