package world

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evolve/components"
)

// randomPlacementTries bounds rejection sampling before falling back to a scan.
const randomPlacementTries = 32

// AddAgentAt places a into the free cell (x, y).
func (w *World) AddAgentAt(a *Agent, x, y int) error {
	if a.world != nil {
		return fmt.Errorf("agent %d already placed", a.id)
	}
	if !w.InBounds(x, y) {
		return fmt.Errorf("place agent %d at (%d,%d): %w", a.id, x, y, ErrCellUnavailable)
	}
	idx := w.index(x, y)
	if w.walls[idx] || w.cells[idx] != 0 {
		return fmt.Errorf("place agent %d at (%d,%d): %w", a.id, x, y, ErrCellUnavailable)
	}
	w.spawn(a, idx)
	return nil
}

// AddAgentAtRandomLocation places a in a uniformly chosen free cell.
func (w *World) AddAgentAtRandomLocation(a *Agent) error {
	if a.world != nil {
		return fmt.Errorf("agent %d already placed", a.id)
	}
	for i := 0; i < randomPlacementTries; i++ {
		idx := w.rand.Intn(len(w.cells))
		if !w.walls[idx] && w.cells[idx] == 0 {
			w.spawn(a, idx)
			return nil
		}
	}

	// Crowded grid: pick among the remaining free cells directly.
	var free []int
	for idx := range w.cells {
		if !w.walls[idx] && w.cells[idx] == 0 {
			free = append(free, idx)
		}
	}
	if len(free) == 0 {
		return ErrGridFull
	}
	w.spawn(a, free[w.rand.Intn(len(free))])
	return nil
}

func (w *World) spawn(a *Agent, idx int) {
	x, y := w.coords(idx)
	pos := components.Position{X: int32(x), Y: int32(y)}
	vitals := components.Vitals{Alive: true}
	org := components.Organism{ID: a.id, Generation: a.generation}
	if a.genome != nil {
		org.Fingerprint = a.genome.Fingerprint()
	}

	a.entity = w.mapper.NewEntity(&pos, &vitals, &org)
	a.world = w
	a.slot = -1
	w.cells[idx] = a.id
	w.agents[a.id] = a
}

// Len is the number of live agents.
func (w *World) Len() int {
	n := 0
	query := w.filter.Query()
	for query.Next() {
		_, vitals, _ := query.Get()
		if vitals.Alive {
			n++
		}
	}
	return n
}

// Agents returns the live agents in registry order.
func (w *World) Agents() []*Agent {
	var out []*Agent
	query := w.filter.Query()
	for query.Next() {
		_, vitals, org := query.Get()
		if vitals.Alive {
			out = append(out, w.agents[org.ID])
		}
	}
	return out
}

// RemoveAgentsWhere removes every live agent for which pred returns true and
// reports how many were removed.
func (w *World) RemoveAgentsWhere(pred func(a *Agent) bool) int {
	var doomed []*Agent
	query := w.filter.Query()
	for query.Next() {
		_, vitals, org := query.Get()
		if !vitals.Alive {
			continue
		}
		if a := w.agents[org.ID]; pred(a) {
			doomed = append(doomed, a)
		}
	}

	// Entities are removed after the query completes.
	for _, a := range doomed {
		w.despawn(a)
	}
	return len(doomed)
}

// Clear removes every agent.
func (w *World) Clear() {
	var all []ecs.Entity
	query := w.filter.Query()
	for query.Next() {
		all = append(all, query.Entity())
	}
	for _, e := range all {
		org := w.orgMap.Get(e)
		if a, ok := w.agents[org.ID]; ok {
			w.despawn(a)
		} else {
			w.ecs.RemoveEntity(e)
		}
	}
	clear(w.cells)
}

// kill marks a dead and frees its cell. The entity is removed by cleanupDead.
func (w *World) kill(a *Agent) {
	vitals := w.vitalsMap.Get(a.entity)
	if !vitals.Alive {
		return
	}
	vitals.Alive = false
	pos := w.posMap.Get(a.entity)
	idx := w.index(int(pos.X), int(pos.Y))
	if w.cells[idx] == a.id {
		w.cells[idx] = 0
	}
}

func (w *World) despawn(a *Agent) {
	if w.ecs.Alive(a.entity) {
		pos := w.posMap.Get(a.entity)
		idx := w.index(int(pos.X), int(pos.Y))
		if w.cells[idx] == a.id {
			w.cells[idx] = 0
		}
		w.ecs.RemoveEntity(a.entity)
	}
	delete(w.agents, a.id)
	a.world = nil
	a.slot = -1
}

// cleanupDead removes entities killed during the last drain.
func (w *World) cleanupDead() {
	var dead []*Agent
	query := w.filter.Query()
	for query.Next() {
		_, vitals, org := query.Get()
		if !vitals.Alive {
			dead = append(dead, w.agents[org.ID])
		}
	}
	for _, a := range dead {
		w.despawn(a)
	}
}
