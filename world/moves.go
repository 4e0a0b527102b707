package world

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/evolve/neural"
)

// intent is a queued move for one roster slot.
type intent struct {
	dir    neural.Direction
	queued bool
}

// MoveStats counts move outcomes since the last ResetStats.
type MoveStats struct {
	Moves     int `csv:"moves"`
	Blocked   int `csv:"blocked"`
	Bullied   int `csv:"bullied"`
	Swapped   int `csv:"swapped"`
	Kills     int `csv:"kills"`
	Reversals int `csv:"reversals"` // kills turned back on the attacker
}

func (s MoveStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("moves", s.Moves),
		slog.Int("blocked", s.Blocked),
		slog.Int("bullied", s.Bullied),
		slog.Int("swapped", s.Swapped),
		slog.Int("kills", s.Kills),
		slog.Int("reversals", s.Reversals),
	)
}

// Stats returns the accumulated move outcomes.
func (w *World) Stats() MoveStats { return w.stats }

// ResetStats zeroes the move outcome counters.
func (w *World) ResetStats() { w.stats = MoveStats{} }

// BeginStep opens a tick. It snapshots the live agents into the roster that
// indexes the move queue. The queue must be empty.
func (w *World) BeginStep(step int) {
	if n := w.pending.Load(); n != 0 {
		panic(fmt.Sprintf("world: BeginStep with %d queued moves", n))
	}
	w.step = step

	for _, a := range w.roster {
		a.slot = -1
	}
	w.roster = w.roster[:0]
	query := w.filter.Query()
	for query.Next() {
		_, vitals, org := query.Get()
		if !vitals.Alive {
			continue
		}
		a := w.agents[org.ID]
		a.slot = len(w.roster)
		w.roster = append(w.roster, a)
	}

	if cap(w.queue) < len(w.roster) {
		w.queue = make([]intent, len(w.roster))
	} else {
		w.queue = w.queue[:len(w.roster)]
		clear(w.queue)
	}
}

// Roster returns the agents snapshotted by the last BeginStep. The slice is
// reused by the next BeginStep.
func (w *World) Roster() []*Agent { return w.roster }

// MoveNodeTo queues a move for a. Each agent writes only its own slot, so
// concurrent callers never race and the drain order follows the roster.
func (w *World) MoveNodeTo(a *Agent, dir neural.Direction) {
	if a.world != w || a.slot < 0 || a.slot >= len(w.roster) || w.roster[a.slot] != a {
		panic(fmt.Sprintf("world: agent %d is not in the current step", a.id))
	}
	if w.queue[a.slot].queued {
		panic(fmt.Sprintf("world: agent %d queued twice in one step", a.id))
	}
	w.queue[a.slot] = intent{dir: dir, queued: true}
	w.pending.Add(1)
}

// EndStep drains the move queue in order and removes agents killed in it.
func (w *World) EndStep() {
	for i := range w.queue {
		it := w.queue[i]
		if !it.queued {
			continue
		}
		w.queue[i] = intent{}
		w.PerformNodeMove(w.roster[i], it.dir)
	}
	w.pending.Store(0)
	w.cleanupDead()
}

// PerformNodeMove resolves one move against the current grid.
func (w *World) PerformNodeMove(a *Agent, dir neural.Direction) {
	if !a.Alive() {
		return
	}
	pos := w.posMap.Get(a.entity)
	tx, ty := int(pos.X)+dir.DX, int(pos.Y)+dir.DY
	if !w.InBounds(tx, ty) || w.walls[w.index(tx, ty)] {
		w.stats.Blocked++
		return
	}
	target := w.index(tx, ty)

	if occID := w.cells[target]; occID != 0 {
		occ := w.agents[occID]

		if w.rand.Chance(a.desire.Bully) && !w.rand.Chance(occ.desire.Defend) {
			if !w.displace(occ, target) {
				w.swap(a, occ)
				w.stats.Swapped++
				return
			}
			w.stats.Bullied++
		}

		if w.cells[target] != 0 && w.rand.Chance(a.desire.Kill) {
			if w.rand.Chance(occ.desire.Defend) {
				w.kill(a)
				w.stats.Reversals++
				return
			}
			w.kill(occ)
			w.stats.Kills++
		}

		if w.cells[target] != 0 {
			w.stats.Blocked++
			return
		}
	}

	w.relocate(a, target)
	w.vitalsMap.Get(a.entity).LastMoveStep = int32(w.step)
	w.stats.Moves++
}

// displace pushes the occupant of cell into a random empty neighbor of that
// cell. It reports false when every neighbor is taken.
func (w *World) displace(occ *Agent, cell int) bool {
	var free [8]int32
	n := 0
	for _, ni := range w.neighbors[cell] {
		if w.cells[ni] == 0 {
			free[n] = ni
			n++
		}
	}
	if n == 0 {
		return false
	}
	w.relocate(occ, int(free[w.rand.Intn(n)]))
	return true
}

// swap exchanges the cells of a and b. a is the mover.
func (w *World) swap(a, b *Agent) {
	pa := w.posMap.Get(a.entity)
	pb := w.posMap.Get(b.entity)
	ia := w.index(int(pa.X), int(pa.Y))
	ib := w.index(int(pb.X), int(pb.Y))

	*pa, *pb = *pb, *pa
	w.cells[ia], w.cells[ib] = b.id, a.id
	w.vitalsMap.Get(a.entity).LastMoveStep = int32(w.step)
}

// relocate moves a into the empty cell idx.
func (w *World) relocate(a *Agent, idx int) {
	pos := w.posMap.Get(a.entity)
	from := w.index(int(pos.X), int(pos.Y))
	if w.cells[idx] != 0 {
		panic(fmt.Sprintf("world: relocate agent %d into occupied cell %d", a.id, idx))
	}
	w.cells[from] = 0
	w.cells[idx] = a.id
	x, y := w.coords(idx)
	pos.X, pos.Y = int32(x), int32(y)
}
