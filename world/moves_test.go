package world

import (
	"testing"

	"github.com/pthm-cable/evolve/neural"
	"github.com/pthm-cable/evolve/rng"
)

func location(a *Agent) [2]int {
	x, y := a.Location()
	return [2]int{x, y}
}

func move(w *World, step int, moves map[*Agent]neural.Direction) {
	w.BeginStep(step)
	for _, a := range w.Roster() {
		if dir, ok := moves[a]; ok {
			w.MoveNodeTo(a, dir)
		}
	}
	w.EndStep()
}

func TestMoveIntoEmptyCell(t *testing.T) {
	w := newTestWorld(t, 5)
	a := placeAt(t, w, 2, 2)

	move(w, 3, map[*Agent]neural.Direction{a: neural.North})
	if got := location(a); got != [2]int{2, 3} {
		t.Errorf("location = %v, want [2 3]", got)
	}
	if a.LastMoveStep() != 3 {
		t.Errorf("last move step = %d, want 3", a.LastMoveStep())
	}
	if w.Stats().Moves != 1 {
		t.Errorf("moves = %d, want 1", w.Stats().Moves)
	}
	checkGrid(t, w)
}

func TestWallBlocking(t *testing.T) {
	tests := []struct {
		name  string
		start [2]int
		dir   neural.Direction
	}{
		{"wall", [2]int{2, 2}, neural.East},
		{"west edge", [2]int{0, 2}, neural.West},
		{"north edge", [2]int{1, 4}, neural.North},
		{"corner diagonal", [2]int{0, 0}, neural.Direction{DX: -1, DY: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, 5)
			if err := w.AddWall(Rect{X: 3, Y: 2, W: 1, H: 1}); err != nil {
				t.Fatal(err)
			}
			a := placeAt(t, w, tt.start[0], tt.start[1])

			move(w, 1, map[*Agent]neural.Direction{a: tt.dir})
			if got := location(a); got != tt.start {
				t.Errorf("moved to %v, want to stay at %v", got, tt.start)
			}
			if w.Stats().Blocked != 1 {
				t.Errorf("blocked = %d, want 1", w.Stats().Blocked)
			}
		})
	}
}

func TestBullyDisplacement(t *testing.T) {
	w := newTestWorld(t, 5)
	mover := placeAt(t, w, 1, 1)
	occ := placeAt(t, w, 2, 1)
	mover.Desire().Bully = 1

	move(w, 1, map[*Agent]neural.Direction{mover: neural.East})

	if got := location(mover); got != [2]int{2, 1} {
		t.Fatalf("mover at %v, want [2 1]", got)
	}
	got := location(occ)
	if got == [2]int{1, 1} || got == [2]int{2, 1} {
		t.Fatalf("occupant at %v, should have been pushed to a free neighbor", got)
	}
	dx, dy := got[0]-2, got[1]-1
	if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
		t.Errorf("occupant at %v is not adjacent to (2,1)", got)
	}
	if !occ.Alive() {
		t.Error("bullied occupant should survive")
	}
	if w.Stats().Bullied != 1 {
		t.Errorf("bullied = %d, want 1", w.Stats().Bullied)
	}
	checkGrid(t, w)
}

func TestBullySwapsWhenSurrounded(t *testing.T) {
	w := newTestWorld(t, 3)
	var mover, occ *Agent
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			a := placeAt(t, w, x, y)
			switch {
			case x == 0 && y == 1:
				mover = a
			case x == 1 && y == 1:
				occ = a
			}
		}
	}
	mover.Desire().Bully = 1

	move(w, 1, map[*Agent]neural.Direction{mover: neural.East})

	if got := location(mover); got != [2]int{1, 1} {
		t.Errorf("mover at %v, want [1 1]", got)
	}
	if got := location(occ); got != [2]int{0, 1} {
		t.Errorf("occupant at %v, want [0 1]", got)
	}
	if w.Stats().Swapped != 1 {
		t.Errorf("swapped = %d, want 1", w.Stats().Swapped)
	}
	checkGrid(t, w)
}

func TestDefendResistsBully(t *testing.T) {
	w := newTestWorld(t, 5)
	mover := placeAt(t, w, 1, 1)
	occ := placeAt(t, w, 2, 1)
	mover.Desire().Bully = 1
	occ.Desire().Defend = 1

	move(w, 1, map[*Agent]neural.Direction{mover: neural.East})

	if location(mover) != [2]int{1, 1} || location(occ) != [2]int{2, 1} {
		t.Errorf("defended bully moved agents: mover %v occupant %v", location(mover), location(occ))
	}
}

func TestKill(t *testing.T) {
	w := newTestWorld(t, 5)
	mover := placeAt(t, w, 1, 1)
	occ := placeAt(t, w, 2, 1)
	mover.Desire().Kill = 1

	move(w, 1, map[*Agent]neural.Direction{mover: neural.East})

	if occ.Alive() {
		t.Error("occupant survived a kill with no defense")
	}
	if w.Len() != 1 {
		t.Errorf("live agents = %d, want 1", w.Len())
	}
	for _, a := range w.Agents() {
		if a == occ {
			t.Error("killed agent still listed")
		}
	}
	if got := location(mover); got != [2]int{2, 1} {
		t.Errorf("mover at %v, want [2 1]", got)
	}
	checkGrid(t, w)
}

func TestKillReversal(t *testing.T) {
	w := newTestWorld(t, 5)
	mover := placeAt(t, w, 1, 1)
	occ := placeAt(t, w, 2, 1)
	mover.Desire().Kill = 1
	occ.Desire().Defend = 1

	move(w, 1, map[*Agent]neural.Direction{mover: neural.East})

	if mover.Alive() {
		t.Error("attacker should die when the defender wins")
	}
	if !occ.Alive() || location(occ) != [2]int{2, 1} {
		t.Error("defender should survive in place")
	}
	if w.Stats().Reversals != 1 {
		t.Errorf("reversals = %d, want 1", w.Stats().Reversals)
	}
	checkGrid(t, w)
}

func TestDeadMoverSkipped(t *testing.T) {
	w := newTestWorld(t, 5)
	killer := placeAt(t, w, 1, 1)
	victim := placeAt(t, w, 2, 1)
	killer.Desire().Kill = 1

	move(w, 1, map[*Agent]neural.Direction{
		killer: neural.East,
		victim: neural.North,
	})

	if victim.Alive() {
		t.Fatal("victim should be dead")
	}
	if w.AgentAt(2, 2) != nil {
		t.Error("dead agent's queued move was performed")
	}
	checkGrid(t, w)
}

func TestFirstRefusal(t *testing.T) {
	w := newTestWorld(t, 5)
	first := placeAt(t, w, 1, 1)
	second := placeAt(t, w, 3, 1)

	move(w, 1, map[*Agent]neural.Direction{
		first:  neural.East,
		second: neural.West,
	})

	if location(first) != [2]int{2, 1} {
		t.Errorf("first in roster should win the cell, at %v", location(first))
	}
	if location(second) != [2]int{3, 1} {
		t.Errorf("second should be blocked, at %v", location(second))
	}
}

func TestMoveAtomicity(t *testing.T) {
	w := newTestWorld(t, 5)
	a := placeAt(t, w, 2, 2)
	b := placeAt(t, w, 3, 2)

	w.BeginStep(1)
	w.MoveNodeTo(a, neural.West)

	// Nothing moves until the drain.
	if location(a) != [2]int{2, 2} {
		t.Fatal("MoveNodeTo moved the agent before EndStep")
	}
	if pop, _ := b.Sense(neural.SenseLocalPopulation); pop != 1.0/8 {
		t.Errorf("neighbor sees population %v mid-step, want 1/8", pop)
	}

	w.EndStep()
	if location(a) != [2]int{1, 2} {
		t.Errorf("after EndStep agent at %v, want [1 2]", location(a))
	}
	if pop, _ := b.Sense(neural.SenseLocalPopulation); pop != 0 {
		t.Errorf("population after move = %v, want 0", pop)
	}
}

func TestQueueInvariants(t *testing.T) {
	t.Run("BeginStep with pending moves", func(t *testing.T) {
		w := newTestWorld(t, 5)
		a := placeAt(t, w, 2, 2)
		w.BeginStep(1)
		w.MoveNodeTo(a, neural.East)
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		w.BeginStep(2)
	})

	t.Run("double enqueue", func(t *testing.T) {
		w := newTestWorld(t, 5)
		a := placeAt(t, w, 2, 2)
		w.BeginStep(1)
		w.MoveNodeTo(a, neural.East)
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		w.MoveNodeTo(a, neural.West)
	})
}

func TestGridExclusivityUnderRandomMoves(t *testing.T) {
	w := newTestWorld(t, 12)
	if err := w.AddWall(Rect{X: 5, Y: 0, W: 1, H: 8}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 60; i++ {
		a := NewAgent(nil, rng.NewStream(uint64(i)), 0)
		if err := w.AddAgentAtRandomLocation(a); err != nil {
			t.Fatal(err)
		}
	}

	r := rng.NewStream(8)
	for step := 1; step <= 200; step++ {
		w.BeginStep(step)
		for _, a := range w.Roster() {
			d := a.Desire()
			d.Bully = r.Float64()
			d.Kill = r.Float64() * 0.05
			d.Defend = r.Float64()
			dir := neural.Direction{DX: r.Intn(3) - 1, DY: r.Intn(3) - 1}
			if !dir.IsZero() {
				w.MoveNodeTo(a, dir)
			}
		}
		w.EndStep()
		checkGrid(t, w)
	}
	t.Logf("after 200 steps: %d alive, stats %+v", w.Len(), w.Stats())
}

func TestAgentExecuteQueuesMove(t *testing.T) {
	cfg := neural.DefaultConfig()
	cfg.GenesPerGenome = 1
	cfg.MaxRelays = 0
	cfg.Sensors = []neural.SensorType{neural.SenseDistanceWest}
	cfg.Actions = []neural.ActionType{neural.ActMoveEast}
	b, err := neural.NewBuilder(cfg)
	if err != nil {
		t.Fatal(err)
	}

	w := newTestWorld(t, 5)
	a := NewAgent(b.CreateRandom(rng.NewStream(1)), rng.NewStream(2), 0)
	if err := w.AddAgentAt(a, 2, 2); err != nil {
		t.Fatal(err)
	}

	moved := false
	for step := 1; step <= 50 && !moved; step++ {
		w.BeginStep(step)
		a.Reset()
		if err := a.Evaluate(); err != nil {
			t.Fatal(err)
		}
		if err := a.Execute(); err != nil {
			t.Fatal(err)
		}
		w.EndStep()
		if x, y := a.Location(); x != 2 {
			if x != 3 || y != 2 {
				t.Fatalf("agent moved to (%d,%d), only east is possible", x, y)
			}
			moved = true
		}
	}
	if !moved {
		t.Error("agent wired to MoveEast never moved in 50 steps")
	}
}
