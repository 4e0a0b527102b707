// Package components defines ECS components for agents on the grid.
package components

// Position is an agent's grid cell.
type Position struct {
	X, Y int32
}

// Vitals tracks liveness and movement history.
type Vitals struct {
	Alive        bool
	LastMoveStep int32 // step of the most recent successful move, 0 if never
}
