package neural

import "fmt"

// ActionType enumerates agent actions. Values are bit flags above the sensor
// and relay tags.
type ActionType uint32

const (
	ActStay ActionType = 1 << (iota + 9)
	ActMoveNorth
	ActMoveSouth
	ActMoveEast
	ActMoveWest
	ActMoveRandom
	ActMoveCenterX
	ActMoveCenterY
	ActBully
	ActKill
	ActDefend

	actionSentinel
)

var actionNames = map[ActionType]string{
	ActStay:        "StayPut",
	ActMoveNorth:   "MoveNorth",
	ActMoveSouth:   "MoveSouth",
	ActMoveEast:    "MoveEast",
	ActMoveWest:    "MoveWest",
	ActMoveRandom:  "MoveRandom",
	ActMoveCenterX: "MoveTowardCenterX",
	ActMoveCenterY: "MoveTowardCenterY",
	ActBully:       "Bully",
	ActKill:        "Kill",
	ActDefend:      "Defend",
}

// MovementActions returns the actions that never touch another agent.
func MovementActions() []ActionType {
	return []ActionType{
		ActStay, ActMoveNorth, ActMoveSouth, ActMoveEast, ActMoveWest,
		ActMoveRandom, ActMoveCenterX, ActMoveCenterY,
	}
}

// AllActions returns every action type.
func AllActions() []ActionType {
	out := make([]ActionType, 0, len(actionNames))
	for t := ActStay; t < actionSentinel; t <<= 1 {
		out = append(out, t)
	}
	return out
}

// ParseAction maps an action name to its type.
func ParseAction(name string) (ActionType, error) {
	for t, n := range actionNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedAction, name)
}

func (t ActionType) valid() bool {
	_, ok := actionNames[t]
	return ok
}

func (t ActionType) String() string {
	if n, ok := actionNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Action(%d)", uint32(t))
}

// moves reports whether the action contributes to movement.
func (t ActionType) moves() bool {
	switch t {
	case ActMoveNorth, ActMoveSouth, ActMoveEast, ActMoveWest,
		ActMoveRandom, ActMoveCenterX, ActMoveCenterY:
		return true
	}
	return false
}

// Action is a terminal node. Its weight is raw and only squashed when turned
// into a probability.
type Action struct {
	ID      NodeID
	Type    ActionType
	Initial float64
	Weight  float64
}

func newAction(t ActionType) Action {
	return Action{ID: nextNodeID(), Type: t}
}

func (a *Action) NodeID() NodeID { return a.ID }

func (a *Action) UpdateWeight(w float64) { a.Weight += w }

func (a *Action) Reset() { a.Weight = a.Initial }

// Mutate perturbs the baseline weight and, when a catalog is given, may
// reassign the action type.
func (a *Action) Mutate(r Rand, catalog []ActionType) {
	a.Initial = perturb(a.Initial, r)
	a.Weight = a.Initial
	if len(catalog) > 0 && r.Bool() {
		a.Type = catalog[r.Intn(len(catalog))]
	}
}

func (a *Action) tag() uint32 { return uint32(a.Type) }
