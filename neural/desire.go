package neural

// Direction is a unit grid step; each component is -1, 0 or 1.
// North is +Y.
type Direction struct {
	DX, DY int
}

var (
	North = Direction{0, 1}
	South = Direction{0, -1}
	East  = Direction{1, 0}
	West  = Direction{-1, 0}
)

// IsZero reports whether d is no movement.
func (d Direction) IsZero() bool { return d.DX == 0 && d.DY == 0 }

// Desire aggregates one tick's action output. Stay and the move axes hold
// raw signed sums; Bully, Kill and Defend hold probabilities in [0,1] once
// Execute has run.
type Desire struct {
	Stay   float64
	MoveX  float64
	MoveY  float64
	Bully  float64
	Kill   float64
	Defend float64
}

// Reset zeroes all categories.
func (d *Desire) Reset() { *d = Desire{} }
