package neural

import "fmt"

// SensorType enumerates what a sensor reads. Values are bit flags so that
// fingerprints can combine them.
type SensorType uint32

const (
	SenseDistanceNorth SensorType = 1 << iota
	SenseDistanceSouth
	SenseDistanceEast
	SenseDistanceWest
	SenseDistanceCenter
	SenseLocalPopulation
	SenseTimeSinceMove
	SenseBlocked

	sensorSentinel
)

var sensorNames = map[SensorType]string{
	SenseDistanceNorth:   "DistanceFromNorth",
	SenseDistanceSouth:   "DistanceFromSouth",
	SenseDistanceEast:    "DistanceFromEast",
	SenseDistanceWest:    "DistanceFromWest",
	SenseDistanceCenter:  "DistanceFromCenter",
	SenseLocalPopulation: "LocalPopulation",
	SenseTimeSinceMove:   "TimeSinceLastMove",
	SenseBlocked:         "Blocked",
}

// AllSensors returns every sensor type.
func AllSensors() []SensorType {
	out := make([]SensorType, 0, len(sensorNames))
	for t := SensorType(1); t < sensorSentinel; t <<= 1 {
		out = append(out, t)
	}
	return out
}

// ParseSensor maps a sensor name to its type.
func ParseSensor(name string) (SensorType, error) {
	for t, n := range sensorNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedSensor, name)
}

func (t SensorType) valid() bool {
	_, ok := sensorNames[t]
	return ok
}

func (t SensorType) String() string {
	if n, ok := sensorNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Sensor(%d)", uint32(t))
}

// Sensor reads one value from its host.
type Sensor struct {
	ID   NodeID
	Type SensorType
}

func newSensor(t SensorType) Sensor {
	return Sensor{ID: nextNodeID(), Type: t}
}

func (s *Sensor) NodeID() NodeID { return s.ID }

// Activate reads the host and squashes the raw value.
func (s *Sensor) Activate(h Host, act Activation) (float64, error) {
	v, err := h.Sense(s.Type)
	if err != nil {
		return 0, err
	}
	return act.Fn(v), nil
}

// Mutate swaps the sensor to a random type from the catalog.
func (s *Sensor) Mutate(r Rand, catalog []SensorType) {
	if len(catalog) == 0 {
		return
	}
	s.Type = catalog[r.Intn(len(catalog))]
}

func (s *Sensor) tag() uint32 { return uint32(s.Type) }
