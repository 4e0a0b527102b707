// Package rng provides the seeded, batch-buffered random streams used by the
// simulation. Every agent owns its own Stream, split from the run's master
// stream, so data-parallel phases replay identically under a fixed seed.
package rng

import (
	"errors"
	"math/bits"
	"math/rand/v2"
	"sync"
)

// batchSize is the number of raw values generated per refill.
const batchSize = 256

// ErrEmptyPool is returned when a random element is requested from an empty pool.
var ErrEmptyPool = errors.New("rng: pick from empty pool")

// Source is the set of draws the simulation needs.
type Source interface {
	Uint64() uint64
	Intn(n int) int
	Float64() float64
	Bool() bool
	Chance(p float64) bool
}

// Stream is a batch-buffered generator. A Stream is owned by one goroutine at
// a time; wrap it with NewLocked when it must be shared.
type Stream struct {
	src *rand.PCG
	buf [batchSize]uint64
	pos int
}

// NewStream creates a stream seeded from seed.
func NewStream(seed uint64) *Stream {
	s := &Stream{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	s.refill()
	return s
}

func (s *Stream) refill() {
	for i := range s.buf {
		s.buf[i] = s.src.Uint64()
	}
	s.pos = 0
}

// Uint64 returns the next raw value.
func (s *Stream) Uint64() uint64 {
	if s.pos == batchSize {
		s.refill()
	}
	v := s.buf[s.pos]
	s.pos++
	return v
}

// Intn returns a uniform integer in [0, n). Panics if n <= 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn called with n <= 0")
	}
	hi, _ := bits.Mul64(s.Uint64(), uint64(n))
	return int(hi)
}

// Float64 returns a uniform float in [0, 1).
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Bool returns a fair coin flip.
func (s *Stream) Bool() bool {
	return s.Float64() < 0.5
}

// Chance reports whether a draw falls under p. p <= 0 never passes, p >= 1 always does.
func (s *Stream) Chance(p float64) bool {
	return s.Float64() < p
}

// Split derives an independent child stream.
func (s *Stream) Split() *Stream {
	return NewStream(s.Uint64())
}

// Locked is a Stream guarded by a mutex, safe for concurrent callers.
type Locked struct {
	mu sync.Mutex
	s  *Stream
}

// NewLocked wraps s.
func NewLocked(s *Stream) *Locked {
	return &Locked{s: s}
}

func (l *Locked) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Uint64()
}

func (l *Locked) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Intn(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Float64()
}

func (l *Locked) Bool() bool {
	return l.Float64() < 0.5
}

func (l *Locked) Chance(p float64) bool {
	return l.Float64() < p
}

// Pick returns a uniformly random element of pool.
func Pick[T any](r Source, pool []T) (T, error) {
	if len(pool) == 0 {
		var zero T
		return zero, ErrEmptyPool
	}
	return pool[r.Intn(len(pool))], nil
}

// Intner is the single draw Shuffle needs.
type Intner interface {
	Intn(n int) int
}

// Shuffle permutes items in place (Fisher-Yates).
func Shuffle[T any](r Intner, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
