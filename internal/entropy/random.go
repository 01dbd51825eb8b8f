// Package entropy provides the random sources that drive market jitter, events and AI sampling.
// Simulation code takes a Source so tests and replays can inject a seeded one.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source yields uniform random numbers. Implementations are not required to be
// safe for concurrent use; the simulation loop is the only caller.
type Source interface {
	Float64() float64 // [0, 1)
	Intn(n int) int   // [0, n)
}

// Seeded is a deterministic Source backed by math/rand.
type Seeded struct {
	rng *mrand.Rand
}

// NewSeeded returns a reproducible source for the given seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *Seeded) Float64() float64 { return s.rng.Float64() }

func (s *Seeded) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// cryptoSource draws from crypto/rand. Used when no seed is configured.
type cryptoSource struct{}

// Crypto returns a non-deterministic Source.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Float64() float64 {
	return cryptoRandFloat()
}

func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(cryptoRandFloat() * float64(n))
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Uniform returns a float uniformly distributed in [lo, hi].
func Uniform(src Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + src.Float64()*(hi-lo)
}

// UniformInt returns an integer uniformly distributed in [lo, hi] inclusive.
func UniformInt(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Chance reports whether a Bernoulli trial with probability p succeeds.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// FromSeed returns a seeded source, or the crypto source when seed is 0.
func FromSeed(seed int64) Source {
	if seed == 0 {
		return Crypto()
	}
	return NewSeeded(seed)
}
