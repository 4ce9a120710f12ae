// Package random provides a small deterministic linear-congruential generator
// held as an explicit value. Each session owns one, seeded once at start.
package random

import "time"

// Rand is a linear-congruential generator. It is not safe for concurrent use.
type Rand struct {
	next uint32
}

// New returns a generator with the given seed.
func New(seed uint32) *Rand {
	return &Rand{next: seed}
}

// NewFromTime seeds a generator from the wall clock.
func NewFromTime() *Rand {
	now := time.Now().UnixNano()
	return New(uint32(now) ^ uint32(now>>32))
}

// Seed resets the generator state.
func (r *Rand) Seed(seed uint32) {
	r.next = seed
}

func (r *Rand) step() uint32 {
	r.next = r.next*1103515245 + 12345
	return (r.next / 65536) % 32768
}

// Normalized returns a value in [0, 1).
func (r *Rand) Normalized() float32 {
	return float32(r.step()) / 32768.0
}

// Range returns a value in [min, max).
func (r *Rand) Range(min, max float32) float32 {
	return min + (max-min)*r.Normalized()
}

// Uint32 combines three 15-bit draws into a full 32-bit value.
func (r *Rand) Uint32() uint32 {
	return r.step()<<17 ^ r.step()<<2 ^ r.step()
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Uint32() % uint32(n))
}
