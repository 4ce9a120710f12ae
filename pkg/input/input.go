// Package input records per-tick local intents and replays received ones.
//
// A Sample is one simulation tick: the intent bits plus the tick's elapsed
// time. Samples accumulate in a Window between network sends; a flush yields
// the newest BatchSize samples in their original order. On the receiving side
// Replay feeds each sample to the remote simulation, stopping at the first
// zero-elapsed sentinel.
package input

import "time"

// BatchSize is the number of samples carried by one batch.
const BatchSize = 12

// Intent is a bit set of player intents.
type Intent uint8

const (
	IntentUp   Intent = 1 << 0
	IntentDown Intent = 1 << 1
	IntentFire Intent = 1 << 2
)

// NewIntent packs the three boolean intents.
func NewIntent(up, down, fire bool) Intent {
	var i Intent
	if up {
		i |= IntentUp
	}
	if down {
		i |= IntentDown
	}
	if fire {
		i |= IntentFire
	}
	return i
}

func (i Intent) HasUp() bool   { return i&IntentUp != 0 }
func (i Intent) HasDown() bool { return i&IntentDown != 0 }
func (i Intent) HasFire() bool { return i&IntentFire != 0 }

// String renders the set bits as a compact "UDF" mask, "-" for unset.
func (i Intent) String() string {
	b := []byte("---")
	if i.HasUp() {
		b[0] = 'U'
	}
	if i.HasDown() {
		b[1] = 'D'
	}
	if i.HasFire() {
		b[2] = 'F'
	}
	return string(b)
}

// Sample is one tick's intent and elapsed time. Ticks is in nanoseconds; zero
// marks an unused batch slot.
type Sample struct {
	Intent Intent
	Ticks  uint64
}

// NewSample builds a sample from a tick duration. Negative durations clamp to zero.
func NewSample(intent Intent, dt time.Duration) Sample {
	if dt < 0 {
		dt = 0
	}
	return Sample{Intent: intent, Ticks: uint64(dt)}
}

// Elapsed returns the recorded tick duration.
func (s Sample) Elapsed() time.Duration {
	return time.Duration(s.Ticks)
}

// IsSentinel reports whether the sample terminates a partially filled batch.
func (s Sample) IsSentinel() bool {
	return s.Ticks == 0
}

// Replay calls apply for each sample in order and returns how many were
// applied. It stops at the first sentinel.
func Replay(samples []Sample, apply func(Sample)) int {
	for i, s := range samples {
		if s.IsSentinel() {
			return i
		}
		apply(s)
	}
	return len(samples)
}
