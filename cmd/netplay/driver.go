package main

import (
	"fmt"
	"time"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/random"
)

// driver produces the local player's intent each tick. One driver is chosen
// at startup and kept for the life of the process.
type driver interface {
	Name() string
	Intent(dt time.Duration) input.Intent
}

func newDriver(name string, rng *random.Rand) (driver, error) {
	switch name {
	case "idle":
		return idleDriver{}, nil
	case "scripted":
		return &scriptedDriver{rng: rng, hold: scriptedHold}, nil
	}
	return nil, fmt.Errorf("unknown driver %q", name)
}

type idleDriver struct{}

func (idleDriver) Name() string { return "idle" }

func (idleDriver) Intent(time.Duration) input.Intent { return 0 }

const scriptedHold = 500 * time.Millisecond

// scriptedDriver holds a random intent for a fixed period, then draws
// another.
type scriptedDriver struct {
	rng     *random.Rand
	hold    time.Duration
	left    time.Duration
	current input.Intent
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Intent(dt time.Duration) input.Intent {
	d.left -= dt
	if d.left <= 0 {
		d.left = d.hold
		d.current = input.Intent(d.rng.Intn(8))
		if d.current.HasUp() && d.current.HasDown() {
			d.current &^= input.IntentDown
		}
	}
	return d.current
}

// avatar is the remote player's state as rebuilt from replayed samples.
type avatar struct {
	Y     float64
	Shots int
	Time  time.Duration
}

// avatarSpeed is in units per second.
const avatarSpeed = 200.0

func (a *avatar) apply(s input.Sample) {
	dt := s.Elapsed()
	switch {
	case s.Intent.HasUp():
		a.Y -= avatarSpeed * dt.Seconds()
	case s.Intent.HasDown():
		a.Y += avatarSpeed * dt.Seconds()
	}
	if s.Intent.HasFire() {
		a.Shots++
	}
	a.Time += dt
}
