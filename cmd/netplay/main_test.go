package main

import (
	"bytes"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/random"
	"github.com/appnet-org/netplay/pkg/session"
	"github.com/appnet-org/netplay/pkg/stream"
	"github.com/appnet-org/netplay/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentConn accepts sends and never has anything to receive.
type silentConn struct {
	openErr error
	sends   int
}

func (c *silentConn) Open(transport.Address) error { return c.openErr }

func (c *silentConn) SendTo(transport.Address, *stream.Buffer) error {
	c.sends++
	return nil
}

func (c *silentConn) RecvFrom(*transport.Address, *stream.Buffer) error {
	return &transport.OpError{Op: "recv", Code: transport.CodeWouldBlock, Err: syscall.EAGAIN}
}

func (c *silentConn) LocalAddr() (transport.Address, error) { return transport.Address{}, nil }

func (c *silentConn) Close() error { return nil }

func TestConfigCommandPrintsYAML(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "send_interval: 100ms")
	assert.Contains(t, out.String(), "driver: idle")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "netplay dev\n", out.String())
}

func TestNewDriver(t *testing.T) {
	d, err := newDriver("idle", random.New(1))
	require.NoError(t, err)
	assert.Equal(t, "idle", d.Name())
	assert.Equal(t, input.Intent(0), d.Intent(time.Second))

	_, err = newDriver("joystick", random.New(1))
	assert.Error(t, err)
}

func TestScriptedDriverHoldsIntent(t *testing.T) {
	d, err := newDriver("scripted", random.New(1))
	require.NoError(t, err)

	first := d.Intent(10 * time.Millisecond)
	assert.False(t, first.HasUp() && first.HasDown())
	for i := 0; i < 40; i++ {
		assert.Equal(t, first, d.Intent(10*time.Millisecond))
	}

	again, err := newDriver("scripted", random.New(1))
	require.NoError(t, err)
	assert.Equal(t, first, again.Intent(10*time.Millisecond), "same seed, same script")
}

func TestAvatarApply(t *testing.T) {
	var a avatar
	a.apply(input.NewSample(input.IntentDown, 500*time.Millisecond))
	a.apply(input.NewSample(input.IntentUp|input.IntentFire, 250*time.Millisecond))

	assert.InDelta(t, 50.0, a.Y, 1e-9)
	assert.Equal(t, 1, a.Shots)
	assert.Equal(t, 750*time.Millisecond, a.Time)
}

func TestTickLoopRetriesConnect(t *testing.T) {
	conn := &silentConn{}
	s := session.New(session.DefaultConfig(), conn, random.New(1))
	loop := &tickLoop{
		session:      s,
		driver:       idleDriver{},
		connectRetry: 100 * time.Millisecond,
	}

	for i := 0; i < 32; i++ {
		done, err := loop.step(10 * time.Millisecond)
		require.NoError(t, err)
		require.False(t, done)
	}

	assert.Equal(t, session.StateConnecting, s.State())
	// once on entering Connecting, then every 100ms over the next 300ms
	assert.Equal(t, 4, conn.sends)
}

func TestTickLoopStopsOnOpenFailure(t *testing.T) {
	conn := &silentConn{openErr: errors.New("bind failed")}
	s := session.New(session.DefaultConfig(), conn, random.New(1))
	loop := &tickLoop{session: s, driver: idleDriver{}}

	done, err := loop.step(10 * time.Millisecond)
	assert.True(t, done)
	assert.ErrorIs(t, err, session.ErrOpenFailed)
}

func TestTickLoopDuration(t *testing.T) {
	s := session.New(session.DefaultConfig(), &silentConn{}, random.New(1))
	loop := &tickLoop{session: s, driver: idleDriver{}, duration: 50 * time.Millisecond}

	for i := 0; i < 4; i++ {
		done, err := loop.step(10 * time.Millisecond)
		require.NoError(t, err)
		require.False(t, done)
	}
	done, err := loop.step(10 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, done)
}
