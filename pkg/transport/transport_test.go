//go:build linux || darwin

package transport

import (
	"testing"
	"time"

	"github.com/appnet-org/netplay/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLoopback(t *testing.T) (*UDPTransport, Address) {
	t.Helper()
	tr := NewUDPTransport()
	require.NoError(t, tr.Open(NewAddress(127, 0, 0, 1, 0)))
	t.Cleanup(func() { tr.Close() })

	local, err := tr.LocalAddr()
	require.NoError(t, err)
	require.NotZero(t, local.Port)
	return tr, local
}

func TestRecvWithNothingPendingWouldBlock(t *testing.T) {
	tr, _ := openLoopback(t)

	var from Address
	buf := stream.NewBuffer(stream.MaxDatagramSize)
	err := tr.RecvFrom(&from, buf)
	require.Error(t, err)
	assert.Equal(t, CodeWouldBlock, CodeOf(err))
	assert.Equal(t, CodeWouldBlock, tr.LastError())
	assert.True(t, IsNonCriticalErr(err))
	assert.Zero(t, buf.Len())
}

func TestLoopbackRoundTrip(t *testing.T) {
	a, addrA := openLoopback(t)
	b, addrB := openLoopback(t)

	out := stream.NewBuffer(16)
	w := stream.NewWriter(out)
	v := uint32(0xdeadbeef)
	require.NoError(t, w.Uint32(&v))
	require.NoError(t, a.SendTo(addrB, out))
	assert.Equal(t, CodeNoError, a.LastError())

	in := stream.NewBuffer(stream.MaxDatagramSize)
	var from Address
	require.Eventually(t, func() bool {
		return b.RecvFrom(&from, in) == nil
	}, time.Second, time.Millisecond)

	assert.Equal(t, addrA, from)
	assert.Equal(t, out.Bytes(), in.Bytes())

	var got uint32
	require.NoError(t, stream.NewReader(in).Uint32(&got))
	assert.Equal(t, v, got)
}

func TestEmptySendIsNoop(t *testing.T) {
	a, _ := openLoopback(t)
	_, addrB := openLoopback(t)
	require.NoError(t, a.SendTo(addrB, stream.NewBuffer(8)))
}

func TestOpenTwiceFails(t *testing.T) {
	tr, _ := openLoopback(t)
	err := tr.Open(NewAddress(127, 0, 0, 1, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyOpen)
}

func TestClosedEndpoint(t *testing.T) {
	tr := NewUDPTransport()
	assert.False(t, tr.IsOpen())

	err := tr.SendTo(NewAddress(127, 0, 0, 1, 9), stream.NewBuffer(4))
	require.ErrorIs(t, err, ErrNotOpen)
	assert.Equal(t, CodeBadFileHandle, tr.LastError())

	var from Address
	assert.ErrorIs(t, tr.RecvFrom(&from, stream.NewBuffer(4)), ErrNotOpen)
	assert.NoError(t, tr.Close())
}

func TestReopenAfterClose(t *testing.T) {
	tr, _ := openLoopback(t)
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsOpen())
	require.NoError(t, tr.Open(NewAddress(127, 0, 0, 1, 0)))
	assert.True(t, tr.IsOpen())
}
