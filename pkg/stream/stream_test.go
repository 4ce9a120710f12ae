package stream

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferQueries(t *testing.T) {
	buf := NewBuffer(MaxDatagramSize)
	require.Equal(t, MaxDatagramSize, buf.Cap())
	require.Equal(t, 0, buf.Len())
	require.Equal(t, MaxDatagramSize, buf.Available())

	v := uint16(7)
	require.NoError(t, NewWriter(buf).Uint16(&v))
	require.Equal(t, 2, buf.Len())
	require.Len(t, buf.Bytes(), 2)

	buf.Reset()
	require.Equal(t, 0, buf.Len())
	require.Equal(t, MaxDatagramSize, buf.Cap())
}

// TestWriterFillsToCapacity writes uint32 values into a 16 byte buffer. A
// write is rejected only when cursor+size exceeds the capacity, so the fourth
// value fills the buffer exactly and the fifth fails.
func TestWriterFillsToCapacity(t *testing.T) {
	buf := NewBuffer(16)
	w := NewWriter(buf)

	for i := uint32(1); i <= 3; i++ {
		v := i
		require.NoError(t, w.Uint32(&v))
	}
	require.Equal(t, 12, buf.Len())

	wide := uint64(99)
	require.ErrorIs(t, w.Uint64(&wide), ErrCapacityExceeded)
	require.Equal(t, 12, buf.Len(), "failed write must not move the cursor")

	v := uint32(4)
	require.NoError(t, w.Uint32(&v))
	require.Equal(t, 16, buf.Len())

	v = 5
	require.ErrorIs(t, w.Uint32(&v), ErrCapacityExceeded)
	require.Equal(t, 16, buf.Len())
}

func TestWriterRejectsPartialWrites(t *testing.T) {
	buf := NewBuffer(14)
	w := NewWriter(buf)

	for i := 0; i < 3; i++ {
		v := uint32(i)
		require.NoError(t, w.Uint32(&v))
	}
	v := uint32(3)
	require.ErrorIs(t, w.Uint32(&v), ErrCapacityExceeded)
	require.Equal(t, 12, buf.Len())
	require.Equal(t, []byte{0, 0}, buf.Raw()[12:], "no bytes of the rejected value may be written")

	require.ErrorIs(t, w.Bytes([]byte{1, 2, 3}), ErrCapacityExceeded)
	require.Equal(t, 12, buf.Len())
	require.NoError(t, w.Bytes([]byte{1, 2}))
	require.Equal(t, 14, buf.Len())
}

func TestReaderStopsAtWrittenLength(t *testing.T) {
	buf := NewBuffer(MaxDatagramSize)
	w := NewWriter(buf)
	a := uint32(0xdeadbeef)
	require.NoError(t, w.Uint32(&a))

	r := NewReader(buf)
	var got uint32
	require.NoError(t, r.Uint32(&got))
	require.Equal(t, a, got)

	var extra uint8
	require.ErrorIs(t, r.Uint8(&extra), ErrUnexpectedEnd)
	require.Equal(t, 4, r.Offset(), "failed read must not move the cursor")
	require.Equal(t, 0, r.Remaining())
}

func TestReaderIsIndependentOfWriter(t *testing.T) {
	buf := NewBuffer(32)
	w := NewWriter(buf)
	r := NewReader(buf)

	x := uint16(0x1234)
	require.NoError(t, w.Uint16(&x))

	var got uint16
	require.NoError(t, r.Uint16(&got))
	require.Equal(t, x, got)
	require.Equal(t, 2, buf.Len(), "reading must not change the written length")

	y := uint8(9)
	require.NoError(t, w.Uint8(&y))
	var gotY uint8
	require.NoError(t, r.Uint8(&gotY))
	require.Equal(t, y, gotY)
}

func TestRoundTripPrimitives(t *testing.T) {
	buf := NewBuffer(MaxDatagramSize)
	w := NewWriter(buf)

	u8, u16, u32, u64 := uint8(0xab), uint16(0xbeef), uint32(0xcafebabe), uint64(math.MaxUint64-1)
	f := float32(-3.25)
	nan := float32(math.NaN())
	raw := []byte("payload")

	require.NoError(t, w.Uint8(&u8))
	require.NoError(t, w.Uint16(&u16))
	require.NoError(t, w.Uint32(&u32))
	require.NoError(t, w.Uint64(&u64))
	require.NoError(t, w.Float32(&f))
	require.NoError(t, w.Float32(&nan))
	require.NoError(t, w.Bytes(raw))
	require.Equal(t, 1+2+4+8+4+4+len(raw), buf.Len())

	r := NewReader(buf)
	var (
		g8   uint8
		g16  uint16
		g32  uint32
		g64  uint64
		gf   float32
		gnan float32
	)
	graw := make([]byte, len(raw))
	require.NoError(t, r.Uint8(&g8))
	require.NoError(t, r.Uint16(&g16))
	require.NoError(t, r.Uint32(&g32))
	require.NoError(t, r.Uint64(&g64))
	require.NoError(t, r.Float32(&gf))
	require.NoError(t, r.Float32(&gnan))
	require.NoError(t, r.Bytes(graw))

	require.Equal(t, u8, g8)
	require.Equal(t, u16, g16)
	require.Equal(t, u32, g32)
	require.Equal(t, u64, g64)
	require.Equal(t, f, gf)
	require.Equal(t, math.Float32bits(nan), math.Float32bits(gnan), "float bits must survive unchanged")
	require.Equal(t, raw, graw)
}

func TestSetLen(t *testing.T) {
	buf := WrapBuffer(make([]byte, 8))
	require.NoError(t, buf.SetLen(8))
	require.Equal(t, 8, buf.Len())
	require.ErrorIs(t, buf.SetLen(9), ErrInvalidLength)
	require.ErrorIs(t, buf.SetLen(-1), ErrInvalidLength)
	require.Equal(t, 8, buf.Len())
}

func TestMeasurer(t *testing.T) {
	var m Measurer
	var (
		a uint8
		b uint32
		c uint64
		f float32
	)
	require.NoError(t, m.Uint8(&a))
	require.NoError(t, m.Uint32(&b))
	require.NoError(t, m.Uint64(&c))
	require.NoError(t, m.Float32(&f))
	require.NoError(t, m.Bytes(make([]byte, 3)))
	require.Equal(t, 1+4+8+4+3, m.Size())
	require.False(t, m.IsReading())
}
