// Package stream implements the bounds-checked byte buffer that stages one
// datagram, and the typed writer/reader pair that serialize values into it.
//
// Values use the host's native byte order and width. Both peers are expected to
// run on the same architecture family; the encoding is not portable across
// differing endianness.
package stream

import "errors"

// MaxDatagramSize is the MTU-sized capacity used for one datagram.
const MaxDatagramSize = 1400

var (
	// ErrCapacityExceeded is returned when a write would run past the buffer capacity.
	ErrCapacityExceeded = errors.New("stream: write exceeds buffer capacity")
	// ErrUnexpectedEnd is returned when a read would run past the written length.
	ErrUnexpectedEnd = errors.New("stream: read past end of buffer")
	// ErrInvalidLength is returned when a length outside [0, capacity] is requested.
	ErrInvalidLength = errors.New("stream: length out of range")
)

// Buffer is a fixed-capacity byte region. Its length is the write cursor:
// 0 <= Len() <= Cap() always holds, and no operation mutates the buffer unless
// the whole value fits.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer allocates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// WrapBuffer uses b as backing memory. The capacity is len(b) and the buffer
// starts empty.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Reset rewinds the write cursor to the start.
func (b *Buffer) Reset() {
	b.n = 0
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	return b.n
}

// Available returns the bytes left before the buffer is full.
func (b *Buffer) Available() int {
	return len(b.data) - b.n
}

// Bytes returns the written region. The slice aliases the buffer memory.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Raw returns the whole backing region regardless of length, for a transport to
// receive into.
func (b *Buffer) Raw() []byte {
	return b.data
}

// SetLen repositions the write cursor so the content spans exactly n bytes.
func (b *Buffer) SetLen(n int) error {
	if n < 0 || n > len(b.data) {
		return ErrInvalidLength
	}
	b.n = n
	return nil
}

// reserve returns the next size bytes and advances the cursor, or fails
// without touching the buffer.
func (b *Buffer) reserve(size int) ([]byte, error) {
	if size < 0 || b.n+size > len(b.data) {
		return nil, ErrCapacityExceeded
	}
	p := b.data[b.n : b.n+size]
	b.n += size
	return p, nil
}
