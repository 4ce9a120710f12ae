package stream

import (
	"encoding/binary"
	"math"
)

// Serializer is implemented by Writer, Reader and Measurer. A message
// describes its layout once, in terms of these calls, and the same routine
// then writes, reads or sizes it.
//
// On a Writer each call encodes the pointed-to value; on a Reader each call
// decodes into it. Either the full fixed-width value is transferred and the
// cursor advances by exactly that width, or an error is returned and nothing
// moves.
type Serializer interface {
	Uint8(v *uint8) error
	Uint16(v *uint16) error
	Uint32(v *uint32) error
	Uint64(v *uint64) error
	Float32(v *float32) error
	Bytes(p []byte) error
	IsReading() bool
}

var order = binary.NativeEndian

// Writer appends values at the buffer's write cursor.
type Writer struct {
	buf *Buffer
}

var _ Serializer = (*Writer)(nil)

// NewWriter returns a writer appending to b.
func NewWriter(b *Buffer) *Writer {
	return &Writer{buf: b}
}

func (w *Writer) Uint8(v *uint8) error {
	p, err := w.buf.reserve(1)
	if err != nil {
		return err
	}
	p[0] = *v
	return nil
}

func (w *Writer) Uint16(v *uint16) error {
	p, err := w.buf.reserve(2)
	if err != nil {
		return err
	}
	order.PutUint16(p, *v)
	return nil
}

func (w *Writer) Uint32(v *uint32) error {
	p, err := w.buf.reserve(4)
	if err != nil {
		return err
	}
	order.PutUint32(p, *v)
	return nil
}

func (w *Writer) Uint64(v *uint64) error {
	p, err := w.buf.reserve(8)
	if err != nil {
		return err
	}
	order.PutUint64(p, *v)
	return nil
}

// Float32 writes the raw IEEE-754 bit pattern of *v.
func (w *Writer) Float32(v *float32) error {
	bits := math.Float32bits(*v)
	return w.Uint32(&bits)
}

// Bytes copies p verbatim.
func (w *Writer) Bytes(p []byte) error {
	dst, err := w.buf.reserve(len(p))
	if err != nil {
		return err
	}
	copy(dst, p)
	return nil
}

func (w *Writer) IsReading() bool { return false }

// Reader consumes values from the written region of a buffer using its own
// cursor, leaving the buffer itself untouched.
type Reader struct {
	buf *Buffer
	pos int
}

var _ Serializer = (*Reader)(nil)

// NewReader returns a reader positioned at the start of b.
func NewReader(b *Buffer) *Reader {
	return &Reader{buf: b}
}

// Offset returns the read cursor.
func (r *Reader) Offset() int {
	return r.pos
}

// Remaining returns the unread byte count.
func (r *Reader) Remaining() int {
	return r.buf.n - r.pos
}

func (r *Reader) next(size int) ([]byte, error) {
	if size < 0 || r.pos+size > r.buf.n {
		return nil, ErrUnexpectedEnd
	}
	p := r.buf.data[r.pos : r.pos+size]
	r.pos += size
	return p, nil
}

func (r *Reader) Uint8(v *uint8) error {
	p, err := r.next(1)
	if err != nil {
		return err
	}
	*v = p[0]
	return nil
}

func (r *Reader) Uint16(v *uint16) error {
	p, err := r.next(2)
	if err != nil {
		return err
	}
	*v = order.Uint16(p)
	return nil
}

func (r *Reader) Uint32(v *uint32) error {
	p, err := r.next(4)
	if err != nil {
		return err
	}
	*v = order.Uint32(p)
	return nil
}

func (r *Reader) Uint64(v *uint64) error {
	p, err := r.next(8)
	if err != nil {
		return err
	}
	*v = order.Uint64(p)
	return nil
}

// Float32 reinterprets four bytes as an IEEE-754 value.
func (r *Reader) Float32(v *float32) error {
	var bits uint32
	if err := r.Uint32(&bits); err != nil {
		return err
	}
	*v = math.Float32frombits(bits)
	return nil
}

// Bytes fills p completely or fails.
func (r *Reader) Bytes(p []byte) error {
	src, err := r.next(len(p))
	if err != nil {
		return err
	}
	copy(p, src)
	return nil
}

func (r *Reader) IsReading() bool { return true }

// Measurer counts the bytes a sequence of calls would write. It never fails.
type Measurer struct {
	n int
}

var _ Serializer = (*Measurer)(nil)

// Size returns the bytes counted so far.
func (m *Measurer) Size() int { return m.n }

func (m *Measurer) Uint8(*uint8) error     { m.n++; return nil }
func (m *Measurer) Uint16(*uint16) error   { m.n += 2; return nil }
func (m *Measurer) Uint32(*uint32) error   { m.n += 4; return nil }
func (m *Measurer) Uint64(*uint64) error   { m.n += 8; return nil }
func (m *Measurer) Float32(*float32) error { m.n += 4; return nil }
func (m *Measurer) Bytes(p []byte) error   { m.n += len(p); return nil }
func (m *Measurer) IsReading() bool        { return false }
