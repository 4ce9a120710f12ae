package packet

import (
	"fmt"

	"github.com/appnet-org/netplay/pkg/stream"
)

// Encode writes m into buf from the start. A datagram carries exactly one
// message, so buf is reset first; on failure it is left empty.
func Encode(m Message, buf *stream.Buffer) error {
	buf.Reset()
	if err := m.Serialize(stream.NewWriter(buf)); err != nil {
		buf.Reset()
		return fmt.Errorf("encode %s: %w", m.PacketType().Name, err)
	}
	return nil
}

// SizeOf returns the encoded size of m.
func SizeOf(m Message) int {
	var meter stream.Measurer
	_ = m.Serialize(&meter)
	return meter.Size()
}

// PeekType reads the tag of the message in buf without consuming it.
func PeekType(buf *stream.Buffer) (PacketTypeID, error) {
	var tag uint8
	if err := stream.NewReader(buf).Uint8(&tag); err != nil {
		return PacketTypeUnknown.TypeID, err
	}
	return PacketTypeID(tag), nil
}

// DecodeAs reads the message in buf into m, the variant the caller expects.
// A successful read does not imply the tag matched; check m.IsValid.
func DecodeAs(buf *stream.Buffer, m Message) error {
	if err := m.Serialize(stream.NewReader(buf)); err != nil {
		return fmt.Errorf("decode %s: %w", m.PacketType().Name, err)
	}
	return nil
}

// Decode reads the tag in buf and decodes the matching registered message.
func (pr *PacketRegistry) Decode(buf *stream.Buffer) (Message, error) {
	id, err := PeekType(buf)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	m, ok := pr.New(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPacketType, id)
	}
	if err := DecodeAs(buf, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Decode decodes buf with the default registry.
func Decode(buf *stream.Buffer) (Message, error) {
	return DefaultRegistry.Decode(buf)
}
