// This file defines the builtin game messages and their layouts. Every message
// starts with a one-byte tag followed by its fields in declaration order. A
// single Serialize method describes the layout for writing, reading and sizing.

package packet

import (
	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/stream"
)

// Builtin packet types
var (
	PacketTypeUnknown            = PacketType{TypeID: 0, Name: "Unknown"}
	PacketTypeConnectionRequest  = PacketType{TypeID: 1, Name: "ConnectionRequest"}
	PacketTypeConnectionResponse = PacketType{TypeID: 2, Name: "ConnectionResponse"}
	PacketTypeDisconnect         = PacketType{TypeID: 3, Name: "Disconnect"}
	PacketTypeInput              = PacketType{TypeID: 4, Name: "Input"}
	PacketTypeInputBatch         = PacketType{TypeID: 5, Name: "InputBatch"}
)

// ResponseMagic is the fixed nonce carried by ConnectionResponse. It acts as a
// protocol version check and is not correlated with the request nonce.
const ResponseMagic uint32 = 666666

// Message is one tagged value of the protocol vocabulary.
type Message interface {
	// PacketType is the variant this value represents.
	PacketType() PacketType
	// Serialize writes or reads the message through s, tag first.
	Serialize(s stream.Serializer) error
	// IsValid reports whether the decoded tag matches the variant.
	IsValid() bool
}

// Header is the shared prefix of every message.
type Header struct {
	TypeID PacketTypeID
}

func (h *Header) serialize(s stream.Serializer) error {
	tag := uint8(h.TypeID)
	if err := s.Uint8(&tag); err != nil {
		return err
	}
	h.TypeID = PacketTypeID(tag)
	return nil
}

// ConnectionRequest asks the peer to start a session.
type ConnectionRequest struct {
	Header
	Nonce uint32
}

func NewConnectionRequest(nonce uint32) *ConnectionRequest {
	return &ConnectionRequest{Header: Header{TypeID: PacketTypeConnectionRequest.TypeID}, Nonce: nonce}
}

func (m *ConnectionRequest) PacketType() PacketType { return PacketTypeConnectionRequest }

func (m *ConnectionRequest) IsValid() bool {
	return m.TypeID == PacketTypeConnectionRequest.TypeID
}

func (m *ConnectionRequest) Serialize(s stream.Serializer) error {
	if err := m.Header.serialize(s); err != nil {
		return err
	}
	return s.Uint32(&m.Nonce)
}

// ConnectionResponse acknowledges a ConnectionRequest.
type ConnectionResponse struct {
	Header
	Nonce uint32
}

func NewConnectionResponse(nonce uint32) *ConnectionResponse {
	return &ConnectionResponse{Header: Header{TypeID: PacketTypeConnectionResponse.TypeID}, Nonce: nonce}
}

func (m *ConnectionResponse) PacketType() PacketType { return PacketTypeConnectionResponse }

func (m *ConnectionResponse) IsValid() bool {
	return m.TypeID == PacketTypeConnectionResponse.TypeID
}

func (m *ConnectionResponse) Serialize(s stream.Serializer) error {
	if err := m.Header.serialize(s); err != nil {
		return err
	}
	return s.Uint32(&m.Nonce)
}

// Disconnect announces the end of a session.
type Disconnect struct {
	Header
}

func NewDisconnect() *Disconnect {
	return &Disconnect{Header: Header{TypeID: PacketTypeDisconnect.TypeID}}
}

func (m *Disconnect) PacketType() PacketType { return PacketTypeDisconnect }

func (m *Disconnect) IsValid() bool {
	return m.TypeID == PacketTypeDisconnect.TypeID
}

func (m *Disconnect) Serialize(s stream.Serializer) error {
	return m.Header.serialize(s)
}

// Input carries a single tick's intent bits: bit0 up, bit1 down, bit2 fire.
type Input struct {
	Header
	Bits input.Intent
}

func NewInput(up, down, fire bool) *Input {
	return &Input{Header: Header{TypeID: PacketTypeInput.TypeID}, Bits: input.NewIntent(up, down, fire)}
}

func (m *Input) PacketType() PacketType { return PacketTypeInput }

func (m *Input) IsValid() bool {
	return m.TypeID == PacketTypeInput.TypeID
}

func (m *Input) HasUp() bool    { return m.Bits.HasUp() }
func (m *Input) HasDown() bool  { return m.Bits.HasDown() }
func (m *Input) HasSpace() bool { return m.Bits.HasFire() }

func (m *Input) Serialize(s stream.Serializer) error {
	if err := m.Header.serialize(s); err != nil {
		return err
	}
	bits := uint8(m.Bits)
	if err := s.Uint8(&bits); err != nil {
		return err
	}
	m.Bits = input.Intent(bits)
	return nil
}

// InputBatch carries a window of samples, oldest kept first. Unused slots
// hold zero samples. Sequence increases by one per batch sent so receivers can
// discard stale or duplicated batches.
type InputBatch struct {
	Header
	Sequence uint32
	Samples  [input.BatchSize]input.Sample
}

func NewInputBatch(seq uint32, samples [input.BatchSize]input.Sample) *InputBatch {
	return &InputBatch{Header: Header{TypeID: PacketTypeInputBatch.TypeID}, Sequence: seq, Samples: samples}
}

func (m *InputBatch) PacketType() PacketType { return PacketTypeInputBatch }

func (m *InputBatch) IsValid() bool {
	return m.TypeID == PacketTypeInputBatch.TypeID
}

// Len returns the number of samples before the first sentinel.
func (m *InputBatch) Len() int {
	for i, s := range m.Samples {
		if s.IsSentinel() {
			return i
		}
	}
	return len(m.Samples)
}

func (m *InputBatch) Serialize(s stream.Serializer) error {
	if err := m.Header.serialize(s); err != nil {
		return err
	}
	if err := s.Uint32(&m.Sequence); err != nil {
		return err
	}
	for i := range m.Samples {
		sample := &m.Samples[i]
		bits := uint8(sample.Intent)
		if err := s.Uint8(&bits); err != nil {
			return err
		}
		sample.Intent = input.Intent(bits)
		if err := s.Uint64(&sample.Ticks); err != nil {
			return err
		}
	}
	return nil
}
