// Package packet defines the tagged messages exchanged by netplay peers and
// the registry that maps a datagram's leading tag byte to its decoder.
package packet

import (
	"errors"
	"sort"
)

// PacketTypeID is the one-byte tag that starts every message. 0 is reserved
// for unknown packets.
type PacketTypeID uint8

// MaxPacketTypes bounds the tag space so every ID fits in one byte.
const MaxPacketTypes = 255

type PacketType struct {
	TypeID PacketTypeID
	Name   string
}

func (pt PacketType) String() string {
	return pt.Name
}

// Factory returns a zero message of a registered type, ready to be
// deserialized into.
type Factory func() Message

// PacketRegistry maps tags to packet types and the factories that decode them.
type PacketRegistry struct {
	types     map[PacketTypeID]PacketType // map of packet type ID to packet type
	factories map[PacketTypeID]Factory    // map of packet type ID to factory
	nextID    PacketTypeID                // next candidate ID for RegisterPacketType
}

// NewPacketRegistry creates an empty packet registry.
func NewPacketRegistry() *PacketRegistry {
	return &PacketRegistry{
		types:     make(map[PacketTypeID]PacketType),
		factories: make(map[PacketTypeID]Factory),
		nextID:    1, // 0 is reserved for unknown packets
	}
}

// RegisterPacketType registers a packet type under the next free ID.
func (pr *PacketRegistry) RegisterPacketType(name string, factory Factory) (PacketType, error) {
	for {
		if pr.nextID >= MaxPacketTypes {
			return PacketTypeUnknown, ErrPacketTypesExhausted
		}
		if _, used := pr.types[pr.nextID]; !used {
			break
		}
		pr.nextID++
	}

	pt := PacketType{TypeID: pr.nextID, Name: name}
	pr.types[pt.TypeID] = pt
	pr.factories[pt.TypeID] = factory
	pr.nextID++

	return pt, nil
}

// RegisterPacketTypeWithID registers a packet type under a fixed ID.
func (pr *PacketRegistry) RegisterPacketTypeWithID(name string, id PacketTypeID, factory Factory) (PacketType, error) {
	if id == PacketTypeUnknown.TypeID {
		return PacketTypeUnknown, ErrInvalidPacketTypeID
	}
	if id >= MaxPacketTypes {
		return PacketTypeUnknown, ErrPacketTypesExhausted
	}
	if _, exists := pr.types[id]; exists {
		return PacketTypeUnknown, ErrPacketTypeAlreadyExists
	}

	pt := PacketType{TypeID: id, Name: name}
	pr.types[pt.TypeID] = pt
	pr.factories[pt.TypeID] = factory

	return pt, nil
}

// GetPacketType retrieves a packet type by ID.
func (pr *PacketRegistry) GetPacketType(id PacketTypeID) (PacketType, bool) {
	pt, exists := pr.types[id]
	return pt, exists
}

// New returns a fresh message for the given ID.
func (pr *PacketRegistry) New(id PacketTypeID) (Message, bool) {
	f, exists := pr.factories[id]
	if !exists {
		return nil, false
	}
	return f(), true
}

// GetPacketTypeByName retrieves a packet type by name.
func (pr *PacketRegistry) GetPacketTypeByName(name string) (PacketType, bool) {
	for _, packetType := range pr.types {
		if packetType.Name == name {
			return packetType, true
		}
	}
	return PacketTypeUnknown, false
}

// ListPacketTypes returns all registered packet types ordered by ID.
func (pr *PacketRegistry) ListPacketTypes() []PacketType {
	types := make([]PacketType, 0, len(pr.types))
	for _, packetType := range pr.types {
		types = append(types, packetType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].TypeID < types[j].TypeID })
	return types
}

// Copy creates a new PacketRegistry with the same packet types and factories.
func (pr *PacketRegistry) Copy() *PacketRegistry {
	newPr := &PacketRegistry{
		types:     make(map[PacketTypeID]PacketType, len(pr.types)),
		factories: make(map[PacketTypeID]Factory, len(pr.factories)),
		nextID:    pr.nextID,
	}
	for id, packetType := range pr.types {
		newPr.types[id] = packetType
		newPr.factories[id] = pr.factories[id]
	}
	return newPr
}

// DefaultRegistry holds the builtin game messages.
var DefaultRegistry = func() *PacketRegistry {
	pr := NewPacketRegistry()

	pr.RegisterPacketTypeWithID(PacketTypeConnectionRequest.Name, PacketTypeConnectionRequest.TypeID, func() Message { return &ConnectionRequest{} })
	pr.RegisterPacketTypeWithID(PacketTypeConnectionResponse.Name, PacketTypeConnectionResponse.TypeID, func() Message { return &ConnectionResponse{} })
	pr.RegisterPacketTypeWithID(PacketTypeDisconnect.Name, PacketTypeDisconnect.TypeID, func() Message { return &Disconnect{} })
	pr.RegisterPacketTypeWithID(PacketTypeInput.Name, PacketTypeInput.TypeID, func() Message { return &Input{} })
	pr.RegisterPacketTypeWithID(PacketTypeInputBatch.Name, PacketTypeInputBatch.TypeID, func() Message { return &InputBatch{} })

	return pr
}()

// Errors
var (
	ErrInvalidPacketTypeID     = errors.New("invalid packet type ID: 0 is reserved")
	ErrPacketTypeAlreadyExists = errors.New("packet type with this ID already exists")
	ErrPacketTypesExhausted    = errors.New("no more available packet type IDs")
	ErrUnknownPacketType       = errors.New("unknown packet type")
)
