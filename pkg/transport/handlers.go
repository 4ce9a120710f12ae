package transport

import (
	"fmt"
	"sync/atomic"

	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"go.uber.org/zap"
)

// LoggingHandler logs every message at debug level.
type LoggingHandler struct{}

func (LoggingHandler) OnReceive(msg packet.Message, from Address) error {
	logging.Debug("Received message",
		zap.String("type", msg.PacketType().Name),
		zap.Stringer("from", from))
	return nil
}

func (LoggingHandler) OnSend(msg packet.Message, to Address) error {
	logging.Debug("Sending message",
		zap.String("type", msg.PacketType().Name),
		zap.Stringer("to", to))
	return nil
}

// PeerFilter drops received messages whose source host is not the current
// peer. It passes everything until a peer is set.
type PeerFilter struct {
	peer    atomic.Uint32
	hasPeer atomic.Bool
	dropped atomic.Uint64
}

// NewPeerFilter creates a filter with no peer.
func NewPeerFilter() *PeerFilter {
	return &PeerFilter{}
}

// SetPeer makes addr the only accepted source host.
func (f *PeerFilter) SetPeer(addr Address) {
	f.peer.Store(addr.Host)
	f.hasPeer.Store(true)
}

// ClearPeer accepts every source again.
func (f *PeerFilter) ClearPeer() {
	f.hasPeer.Store(false)
}

// Dropped returns how many messages were rejected.
func (f *PeerFilter) Dropped() uint64 {
	return f.dropped.Load()
}

func (f *PeerFilter) OnReceive(msg packet.Message, from Address) error {
	if !f.hasPeer.Load() || from.Host == f.peer.Load() {
		return nil
	}
	f.dropped.Add(1)
	return fmt.Errorf("%s from non-peer %s: %w", msg.PacketType().Name, from, ErrDropped)
}

func (f *PeerFilter) OnSend(packet.Message, Address) error { return nil }
