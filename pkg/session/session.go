// Package session drives one two-peer netplay connection from socket open
// through the handshake into play, where local input is batched to the peer
// and the peer's batches are queued for replay.
//
// A Session is advanced by calling Update once per simulation tick. It never
// blocks and owns no goroutines.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"github.com/appnet-org/netplay/pkg/random"
	"github.com/appnet-org/netplay/pkg/stream"
	"github.com/appnet-org/netplay/pkg/transport"
	"go.uber.org/zap"
)

// ErrOpenFailed is returned by Update when the local endpoint cannot be
// opened. The session cannot proceed after it.
var ErrOpenFailed = errors.New("session: failed to open endpoint")

// State is the handshake state.
type State int

const (
	StateInit State = iota
	StateConnecting
	StatePlay
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StatePlay:
		return "play"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Frame is the local player's input for one tick.
type Frame struct {
	Intent input.Intent
	// Connect asks the session to send a connection request this tick.
	Connect bool
}

// Conn is the datagram endpoint a session runs on. *transport.UDPTransport
// implements it.
type Conn interface {
	Open(local transport.Address) error
	SendTo(to transport.Address, buf *stream.Buffer) error
	RecvFrom(from *transport.Address, buf *stream.Buffer) error
	LocalAddr() (transport.Address, error)
	Close() error
}

// Config holds the session parameters.
type Config struct {
	Local         transport.Address
	Peer          transport.Address
	SendInterval  time.Duration
	ResponseNonce uint32
	DatagramSize  int
	// PerTickInput also sends the current intent every tick in play.
	PerTickInput bool
	// FilterPeer drops datagrams whose source host is not Peer.
	FilterPeer bool
}

// DefaultConfig returns the standard protocol parameters.
func DefaultConfig() Config {
	return Config{
		Local:         transport.Address{Port: 32100},
		Peer:          transport.NewAddress(127, 0, 0, 1, 32100),
		SendInterval:  100 * time.Millisecond,
		ResponseNonce: packet.ResponseMagic,
		DatagramSize:  stream.MaxDatagramSize,
		FilterPeer:    true,
	}
}

// Stats counts session traffic.
type Stats struct {
	Sent            uint64
	Received        uint64
	SendErrors      uint64
	RecvErrors      uint64
	Malformed       uint64
	Filtered        uint64
	BatchesSent     uint64
	BatchesReceived uint64
	SamplesDropped  uint64
}

const flushTimer transport.TimerKey = "flush"

// Session is one peer's side of a netplay connection.
type Session struct {
	cfg     Config
	conn    Conn
	rng     *random.Rand
	packets *packet.PacketRegistry

	state  State
	closed bool

	// handshake
	nonce       uint32
	nonceSet    bool
	peerNonce   uint32
	sawRequest  bool
	sawResponse bool
	isHost      bool

	// play
	window           input.Window
	timers           *transport.TimerManager
	sendSeq          uint32
	remote           []input.Sample
	remoteIntent     input.Intent
	peerDisconnected bool

	sendBuf *stream.Buffer
	recvBuf *stream.Buffer

	filter    *transport.PeerFilter
	sequencer *batchSequencer
	inbound   *transport.HandlerChain
	outbound  *transport.HandlerChain

	stats Stats
}

// New creates a session in StateInit. The endpoint is opened by the first
// Update.
func New(cfg Config, conn Conn, rng *random.Rand) *Session {
	if cfg.DatagramSize <= 0 {
		cfg.DatagramSize = stream.MaxDatagramSize
	}
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = DefaultConfig().SendInterval
	}
	if rng == nil {
		rng = random.NewFromTime()
	}

	s := &Session{
		cfg:       cfg,
		conn:      conn,
		rng:       rng,
		packets:   packet.DefaultRegistry.Copy(),
		timers:    transport.NewTimerManager(),
		sendBuf:   stream.NewBuffer(cfg.DatagramSize),
		recvBuf:   stream.NewBuffer(cfg.DatagramSize),
		filter:    transport.NewPeerFilter(),
		sequencer: &batchSequencer{},
	}
	s.inbound = transport.NewHandlerChain("receive", transport.LoggingHandler{}, s.filter, s.sequencer)
	s.outbound = transport.NewHandlerChain("send", transport.LoggingHandler{})
	return s
}

// Update advances the session by one tick of length dt. Only a failure to
// open the endpoint is returned; transport and decode failures are counted in
// Stats and retried implicitly on the next tick.
func (s *Session) Update(dt time.Duration, f Frame) error {
	switch s.state {
	case StateInit:
		return s.open()
	case StateConnecting:
		s.connecting(f)
	case StatePlay:
		s.play(dt, f)
	}
	return nil
}

func (s *Session) open() error {
	if err := s.conn.Open(s.cfg.Local); err != nil {
		logging.Error("Failed to open session endpoint",
			zap.Stringer("local", s.cfg.Local),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}
	if s.cfg.FilterPeer {
		s.filter.SetPeer(s.cfg.Peer)
	}
	s.setState(StateConnecting)
	return nil
}

func (s *Session) setState(next State) {
	logging.Debug("Session state change",
		zap.Stringer("from", s.state),
		zap.Stringer("to", next))
	s.state = next
}

// State returns the current handshake state.
func (s *Session) State() State { return s.state }

// IsHost reports whether this side holds the host role. It is decided on
// entering play and is false before.
func (s *Session) IsHost() bool { return s.isHost }

// Peer returns the configured peer address.
func (s *Session) Peer() transport.Address { return s.cfg.Peer }

// RemoteSamples returns the peer samples received since the last call, in
// replay order, and empties the queue.
func (s *Session) RemoteSamples() []input.Sample {
	out := s.remote
	s.remote = nil
	return out
}

// Replay drains the queued peer samples through apply and returns how many
// were applied.
func (s *Session) Replay(apply func(input.Sample)) int {
	return input.Replay(s.RemoteSamples(), apply)
}

// RemoteIntent returns the last intent carried by a per-tick Input message.
func (s *Session) RemoteIntent() input.Intent { return s.remoteIntent }

// PeerDisconnected reports whether the peer announced it is leaving.
func (s *Session) PeerDisconnected() bool { return s.peerDisconnected }

// Stats returns a snapshot of the traffic counters.
func (s *Session) Stats() Stats { return s.stats }

// Close announces the departure to the peer when in play and releases the
// endpoint.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.state == StatePlay && !s.peerDisconnected {
		s.send(packet.NewDisconnect())
	}
	s.timers.Stop()

	logging.Info("Session closed",
		zap.Stringer("state", s.state),
		zap.Uint64("sent", s.stats.Sent),
		zap.Uint64("received", s.stats.Received))
	return s.conn.Close()
}

func (s *Session) send(msg packet.Message) bool {
	if err := s.outbound.OnSend(msg, s.cfg.Peer); err != nil {
		return false
	}
	if err := packet.Encode(msg, s.sendBuf); err != nil {
		s.stats.SendErrors++
		logging.Error("Failed to encode message", zap.Error(err))
		return false
	}
	if err := s.conn.SendTo(s.cfg.Peer, s.sendBuf); err != nil {
		s.stats.SendErrors++
		logTransportError("send", err)
		return false
	}
	s.stats.Sent++
	return true
}

// receive handles at most one pending datagram and reports whether the
// caller should try again.
func (s *Session) receive() bool {
	var from transport.Address
	if err := s.conn.RecvFrom(&from, s.recvBuf); err != nil {
		if !transport.IsNonCriticalErr(err) {
			s.stats.RecvErrors++
			logTransportError("recv", err)
		}
		return false
	}
	s.stats.Received++

	msg, err := s.packets.Decode(s.recvBuf)
	if err != nil {
		s.stats.Malformed++
		logging.Debug("Dropping malformed datagram",
			zap.Stringer("from", from),
			zap.Int("size", s.recvBuf.Len()),
			zap.Error(err))
		return true
	}

	if err := s.inbound.OnReceive(msg, from); err != nil {
		s.stats.Filtered++
		return true
	}

	s.handle(msg)
	return true
}

func (s *Session) handle(msg packet.Message) {
	if !msg.IsValid() {
		s.stats.Malformed++
		return
	}

	switch m := msg.(type) {
	case *packet.ConnectionRequest:
		s.onRequest(m)
	case *packet.ConnectionResponse:
		s.onResponse(m)
	case *packet.InputBatch:
		s.onBatch(m)
	case *packet.Input:
		if s.state == StatePlay {
			s.remoteIntent = m.Bits
		}
	case *packet.Disconnect:
		if s.state == StatePlay && !s.peerDisconnected {
			s.peerDisconnected = true
			logging.Info("Peer disconnected", zap.Stringer("peer", s.cfg.Peer))
		}
	}
}

func logTransportError(op string, err error) {
	code := transport.CodeOf(err)
	if transport.IsNonCritical(code) {
		logging.Debug("Transport "+op+" deferred", zap.Stringer("code", code))
		return
	}
	logging.Warn("Transport "+op+" failed",
		zap.Stringer("code", code),
		zap.Error(err))
}
