package session

import (
	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"go.uber.org/zap"
)

// claimBit marks a request nonce sent before the sender saw the peer's
// request. The remaining bits are random.
const claimBit uint32 = 1 << 31

func (s *Session) connecting(f Frame) {
	if f.Connect {
		s.sendRequest()
	}

	s.receive()

	if s.sawRequest && s.sawResponse {
		s.enterPlay()
	}
}

// sendRequest sends the connection request. The nonce is fixed by the first
// send so that repeated triggers never change the peer's view of our claim.
func (s *Session) sendRequest() {
	if !s.nonceSet {
		s.nonce = s.rng.Uint32() &^ claimBit
		if !s.sawRequest {
			s.nonce |= claimBit
		}
		s.nonceSet = true
	}

	if s.send(packet.NewConnectionRequest(s.nonce)) {
		logging.Debug("Sent connection request",
			zap.Stringer("peer", s.cfg.Peer),
			zap.Bool("claim", s.nonce&claimBit != 0))
	}
}

// onRequest answers every request, including ones that arrive in play from a
// peer whose copy of our response was lost.
func (s *Session) onRequest(m *packet.ConnectionRequest) {
	if s.state == StateConnecting {
		s.peerNonce = m.Nonce
		s.sawRequest = true
	}
	s.send(packet.NewConnectionResponse(s.cfg.ResponseNonce))
}

func (s *Session) onResponse(m *packet.ConnectionResponse) {
	if s.state != StateConnecting {
		return
	}
	if m.Nonce != s.cfg.ResponseNonce {
		logging.Debug("Ignoring connection response with unexpected nonce",
			zap.Uint32("nonce", m.Nonce),
			zap.Uint32("expected", s.cfg.ResponseNonce))
		return
	}
	s.sawResponse = true
}

func (s *Session) enterPlay() {
	local := s.cfg.Local
	if bound, err := s.conn.LocalAddr(); err == nil {
		local = bound
	}
	s.isHost = electHost(s.nonce, s.peerNonce, local.Compare(s.cfg.Peer))

	s.window.Clear()
	s.timers.SchedulePeriodic(flushTimer, s.cfg.SendInterval, s.flush)
	s.setState(StatePlay)

	logging.Info("Session entered play",
		zap.Stringer("peer", s.cfg.Peer),
		zap.Bool("host", s.isHost))
}

// electHost decides the host role from both request nonces. A side that sent
// its request before seeing the peer's wins. Otherwise the lower random part
// wins, and equal nonces fall back to the address order addrCmp
// (local compared with peer). Both sides reach complementary answers.
func electHost(ours, theirs uint32, addrCmp int) bool {
	ourClaim, theirClaim := ours&claimBit != 0, theirs&claimBit != 0
	if ourClaim != theirClaim {
		return ourClaim
	}
	a, b := ours&^claimBit, theirs&^claimBit
	if a != b {
		return a < b
	}
	return addrCmp < 0
}
