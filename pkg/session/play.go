package session

import (
	"fmt"
	"time"

	"github.com/appnet-org/netplay/pkg/input"
	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/packet"
	"github.com/appnet-org/netplay/pkg/transport"
	"go.uber.org/zap"
)

func (s *Session) play(dt time.Duration, f Frame) {
	s.timers.Advance(dt)

	for s.receive() {
	}

	// A zero-length tick would read as the end of the batch.
	if dt > 0 {
		s.window.Append(input.NewSample(f.Intent, dt))
	}

	if s.cfg.PerTickInput {
		s.send(packet.NewInput(f.Intent.HasUp(), f.Intent.HasDown(), f.Intent.HasFire()))
	}
}

// flush sends the newest window of local samples. Nothing is sent when no
// tick elapsed since the last flush.
func (s *Session) flush() {
	batch, n, dropped := s.window.Flush()
	if dropped > 0 {
		s.stats.SamplesDropped += dropped
		logging.Debug("Input window overflowed", zap.Uint64("dropped", dropped))
	}
	if n == 0 {
		return
	}

	s.sendSeq++
	if s.send(packet.NewInputBatch(s.sendSeq, batch)) {
		s.stats.BatchesSent++
	}
}

func (s *Session) onBatch(m *packet.InputBatch) {
	if s.state != StatePlay {
		return
	}
	s.stats.BatchesReceived++
	input.Replay(m.Samples[:], func(sample input.Sample) {
		s.remote = append(s.remote, sample)
	})
}

// batchSequencer drops input batches that are not newer than the last one
// accepted. Sequence numbers compare with serial arithmetic so they may wrap.
type batchSequencer struct {
	last  uint32
	seen  bool
	stale uint64
}

func (b *batchSequencer) OnReceive(msg packet.Message, _ transport.Address) error {
	m, ok := msg.(*packet.InputBatch)
	if !ok {
		return nil
	}
	if b.seen && int32(m.Sequence-b.last) <= 0 {
		b.stale++
		return fmt.Errorf("batch %d not newer than %d: %w", m.Sequence, b.last, transport.ErrDropped)
	}
	b.last, b.seen = m.Sequence, true
	return nil
}

func (b *batchSequencer) OnSend(packet.Message, transport.Address) error { return nil }
