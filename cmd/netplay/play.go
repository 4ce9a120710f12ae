package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appnet-org/netplay/internal/config"
	"github.com/appnet-org/netplay/pkg/logging"
	"github.com/appnet-org/netplay/pkg/random"
	"github.com/appnet-org/netplay/pkg/session"
	"github.com/appnet-org/netplay/pkg/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const statusInterval = 5 * time.Second

type playOptions struct {
	remote string
	port   uint16
	driver string
}

func newPlayCmd(root *rootOptions) *cobra.Command {
	opts := &playOptions{}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to the peer and run the tick loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("remote") {
				cfg.Session.Remote = opts.remote
			}
			if cmd.Flags().Changed("port") {
				cfg.Session.LocalPort = opts.port
			}
			if cmd.Flags().Changed("driver") {
				cfg.Play.Driver = opts.driver
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := logging.Init(cfg.Logging()); err != nil {
				return err
			}
			defer logging.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.remote, "remote", "", "peer address host:port")
	cmd.Flags().Uint16Var(&opts.port, "port", 0, "local UDP port")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "input driver: idle or scripted")
	return cmd
}

func newRand(seed uint32) *random.Rand {
	if seed == 0 {
		return random.NewFromTime()
	}
	return random.New(seed)
}

func newResolver(name string, rng *random.Rand) *transport.Resolver {
	if name == "random" {
		return transport.NewResolver(transport.NewRandomBalancer(rng))
	}
	return transport.DefaultResolver()
}

func runPlay(ctx context.Context, cfg *config.Config) error {
	rng := newRand(cfg.Play.Seed)

	peer, err := newResolver(cfg.Session.Balancer, rng).Resolve(ctx, cfg.Session.Remote)
	if err != nil {
		return err
	}
	local, err := cfg.LocalAddress()
	if err != nil {
		return err
	}
	drv, err := newDriver(cfg.Play.Driver, rng)
	if err != nil {
		return err
	}

	conn := transport.NewUDPTransport()
	conn.SetTOS(cfg.Session.TOS)
	s := session.New(cfg.SessionConfig(local, peer), conn, rng)
	defer s.Close()

	logging.Info("Starting netplay",
		zap.Stringer("local", local),
		zap.Stringer("peer", peer),
		zap.String("driver", drv.Name()),
		zap.Duration("tick", cfg.Play.Tick))

	loop := &tickLoop{
		session:      s,
		driver:       drv,
		connectRetry: cfg.Play.ConnectRetry,
		duration:     cfg.Play.Duration,
	}

	ticker := time.NewTicker(cfg.Play.Tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			logging.Info("Interrupted, leaving session")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			done, err := loop.step(dt)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// tickLoop is one iteration of the play loop, separated from the wall clock.
type tickLoop struct {
	session      *session.Session
	driver       driver
	remote       avatar
	connectRetry time.Duration
	duration     time.Duration

	elapsed     time.Duration
	sinceAsk    time.Duration
	asked       bool
	sinceStatus time.Duration
}

// step advances the session by dt and reports whether the loop is finished.
func (l *tickLoop) step(dt time.Duration) (bool, error) {
	l.elapsed += dt

	frame := session.Frame{Intent: l.driver.Intent(dt)}
	if l.session.State() == session.StateConnecting {
		l.sinceAsk += dt
		if !l.asked || (l.connectRetry > 0 && l.sinceAsk >= l.connectRetry) {
			frame.Connect = true
			l.asked = true
			l.sinceAsk = 0
		}
	}

	if err := l.session.Update(dt, frame); err != nil {
		if errors.Is(err, session.ErrOpenFailed) {
			logging.Error("Session cannot start", zap.Error(err))
		}
		return true, err
	}

	l.session.Replay(l.remote.apply)

	l.sinceStatus += dt
	if l.sinceStatus >= statusInterval {
		l.sinceStatus = 0
		st := l.session.Stats()
		logging.Info("Session status",
			zap.Stringer("state", l.session.State()),
			zap.Bool("host", l.session.IsHost()),
			zap.Uint64("sent", st.Sent),
			zap.Uint64("received", st.Received),
			zap.Uint64("batches_received", st.BatchesReceived),
			zap.Uint64("samples_dropped", st.SamplesDropped),
			zap.Float64("remote_y", l.remote.Y),
			zap.Int("remote_shots", l.remote.Shots))
	}

	if l.session.PeerDisconnected() {
		logging.Info("Peer left the session")
		return true, nil
	}
	return l.duration > 0 && l.elapsed >= l.duration, nil
}
