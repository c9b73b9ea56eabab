package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/protocol"
	"github.com/gethiox/keystation/internal/pkg/tty"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

var (
	ErrDevicePanic      = errors.New("device reported a fault")
	ErrFirmwareMismatch = errors.New("firmware still mismatched after reflashing")
)

type State int32

const (
	Verifying State = iota
	Operational
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Operational:
		return "operational"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Link opens a fresh connection to the device, every reflash closes the old one first.
type Link interface {
	Open() (io.ReadWriteCloser, error)
}

type LinkFunc func() (io.ReadWriteCloser, error)

func (f LinkFunc) Open() (io.ReadWriteCloser, error) { return f() }

type Flasher interface {
	Flash(ctx context.Context) error
}

type Config struct {
	Header  string
	BuildID string
	// MaxReflashAttempts bounds consecutive reflashes without a successful verification, 0 means no limit.
	MaxReflashAttempts int
	// SettleDelay is waited after flashing, before the link is reopened.
	SettleDelay time.Duration
}

const DefaultSettleDelay = 100 * time.Millisecond

// Supervisor keeps the device running the expected firmware and forwards its events once it does.
type Supervisor struct {
	cfg     Config
	link    Link
	flasher Flasher

	state    atomic.Int32
	reflash  atomic.Int32
	attempts int

	verified func()
}

func New(cfg Config, link Link, flasher Flasher) *Supervisor {
	return &Supervisor{cfg: cfg, link: link, flasher: flasher}
}

// OnVerified registers fn to be called from Run every time the device passes verification.
func (s *Supervisor) OnVerified(fn func()) {
	s.verified = fn
}

// Expected is the exact version text the device has to announce.
func (s *Supervisor) Expected() string {
	return s.cfg.Header + s.cfg.BuildID
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Reflashes returns how many times the device was flashed since start.
func (s *Supervisor) Reflashes() int {
	return int(s.reflash.Load())
}

// Run blocks until a fatal error or context cancellation. Every message received while
// Operational is passed to handle, an error from handle ends Run.
func (s *Supervisor) Run(ctx context.Context, handle func(protocol.Message) error) error {
	for {
		conn, err := s.link.Open()
		if err != nil {
			return fmt.Errorf("failed to open device link: %w", err)
		}

		mismatch, err := s.session(ctx, conn, handle)
		if err != nil {
			return err
		}
		if !mismatch {
			continue
		}

		s.attempts++
		if s.cfg.MaxReflashAttempts > 0 && s.attempts > s.cfg.MaxReflashAttempts {
			return fmt.Errorf("%w: %d attempts", ErrFirmwareMismatch, s.cfg.MaxReflashAttempts)
		}

		log.Info("reflashing device", zap.Int("attempt", s.attempts), logger.Warning)
		s.reflash.Add(1)
		err = s.flasher.Flash(ctx)
		if err != nil {
			return fmt.Errorf("reflash failed: %w", err)
		}

		select {
		case <-time.After(s.cfg.SettleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// session owns conn until it returns, mismatch reports that the device needs flashing.
func (s *Supervisor) session(ctx context.Context, conn io.ReadWriteCloser, handle func(protocol.Message) error) (mismatch bool, err error) {
	id := uuid.NewString()
	l := log.With(zap.String("session", id))

	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			err := conn.Close()
			if err != nil {
				l.Info(fmt.Sprintf("failed to close link: %s", err), logger.Warning)
			}
		})
	}
	defer closeConn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	s.state.Store(int32(Verifying))
	l.Info("link opened, waiting for version", logger.Firmware)

	dec := protocol.NewDecoder(conn)
	var discarded uint64
	for {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		msg, err := dec.Next()
		if d := dec.Discarded(); d != discarded {
			l.Info("dropped bytes while resynchronizing", zap.Uint64("count", d-discarded), logger.Raw)
			discarded = d
		}
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			if errors.Is(err, tty.ErrTimeout) {
				continue
			}
			return false, fmt.Errorf("device link failed: %w", err)
		}
		l.Info(fmt.Sprintf("frame: %s", msg), logger.Raw)

		switch m := msg.(type) {
		case protocol.Panic:
			return false, ErrDevicePanic
		case protocol.Version:
			if s.State() == Operational {
				l.Info("device announced itself again, verifying", logger.Warning)
				s.state.Store(int32(Verifying))
			}
			if m.Text != s.Expected() {
				l.Info("firmware mismatch", zap.String("got", m.Text), zap.String("expected", s.Expected()), logger.Warning)
				return true, nil
			}
			s.attempts = 0
			s.state.Store(int32(Operational))
			l.Info("firmware verified", zap.String("version", m.Text), logger.Info)
			if s.verified != nil {
				s.verified()
			}
		default:
			if s.State() != Operational {
				l.Info(fmt.Sprintf("dropping %s before verification", msg), logger.Debug)
				continue
			}
			err := handle(msg)
			if err != nil {
				return false, err
			}
		}
	}
}
