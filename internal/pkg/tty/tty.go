package tty

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// ErrTimeout is returned by Read when no byte arrived within the read timeout.
// It is not a failure of the link, callers are expected to read again.
var ErrTimeout = errors.New("serial read timed out")

// NoTimeout makes Read wait for data indefinitely.
const NoTimeout time.Duration = serial.NoTimeout

type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Port is a raw 8N1 serial link without flow control, opened for exclusive use.
type Port struct {
	cfg  Config
	port serial.Port
}

var openPort = serial.Open

func Open(cfg Config) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("opening \"%s\" failed: %w", cfg.Device, err)
	}

	timeout := cfg.ReadTimeout
	if timeout == 0 {
		timeout = NoTimeout
	}
	err = p.SetReadTimeout(timeout)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("setting read timeout failed: %w", err)
	}

	// whatever arrived before we opened the port belongs to nobody
	err = p.ResetInputBuffer()
	if err != nil {
		log.Info(fmt.Sprintf("failed to flush serial input: %v", err), zap.String("device", cfg.Device), logger.Warning)
	}

	log.Info("serial port opened", zap.String("device", cfg.Device), zap.Int("baud", cfg.Baud), logger.Debug)
	return &Port{cfg: cfg, port: p}, nil
}

// Read blocks until at least one byte is available or the read timeout passes.
// Interrupted system calls are retried.
func (p *Port) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return n, fmt.Errorf("serial read failed: %w", err)
		}
		if n == 0 {
			return 0, ErrTimeout
		}
		return n, nil
	}
}

func (p *Port) Write(b []byte) (int, error) {
	var written int
	for written < len(b) {
		n, err := p.port.Write(b[written:])
		written += n
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return written, fmt.Errorf("serial write failed: %w", err)
		}
	}
	return written, nil
}

// Flush waits until everything written has been transmitted.
func (p *Port) Flush() error {
	return p.port.Drain()
}

func (p *Port) Close() error {
	log.Info("serial port closed", zap.String("device", p.cfg.Device), logger.Debug)
	return p.port.Close()
}

func (p *Port) String() string {
	return fmt.Sprintf("%s@%d", p.cfg.Device, p.cfg.Baud)
}
