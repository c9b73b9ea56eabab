package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/protocol"
	"github.com/gethiox/keystation/internal/pkg/tty"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

// fakeConn replays chunks, a nil chunk is reported as a read timeout and io.EOF follows the last one.
type fakeConn struct {
	chunks [][]byte
	closed bool
}

func (c *fakeConn) Read(p []byte) (int, error) {
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := c.chunks[0]
	if chunk == nil {
		c.chunks = c.chunks[1:]
		return 0, tty.ErrTimeout
	}
	n := copy(p, chunk)
	if n == len(chunk) {
		c.chunks = c.chunks[1:]
	} else {
		c.chunks[0] = chunk[n:]
	}
	return n, nil
}

func (c *fakeConn) Write(p []byte) (int, error) { return len(p), nil }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeLink struct {
	conns  []*fakeConn
	opened int
}

func (l *fakeLink) Open() (io.ReadWriteCloser, error) {
	if l.opened >= len(l.conns) {
		return nil, errors.New("no device")
	}
	c := l.conns[l.opened]
	l.opened++
	return c, nil
}

type fakeFlasher struct {
	flashed int
	err     error
	// link is inspected on every Flash, the serial port must be released before avrdude takes it
	link       *fakeLink
	linkClosed []bool
}

func (f *fakeFlasher) Flash(ctx context.Context) error {
	f.flashed++
	if f.link != nil && f.link.opened > 0 {
		f.linkClosed = append(f.linkClosed, f.link.conns[f.link.opened-1].closed)
	}
	return f.err
}

func conn(frames ...[]byte) *fakeConn {
	return &fakeConn{chunks: frames}
}

func frame(m protocol.Message) []byte {
	b, err := protocol.Frame(m)
	if err != nil {
		panic(err)
	}
	return b
}

func version(text string) []byte {
	return frame(protocol.Version{Text: text})
}

var testConfig = Config{Header: "keystation ", BuildID: "xyz", MaxReflashAttempts: 3, SettleDelay: time.Millisecond}

func run(t *testing.T, cfg Config, link *fakeLink, flasher *fakeFlasher) ([]protocol.Message, error) {
	t.Helper()
	var handled []protocol.Message
	s := New(cfg, link, flasher)
	err := s.Run(context.Background(), func(m protocol.Message) error {
		handled = append(handled, m)
		return nil
	})
	return handled, err
}

func TestMismatchReflashesOnceBeforeNextComparison(t *testing.T) {
	first := conn(version("keystation abc"), frame(protocol.KeyDown{Key: 1, TravelTime: 2}))
	second := conn(version("keystation xyz"), frame(protocol.KeyDown{Key: 10, TravelTime: 12}))
	link := &fakeLink{conns: []*fakeConn{first, second}}
	flasher := &fakeFlasher{link: link}

	handled, err := run(t, testConfig, link, flasher)

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, flasher.flashed)
	assert.Equal(t, []bool{true}, flasher.linkClosed)
	assert.Equal(t, 2, link.opened)
	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, []protocol.Message{protocol.KeyDown{Key: 10, TravelTime: 12}}, handled)
}

func TestVersionComparedExactly(t *testing.T) {
	var tests = []struct {
		name  string
		text  string
		match bool
	}{
		{name: "exact", text: "keystation xyz", match: true},
		{name: "trailing newline", text: "keystation xyz\n", match: false},
		{name: "missing header", text: "xyz", match: false},
		{name: "different build", text: "keystation abc", match: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			link := &fakeLink{conns: []*fakeConn{conn(version(test.text))}}
			flasher := &fakeFlasher{}

			_, err := run(t, testConfig, link, flasher)
			if test.match {
				assert.ErrorIs(t, err, io.EOF)
				assert.Equal(t, 0, flasher.flashed)
			} else {
				// the only link is gone after the reflash
				assert.Equal(t, 1, flasher.flashed)
				assert.Error(t, err)
				assert.NotErrorIs(t, err, io.EOF)
			}
		})
	}
}

func TestReflashBounded(t *testing.T) {
	var conns []*fakeConn
	for range 5 {
		conns = append(conns, conn(version("keystation abc")))
	}
	link := &fakeLink{conns: conns}
	flasher := &fakeFlasher{}

	cfg := testConfig
	cfg.MaxReflashAttempts = 2
	_, err := run(t, cfg, link, flasher)

	assert.ErrorIs(t, err, ErrFirmwareMismatch)
	assert.Equal(t, 2, flasher.flashed)
	assert.Equal(t, 3, link.opened)
}

func TestReflashUnbounded(t *testing.T) {
	var conns []*fakeConn
	for range 5 {
		conns = append(conns, conn(version("keystation abc")))
	}
	link := &fakeLink{conns: conns}
	flasher := &fakeFlasher{}

	cfg := testConfig
	cfg.MaxReflashAttempts = 0
	_, err := run(t, cfg, link, flasher)

	assert.NotErrorIs(t, err, ErrFirmwareMismatch)
	assert.Equal(t, 5, flasher.flashed)
	assert.Equal(t, 5, link.opened)
}

func TestFlashFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	link := &fakeLink{conns: []*fakeConn{conn(version("keystation abc")), conn(version("keystation xyz"))}}
	flasher := &fakeFlasher{err: boom}

	_, err := run(t, testConfig, link, flasher)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, link.opened)
}

func TestPanicIsFatal(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{conn(
		version("keystation xyz"),
		frame(protocol.KeyUp{Key: 3}),
		[]byte{'P'},
		frame(protocol.KeyUp{Key: 4}),
	)}}

	handled, err := run(t, testConfig, link, &fakeFlasher{})
	assert.ErrorIs(t, err, ErrDevicePanic)
	assert.Equal(t, []protocol.Message{protocol.KeyUp{Key: 3}}, handled)
}

func TestRuntimePanicOutputIsFatal(t *testing.T) {
	// without recover the device runtime prints its panic text on the link and halts
	link := &fakeLink{conns: []*fakeConn{conn(
		version("keystation xyz"),
		frame(protocol.KeyDown{Key: 3, TravelTime: 9}),
		[]byte("panic: index out of range\r\n"),
	)}}

	handled, err := run(t, testConfig, link, &fakeFlasher{})
	assert.ErrorIs(t, err, ErrDevicePanic)
	assert.Equal(t, []protocol.Message{protocol.KeyDown{Key: 3, TravelTime: 9}}, handled)
}

func TestEventsBeforeVerificationDropped(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{conn(
		frame(protocol.KeyDown{Key: 1, TravelTime: 2}),
		frame(protocol.KeyUp{Key: 1}),
		version("keystation xyz"),
		frame(protocol.KeyUp{Key: 2}),
	)}}

	handled, err := run(t, testConfig, link, &fakeFlasher{})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []protocol.Message{protocol.KeyUp{Key: 2}}, handled)
}

func TestDeviceResetReverifies(t *testing.T) {
	first := conn(
		version("keystation xyz"),
		frame(protocol.KeyUp{Key: 1}),
		version("keystation abc"),
		frame(protocol.KeyUp{Key: 2}),
	)
	second := conn(version("keystation xyz"), frame(protocol.KeyUp{Key: 3}))
	link := &fakeLink{conns: []*fakeConn{first, second}}
	flasher := &fakeFlasher{}

	handled, err := run(t, testConfig, link, flasher)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, flasher.flashed)
	assert.Equal(t, []protocol.Message{protocol.KeyUp{Key: 1}, protocol.KeyUp{Key: 3}}, handled)
}

func TestTimeoutsAreRetried(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{conn(
		nil,
		version("keystation xyz")[:5],
		nil,
		version("keystation xyz")[5:],
		nil,
		[]byte{'D', 7},
		nil,
		[]byte{42},
	)}}

	handled, err := run(t, testConfig, link, &fakeFlasher{})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []protocol.Message{protocol.KeyDown{Key: 7, TravelTime: 42}}, handled)
}

func TestMalformedVersionIsFatal(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{conn([]byte{'V', 2, 0xff, 0xfe})}}
	flasher := &fakeFlasher{}

	_, err := run(t, testConfig, link, flasher)
	assert.ErrorIs(t, err, protocol.ErrMalformedVersion)
	assert.Equal(t, 0, flasher.flashed)
}

func TestHandlerErrorStopsRun(t *testing.T) {
	boom := errors.New("boom")
	link := &fakeLink{conns: []*fakeConn{conn(version("keystation xyz"), frame(protocol.KeyUp{Key: 1}), frame(protocol.KeyUp{Key: 2}))}}

	var calls int
	s := New(testConfig, link, &fakeFlasher{})
	err := s.Run(context.Background(), func(m protocol.Message) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Operational, s.State())
}

func TestCancelledContext(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{conn(version("keystation xyz"))}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(testConfig, link, &fakeFlasher{})
	err := s.Run(ctx, func(m protocol.Message) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, link.conns[0].closed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "verifying", Verifying.String())
	assert.Equal(t, "operational", Operational.String())
}

func TestOnVerified(t *testing.T) {
	link := &fakeLink{conns: []*fakeConn{
		conn(version("keystation abc")),
		conn(version("keystation xyz"), frame(protocol.KeyUp{Key: 1}), version("keystation xyz")),
	}}

	var verified int
	s := New(testConfig, link, &fakeFlasher{})
	s.OnVerified(func() { verified++ })
	err := s.Run(context.Background(), func(m protocol.Message) error { return nil })

	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, verified)
	assert.Equal(t, 1, s.Reflashes())
}
