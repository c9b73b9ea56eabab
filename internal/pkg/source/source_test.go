package source

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/protocol"
	"github.com/gethiox/keystation/internal/pkg/supervisor"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
	"github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

type stream struct {
	data []byte
}

func (s *stream) Read(p []byte) (int, error) {
	if len(s.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.data)
	s.data = s.data[n:]
	return n, nil
}

func (s *stream) Write(p []byte) (int, error) { return len(p), nil }
func (s *stream) Close() error                { return nil }

type noFlash struct{}

func (noFlash) Flash(ctx context.Context) error { return nil }

func drain(q *utils.Queue[midi.Event]) []midi.Event {
	q.Close()
	var out []midi.Event
	for ev := range q.Out() {
		out = append(out, ev)
	}
	return out
}

func TestKeybedEndToEnd(t *testing.T) {
	var wire []byte
	for _, m := range []protocol.Message{
		protocol.KeyDown{Key: 3, TravelTime: 3}, // before verification, dropped
		protocol.Version{Text: "keystation test"},
		protocol.KeyDown{Key: 10, TravelTime: 12},
		protocol.KeyUp{Key: 10},
		protocol.KeyDown{Key: 200, TravelTime: 12}, // no such note, dropped
	} {
		b, err := protocol.Frame(m)
		assert.NoError(t, err)
		wire = append(wire, b...)
	}

	link := supervisor.LinkFunc(func() (io.ReadWriteCloser, error) {
		return &stream{data: wire}, nil
	})
	sup := supervisor.New(supervisor.Config{Header: "keystation ", BuildID: "test"}, link, noFlash{})
	q := utils.NewQueue[midi.Event]("test", 0)
	k := NewKeybed(sup, velocity.NewTranslator(velocity.DefaultProfile()), q)

	err := k.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []midi.Event{
		{midi.NoteOn, 46, 125},
		{midi.NoteOff, 46, 0},
	}, drain(q))
}

// timers collects scheduled settles so tests decide when the debounce window closes.
type timers struct {
	waits []time.Duration
	fns   []func()
}

func (tm *timers) after(d time.Duration, f func()) {
	tm.waits = append(tm.waits, d)
	tm.fns = append(tm.fns, f)
}

func (tm *timers) fire() {
	fns := tm.fns
	tm.fns = nil
	for _, f := range fns {
		f()
	}
}

func TestPedalEdges(t *testing.T) {
	q := utils.NewQueue[midi.Event]("test", 0)
	p := NewPedal(PedalConfig{Pin: 20, Debounce: time.Millisecond}, velocity.NewTranslator(velocity.DefaultProfile()), q)
	tm := &timers{}
	p.after = tm.after

	start := time.Unix(1000, 0)
	p.edge(true, start)
	assert.True(t, p.Down())
	p.edge(false, start.Add(200*time.Microsecond)) // bounce
	p.edge(true, start.Add(400*time.Microsecond))  // same level
	p.edge(false, start.Add(50*time.Millisecond))
	p.edge(false, start.Add(60*time.Millisecond))
	assert.False(t, p.Down())

	// the bounce settled back on the pressed level, nothing to emit
	assert.Equal(t, []time.Duration{800 * time.Microsecond}, tm.waits)
	tm.fire()
	assert.False(t, p.Down())

	assert.Equal(t, []midi.Event{
		{midi.ControlChange, midi.SustainPedal, 127},
		{midi.ControlChange, midi.SustainPedal, 0},
	}, drain(q))
}

func TestPedalChangeInsideDebounceWindow(t *testing.T) {
	var tests = []struct {
		name     string
		edges    []bool
		expected []midi.Event
	}{
		{
			name:  "quick release",
			edges: []bool{true, false},
			expected: []midi.Event{
				{midi.ControlChange, midi.SustainPedal, 127},
				{midi.ControlChange, midi.SustainPedal, 0},
			},
		},
		{
			name:  "bounce back to pressed",
			edges: []bool{true, false, true},
			expected: []midi.Event{
				{midi.ControlChange, midi.SustainPedal, 127},
			},
		},
		{
			name:  "bounce ending released",
			edges: []bool{true, false, true, false},
			expected: []midi.Event{
				{midi.ControlChange, midi.SustainPedal, 127},
				{midi.ControlChange, midi.SustainPedal, 0},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			q := utils.NewQueue[midi.Event]("test", 0)
			p := NewPedal(PedalConfig{Debounce: time.Millisecond}, velocity.NewTranslator(velocity.DefaultProfile()), q)
			tm := &timers{}
			p.after = tm.after

			start := time.Unix(1000, 0)
			for i, high := range test.edges {
				p.edge(high, start.Add(time.Duration(i)*100*time.Microsecond))
			}
			assert.True(t, p.Down())
			assert.Len(t, tm.fns, 1)

			tm.fire()
			assert.Empty(t, tm.fns)
			assert.Equal(t, test.expected, drain(q))
		})
	}
}

func TestPedalSettlesWithRealTimer(t *testing.T) {
	q := utils.NewQueue[midi.Event]("test", 0)
	p := NewPedal(PedalConfig{Debounce: time.Millisecond}, velocity.NewTranslator(velocity.DefaultProfile()), q)

	now := time.Now()
	p.edge(true, now)
	p.edge(false, now.Add(100*time.Microsecond))

	for _, want := range []midi.Event{
		{midi.ControlChange, midi.SustainPedal, 127},
		{midi.ControlChange, midi.SustainPedal, 0},
	} {
		select {
		case ev := <-q.Out():
			assert.Equal(t, want, ev)
		case <-time.After(time.Second):
			t.Fatal("sustain release was not emitted")
		}
	}
	assert.False(t, p.Down())
	q.Close()
}

func TestPedalFollowsProfileChannel(t *testing.T) {
	profile := velocity.DefaultProfile()
	profile.Channel = 3
	q := utils.NewQueue[midi.Event]("test", 0)
	p := NewPedal(PedalConfig{Debounce: time.Millisecond}, velocity.NewTranslator(profile), q)

	p.edge(true, time.Unix(1000, 0))
	assert.Equal(t, []midi.Event{{midi.ControlChange | 3, midi.SustainPedal, 127}}, drain(q))
}

func key(code evdev.EvCode, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

func TestSimulatorMessages(t *testing.T) {
	s := NewSimulator(SimulatorConfig{TravelTime: 20}, velocity.NewTranslator(velocity.DefaultProfile()), nil)

	var tests = []struct {
		name string
		ev   evdev.InputEvent
		msg  protocol.Message
	}{
		{name: "press", ev: key(evdev.KEY_Z, 1), msg: protocol.KeyDown{Key: 12, TravelTime: 20}},
		{name: "repeat", ev: key(evdev.KEY_Z, 2), msg: nil},
		{name: "release", ev: key(evdev.KEY_Z, 0), msg: protocol.KeyUp{Key: 12}},
		{name: "release again", ev: key(evdev.KEY_Z, 0), msg: nil},
		{name: "unmapped", ev: key(evdev.KEY_F1, 1), msg: nil},
		{name: "not a key", ev: evdev.InputEvent{Type: evdev.EV_REL, Code: evdev.REL_X, Value: 1}, msg: nil},
		{name: "middle c bottom row", ev: key(evdev.KEY_COMMA, 1), msg: protocol.KeyDown{Key: 24, TravelTime: 20}},
		{name: "middle c top row", ev: key(evdev.KEY_Q, 1), msg: nil},
		{name: "middle c bottom row up", ev: key(evdev.KEY_COMMA, 0), msg: nil},
		{name: "middle c top row up", ev: key(evdev.KEY_Q, 0), msg: protocol.KeyUp{Key: 24}},
	}

	for _, test := range tests {
		msg, ok := s.message(test.ev)
		assert.Equal(t, test.msg != nil, ok, test.name)
		assert.Equal(t, test.msg, msg, test.name)
	}
}
