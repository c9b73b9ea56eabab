package midi

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi/driver"
)

var log = logger.GetLogger()

// Sink is the only writer of the midi output, every producer goes through its event channel.
type Sink struct {
	out driver.MIDIOut

	emitted atomic.Uint64
	dropped atomic.Uint64

	mu      sync.Mutex
	held    map[[2]uint8]struct{} // channel, note
	sustain map[uint8]bool
}

func NewSink(out driver.MIDIOut) *Sink {
	return &Sink{
		out:     out,
		held:    make(map[[2]uint8]struct{}),
		sustain: make(map[uint8]bool),
	}
}

func (s *Sink) Emitted() uint64 { return s.emitted.Load() }
func (s *Sink) Dropped() uint64 { return s.dropped.Load() }

// Held returns how many notes are sounding right now.
func (s *Sink) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

func (s *Sink) Sustained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, on := range s.sustain {
		if on {
			return true
		}
	}
	return false
}

// Run drains events into the output until ctx is done or events is closed.
// A message the output refuses is dropped, the next one is tried as usual.
// Notes still sounding on exit are released.
func (s *Sink) Run(ctx context.Context, events <-chan Event) error {
	err := s.out.Open()
	if err != nil {
		return fmt.Errorf("opening midi output \"%s\" failed: %w", s.out.Name(), err)
	}
	defer func() {
		err := s.out.Close()
		if err != nil {
			log.Info(fmt.Sprintf("closing midi output failed: %s", err), logger.Warning)
		}
	}()
	log.Info(fmt.Sprintf("midi output ready: %s", s.out.Name()), logger.Info)

root:
	for {
		select {
		case <-ctx.Done():
			break root
		case ev, ok := <-events:
			if !ok {
				break root
			}
			s.send(ev)
		}
	}

	s.silence()
	log.Info("Processing midi events stopped", logger.Debug)
	return nil
}

func (s *Sink) send(ev Event) {
	if len(ev) == 0 {
		return
	}
	err := s.out.Send(ev)
	if err != nil {
		s.dropped.Add(1)
		log.Info(fmt.Sprintf("failed to send midi event, dropping: %s (%s)", ev, err), logger.Warning)
		return
	}
	s.emitted.Add(1)
	s.track(ev)
	log.Info(ev.String(), logger.Keys)
}

func (s *Sink) track(ev Event) {
	if len(ev) < 3 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := [2]uint8{ev.Channel(), ev[1]}
	switch ev.Type() {
	case NoteOn:
		if ev[2] == 0 {
			delete(s.held, key)
		} else {
			s.held[key] = struct{}{}
		}
	case NoteOff:
		delete(s.held, key)
	case ControlChange:
		if ev[1] == SustainPedal {
			s.sustain[ev.Channel()] = ev[2] >= 64
		}
	}
}

func (s *Sink) silence() {
	s.mu.Lock()
	var pending []Event
	for key := range s.held {
		pending = append(pending, NoteEvent(NoteOff, key[0], key[1], 0))
	}
	for channel, on := range s.sustain {
		if on {
			pending = append(pending, SustainEvent(channel, false))
		}
	}
	s.mu.Unlock()

	sort.Slice(pending, func(i, j int) bool {
		return string(pending[i]) < string(pending[j])
	})
	for _, ev := range pending {
		s.send(ev)
	}
}
