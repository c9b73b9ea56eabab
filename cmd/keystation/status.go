package main

import (
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/source"
	"github.com/gethiox/keystation/internal/pkg/supervisor"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
)

type Status struct {
	Firmware  string
	Expected  string
	Reflashes int
	Profile   string
	Output    string
	Emitted   uint64
	Dropped   uint64
	Backlog   int
	Peak      int
	Held      int
	Sustain   bool
	Pedal     string
}

// daemonStatus collects counters of running components, any of them may be nil.
type daemonStatus struct {
	sup    *supervisor.Supervisor
	sink   *midi.Sink
	queue  *utils.Queue[midi.Event]
	tr     *velocity.Translator
	pedal  *source.Pedal
	output string
}

func (d *daemonStatus) Snapshot() Status {
	s := Status{Firmware: "disabled", Pedal: "disabled", Output: d.output}
	if d.sup != nil {
		s.Firmware = d.sup.State().String()
		s.Expected = d.sup.Expected()
		s.Reflashes = d.sup.Reflashes()
	}
	if d.tr != nil {
		s.Profile = d.tr.Profile().String()
	}
	if d.sink != nil {
		s.Emitted = d.sink.Emitted()
		s.Dropped = d.sink.Dropped()
		s.Held = d.sink.Held()
		s.Sustain = d.sink.Sustained()
	}
	if d.queue != nil {
		s.Backlog = d.queue.Len()
		s.Peak = d.queue.HighWatermark()
	}
	if d.pedal != nil {
		s.Pedal = "up"
		if d.pedal.Down() {
			s.Pedal = "down"
		}
	}
	return s
}
