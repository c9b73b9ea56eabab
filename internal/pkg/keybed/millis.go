package keybed

import "sync/atomic"

type Clock interface {
	Millis() uint32
}

// Millis is a free running millisecond counter. Tick is meant to be called from a 1ms timer
// interrupt, atomic access keeps Millis from observing a half-written value on 8-bit targets.
type Millis struct {
	counter atomic.Uint32
}

func (m *Millis) Tick() {
	m.counter.Add(1)
}

func (m *Millis) Millis() uint32 {
	return m.counter.Load()
}

// SaturatingSub returns now-t0, or 0 when the counter wrapped in between.
// A wrap loses one measurement, roughly every 49 days of uptime.
func SaturatingSub(now, t0 uint32) uint32 {
	if now < t0 {
		return 0
	}
	return now - t0
}
