package source

import (
	"context"
	"sync"
	"time"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
	"go.uber.org/zap"
)

type PedalConfig struct {
	Pin      int
	Debounce time.Duration
}

// Pedal turns edges of a sustain pedal switch into sustain control changes on the profile channel.
type Pedal struct {
	cfg    PedalConfig
	tr     *velocity.Translator
	events *utils.Queue[midi.Event]

	// after schedules a settle once the debounce window closes
	after func(d time.Duration, f func())

	mu      sync.Mutex
	raw     bool // level of the latest edge
	down    bool // debounced level
	last    time.Time
	pending bool
}

func NewPedal(cfg PedalConfig, tr *velocity.Translator, events *utils.Queue[midi.Event]) *Pedal {
	return &Pedal{
		cfg:    cfg,
		tr:     tr,
		events: events,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func (p *Pedal) Run(ctx context.Context) error {
	log.Info("[Pedal source] started", zap.Int("pin", p.cfg.Pin), logger.Debug)
	defer log.Info("[Pedal source] stopped", logger.Debug)
	return watchPin(ctx, p.cfg.Pin, func(high bool) {
		p.edge(high, time.Now())
	})
}

func (p *Pedal) Down() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.down
}

// edge is called on every pin interrupt. Bounces inside the debounce window are held back
// and the level is read again when the window closes, so a real change is never lost.
func (p *Pedal) edge(high bool, now time.Time) {
	p.mu.Lock()
	p.raw = high
	ev, ok := p.update(now)
	p.mu.Unlock()

	if ok {
		p.events.Push(ev)
	}
}

func (p *Pedal) settle(now time.Time) {
	p.mu.Lock()
	p.pending = false
	ev, ok := p.update(now)
	p.mu.Unlock()

	if ok {
		p.events.Push(ev)
	}
}

// update must be called with mu held.
func (p *Pedal) update(now time.Time) (midi.Event, bool) {
	if p.raw == p.down {
		return nil, false
	}
	if !p.last.IsZero() {
		if wait := p.cfg.Debounce - now.Sub(p.last); wait > 0 {
			if !p.pending {
				p.pending = true
				end := now.Add(wait)
				p.after(wait, func() { p.settle(end) })
			}
			return nil, false
		}
	}
	p.down = p.raw
	p.last = now
	return midi.SustainEvent(p.tr.Profile().Channel, p.down), true
}
