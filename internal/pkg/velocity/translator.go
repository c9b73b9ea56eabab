package velocity

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gethiox/keystation/internal/pkg/keybed"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/protocol"
)

var log = logger.GetLogger()

// sounding is the channel and note a held key was started with.
type sounding struct {
	channel, note uint8
	on            bool
}

// Translator turns key messages into midi events, the profile can be swapped while in use.
// A release always ends the note its press started, even across a profile swap.
type Translator struct {
	profile atomic.Pointer[Profile]

	mu   sync.Mutex
	held [keybed.KeyCount]sounding
}

func NewTranslator(p Profile) *Translator {
	t := &Translator{}
	t.SetProfile(p)
	return t
}

func (t *Translator) Profile() Profile {
	return *t.profile.Load()
}

func (t *Translator) SetProfile(p Profile) {
	t.profile.Store(&p)
}

// Translate returns false for messages that do not map to a midi event.
func (t *Translator) Translate(msg protocol.Message) (midi.Event, bool) {
	p := t.profile.Load()

	switch m := msg.(type) {
	case protocol.KeyDown:
		note, err := p.Note(m.Key)
		if err != nil {
			log.Info(fmt.Sprintf("ignoring key press: %s", err), logger.Warning)
			return nil, false
		}
		if int(m.Key) < keybed.KeyCount {
			t.mu.Lock()
			t.held[m.Key] = sounding{channel: p.Channel, note: note, on: true}
			t.mu.Unlock()
		}
		return midi.NoteEvent(midi.NoteOn, p.Channel, note, p.Velocity(m.TravelTime)), true
	case protocol.KeyUp:
		if int(m.Key) < keybed.KeyCount {
			t.mu.Lock()
			s := t.held[m.Key]
			t.held[m.Key] = sounding{}
			t.mu.Unlock()
			if s.on {
				return midi.NoteEvent(midi.NoteOff, s.channel, s.note, 0), true
			}
		}
		// released without a recorded press, e.g. held before startup
		note, err := p.Note(m.Key)
		if err != nil {
			log.Info(fmt.Sprintf("ignoring key release: %s", err), logger.Warning)
			return nil, false
		}
		return midi.NoteEvent(midi.NoteOff, p.Channel, note, 0), true
	default:
		return nil, false
	}
}
