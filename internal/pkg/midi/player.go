package midi

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	mmidi "github.com/moutend/go-midi"
	mmidiev "github.com/moutend/go-midi/event"
)

//go:embed jingle.mid
var readyJingle []byte

// Player plays note events of a standard midi file, other events are skipped.
type Player struct {
	data []byte

	enabledNotes map[uint8]uint8
}

func NewPlayer(data []byte) *Player {
	return &Player{
		data:         data,
		enabledNotes: make(map[uint8]uint8),
	}
}

// ReadyJingle is the short arpeggio played when the keybed becomes usable.
func ReadyJingle() *Player {
	return NewPlayer(readyJingle)
}

// Play pushes events in their timing, notes still held when ctx ends are released.
func (p *Player) Play(ctx context.Context, push func(Event), bpm int) error {
	if bpm <= 0 {
		return fmt.Errorf("invalid tempo: %d bpm", bpm)
	}
	parser := mmidi.NewParser(p.data)
	mevents, err := parser.Parse()
	if err != nil {
		return fmt.Errorf("parsing midi file failed: %w", err)
	}

root:
	for _, track := range mevents.Tracks {
		for _, event := range track.Events {
			dt := time.Duration(event.DeltaTime().Quantity().Uint32()) * time.Second / time.Duration(bpm) / 2
			select {
			case <-time.After(dt):
			case <-ctx.Done():
				break root
			}

			switch v := event.(type) {
			case *mmidiev.NoteOnEvent:
				note := uint8(v.Note())
				p.enabledNotes[note] = v.Channel()
				push(NoteEvent(NoteOn, v.Channel(), note, uint8(v.Velocity())))
			case *mmidiev.NoteOffEvent:
				note := uint8(v.Note())
				delete(p.enabledNotes, note)
				push(NoteEvent(NoteOff, v.Channel(), note, 0))
			}
		}
	}

	for n, ch := range p.enabledNotes {
		push(NoteEvent(NoteOff, ch, n, 0))
	}
	clear(p.enabledNotes)
	return nil
}
