package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	// message types
	NoteOff               uint8 = 0b1000 << 4
	NoteOn                uint8 = 0b1001 << 4
	PolyphonicKeyPressure uint8 = 0b1010 << 4 // After-touch
	ControlChange         uint8 = 0b1011 << 4
	ProgramChange         uint8 = 0b1100 << 4
	ChannelPressure       uint8 = 0b1101 << 4 // After-touch
	PitchWheelChange      uint8 = 0b1110 << 4

	// ControlChange
	SustainPedal        uint8 = 64
	AllNotesOff         uint8 = 0b01111011
	AllSoundOff         uint8 = 0b01111000
	ResetAllControllers uint8 = 0b01111001
)

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func NoteToPitch(note byte) string {
	return pitchNames[note%12]
}

func NoteToOctave(note byte) int {
	return int(note/12) - 2
}

func noteToString(note byte) string {
	return fmt.Sprintf("%-2s%2d", NoteToPitch(note), NoteToOctave(note))
}

type Event []byte

func (e Event) Type() uint8 {
	if len(e) == 0 {
		return 0
	}
	return e[0] & 0b11110000
}

func (e Event) Channel() uint8 {
	if len(e) == 0 {
		return 0
	}
	return e[0] & 0b1111
}

func (e Event) String() string {
	if len(e) == 0 {
		return "Warning: empty Midi event, it should be not emitted"
	}
	channel := e.Channel() + 1
	switch e.Type() {
	case NoteOff:
		if len(e) == 3 {
			return fmt.Sprintf("Note Off: %s (channel: %2d, velocity: %3d)", noteToString(e[1]), channel, e[2])
		}
	case NoteOn:
		if len(e) == 3 {
			return fmt.Sprintf("Note On : %s (channel: %2d, velocity: %3d)", noteToString(e[1]), channel, e[2])
		}
	case ControlChange:
		if len(e) == 3 && e[1] == SustainPedal {
			state := "off"
			if e[2] >= 64 {
				state = "on"
			}
			return fmt.Sprintf("Sustain: %-3s (channel: %2d, value: %3d)", state, channel, e[2])
		}
		if len(e) >= 2 {
			var value string
			if len(e) == 3 {
				value = fmt.Sprintf("%3d", e[2])
			} else {
				value = "---"
			}
			return fmt.Sprintf("Control Change: %3d, value: %s (channel: %2d)", e[1], value, channel)
		}
	}

	msg := gomidi.Message(e)
	if msg.Type() != gomidi.UnknownMsg {
		return msg.String()
	}
	s := "Oof, unexpected event format: "
	for _, v := range e {
		s += fmt.Sprintf("0x%02x ", v)
	}
	return s
}

func NoteEvent(messageType, channel, note, velocity uint8) Event {
	return Event{messageType | channel, note, velocity}
}

func ControlChangeEvent(channel, function, value uint8) Event {
	return Event{ControlChange | channel, function, value}
}

func SustainEvent(channel uint8, down bool) Event {
	var value uint8
	if down {
		value = 127
	}
	return ControlChangeEvent(channel, SustainPedal, value)
}
