package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteToString(t *testing.T) {
	for _, tc := range []struct {
		note     byte
		expected string
	}{
		{note: 0, expected: "C -2"},
		{note: 1, expected: "C#-2"},
		{note: 11, expected: "B -2"},
		{note: 12, expected: "C -1"},
		{note: 24, expected: "C  0"},
		{note: 36, expected: "C  1"},
		{note: 46, expected: "A# 1"},
		{note: 60, expected: "C  3"},
		{note: 61, expected: "C# 3"},
		{note: 84, expected: "C  5"},
		{note: 127, expected: "G  8"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, noteToString(tc.note))
		})
	}
}

func TestEvent_String(t *testing.T) {
	for _, tc := range []struct {
		midiEvent Event
		expected  string
	}{
		{
			midiEvent: []byte{0b10000000, 0b00000000, 0b00000000},
			expected:  "Note Off: C -2 (channel:  1, velocity:   0)",
		}, {
			midiEvent: []byte{0b10001111, 0b01111111, 0b01111111},
			expected:  "Note Off: G  8 (channel: 16, velocity: 127)",
		}, {
			midiEvent: NoteEvent(NoteOn, 0, 46, 125),
			expected:  "Note On : A# 1 (channel:  1, velocity: 125)",
		}, {
			midiEvent: NoteEvent(NoteOn, 9, 60, 1),
			expected:  "Note On : C  3 (channel: 10, velocity:   1)",
		}, {
			midiEvent: SustainEvent(0, true),
			expected:  "Sustain: on  (channel:  1, value: 127)",
		}, {
			midiEvent: SustainEvent(3, false),
			expected:  "Sustain: off (channel:  4, value:   0)",
		}, {
			midiEvent: ControlChangeEvent(0, AllNotesOff, 0),
			expected:  "Control Change: 123, value:   0 (channel:  1)",
		}, {
			midiEvent: Event{ControlChange, 7},
			expected:  "Control Change:   7, value: --- (channel:  1)",
		}, {
			midiEvent: Event{},
			expected:  "Warning: empty Midi event, it should be not emitted",
		},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.midiEvent.String())
		})
	}
}

func TestEvent_StringFallback(t *testing.T) {
	s := Event{ProgramChange | 2, 5}.String()
	assert.NotEmpty(t, s)
	assert.NotContains(t, s, "Oof")
}

func TestEventFields(t *testing.T) {
	ev := NoteEvent(NoteOff, 5, 60, 0)
	assert.Equal(t, NoteOff, ev.Type())
	assert.Equal(t, uint8(5), ev.Channel())
	assert.Equal(t, Event{0x85, 60, 0}, ev)

	assert.Equal(t, uint8(0), Event{}.Type())
}
