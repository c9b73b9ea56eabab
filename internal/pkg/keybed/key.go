package keybed

import "fmt"

// KeyCount is the number of physical keys on the keybed, leftmost key has index 0.
const KeyCount = 49

// MinResolution is reported as travel time when both contacts closed within a single scan pass.
const MinResolution uint32 = 2

type State uint8

const (
	Up          State = iota // both contacts open
	DownPartial              // contact B closed, A still open
	Down                     // both contacts closed
)

func (s State) String() string {
	switch s {
	case Up:
		return "Up"
	case DownPartial:
		return "DownPartial"
	case Down:
		return "Down"
	default:
		return "Unknown"
	}
}

// Key is a state of a single key, Since is valid for DownPartial and TravelTime for Down.
type Key struct {
	State      State
	Since      uint32 // millis when contact B closed
	TravelTime uint32 // millis between contact B and contact A closing
}

func (k Key) String() string {
	switch k.State {
	case DownPartial:
		return fmt.Sprintf("DownPartial(%d)", k.Since)
	case Down:
		return fmt.Sprintf("Down(%d)", k.TravelTime)
	default:
		return k.State.String()
	}
}

// Keys is the whole keybed state, allocated once and mutated in place.
type Keys [KeyCount]Key

// Next computes the following key state from contact readings.
// Contact B open always means Up, A closed with B open is physically impossible.
func Next(current Key, aDown, bDown bool, now uint32) Key {
	if !bDown {
		return Key{State: Up}
	}

	switch current.State {
	case Up:
		if aDown {
			// both contacts closed between two scan passes
			return Key{State: Down, TravelTime: MinResolution}
		}
		return Key{State: DownPartial, Since: now}
	case DownPartial:
		if aDown {
			return Key{State: Down, TravelTime: SaturatingSub(now, current.Since)}
		}
	case Down:
		if !aDown {
			// released past contact A, B opens shortly after
			return Key{State: Up}
		}
	}
	return current
}

// Reportable tells whether a transition is a note on (anything into Down) or a note off (Down into Up).
func Reportable(prev, next Key) bool {
	switch {
	case prev.State != Down && next.State == Down:
		return true
	case prev.State == Down && next.State == Up:
		return true
	default:
		return false
	}
}

// KeyIndex maps a matrix position to a key index. Select line 0 is wired as the 8th line,
// positions beyond KeyCount exist in the matrix but have no key attached.
func KeyIndex(sel, read int) (int, bool) {
	if sel == 0 {
		sel = Selects
	}
	index := read*Selects + sel - 1
	if index < 0 || index >= KeyCount {
		return 0, false
	}
	return index, true
}
