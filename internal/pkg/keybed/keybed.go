package keybed

import "iter"

const (
	Selects = 8 // lines driven by the shift register
	Reads   = 7 // lines read per contact layer
)

// Transition is a reportable change of a single key: a note on (Down) or a note off (Up).
type Transition struct {
	Index int
	Key   Key
}

// Keybed owns the matrix pins and the state of every key.
type Keybed struct {
	shift ShiftRegister
	clock Clock

	// Each key has two contacts under it,
	// when a key is pressed it closes B first and then A.
	contactsA [Reads]InputPin
	contactsB [Reads]InputPin

	keys Keys
}

func New(shift ShiftRegister, contactsA, contactsB [Reads]InputPin, clock Clock) *Keybed {
	shift.Disable()
	return &Keybed{
		shift:     shift,
		clock:     clock,
		contactsA: contactsA,
		contactsB: contactsB,
	}
}

// Scan performs one full pass over the matrix and yields transitions worth reporting.
// Stopping the iteration early ends the pass, keys not visited yet keep their state.
func (k *Keybed) Scan() iter.Seq[Transition] {
	return func(yield func(Transition) bool) {
		k.shift.Enable()
		defer k.shift.Disable()

		for sel := 0; sel < Selects; sel++ {
			if sel == 0 {
				k.shift.PushHigh()
			} else {
				k.shift.PushLow()
			}

			for read := 0; read < Reads; read++ {
				index, ok := KeyIndex(sel, read)
				if !ok {
					continue
				}

				aDown := k.contactsA[read].Get()
				bDown := k.contactsB[read].Get()

				prev := k.keys[index]
				next := Next(prev, aDown, bDown, k.clock.Millis())
				k.keys[index] = next

				if !Reportable(prev, next) {
					continue
				}
				if !yield(Transition{Index: index, Key: next}) {
					return
				}
			}
		}
	}
}

// Keys returns a copy of the current keybed state.
func (k *Keybed) Keys() Keys {
	return k.keys
}
