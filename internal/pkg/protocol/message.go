package protocol

import "fmt"

// Frame tags, a frame always starts with one of these bytes.
const (
	TagVersion    byte = 'V'
	TagKeyDown    byte = 'D'
	TagKeyUp      byte = 'U'
	TagPanic      byte = 'P'
	TagPanicLower byte = 'p'
)

// Message is one decoded frame sent by the keybed firmware.
type Message interface {
	Tag() byte
	fmt.Stringer
}

type Version struct {
	Text string
}

type KeyDown struct {
	Key        uint8
	TravelTime uint8 // milliseconds, saturated at 255
}

type KeyUp struct {
	Key uint8
}

// Panic is sent by the firmware when it has crashed, its state is unknown from that point.
type Panic struct{}

func (Version) Tag() byte { return TagVersion }
func (KeyDown) Tag() byte { return TagKeyDown }
func (KeyUp) Tag() byte   { return TagKeyUp }
func (Panic) Tag() byte   { return TagPanic }

func (m Version) String() string { return fmt.Sprintf("Version(%q)", m.Text) }
func (m KeyDown) String() string { return fmt.Sprintf("KeyDown(%d, %dms)", m.Key, m.TravelTime) }
func (m KeyUp) String() string   { return fmt.Sprintf("KeyUp(%d)", m.Key) }
func (Panic) String() string     { return "Panic" }

// Frame returns the wire representation of a message.
func Frame(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Version:
		if len(v.Text) > MaxVersionLength {
			return nil, fmt.Errorf("%w: %d bytes", ErrVersionTooLong, len(v.Text))
		}
		frame := make([]byte, 0, 2+len(v.Text))
		frame = append(frame, TagVersion, byte(len(v.Text)))
		return append(frame, v.Text...), nil
	case KeyDown:
		return []byte{TagKeyDown, v.Key, v.TravelTime}, nil
	case KeyUp:
		return []byte{TagKeyUp, v.Key}, nil
	case Panic:
		return []byte{TagPanic}, nil
	default:
		return nil, fmt.Errorf("unsupported message type: %T", m)
	}
}
