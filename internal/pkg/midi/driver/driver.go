package driver

type MIDIPort interface {
	Name() string
	Open() error
	Close() error
}

// MIDIOut delivers raw midi messages, Send reports failures of a single message.
type MIDIOut interface {
	MIDIPort
	Send(msg []byte) error
}
