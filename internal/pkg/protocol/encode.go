package protocol

import (
	"errors"
	"fmt"
	"io"
)

// MaxVersionLength is limited by the single length byte and kept below its maximum value.
const MaxVersionLength = 254

var ErrVersionTooLong = errors.New("version string too long")

// Encoder writes frames into the serial link, one Write call per frame.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

func (e *Encoder) Encode(m Message) error {
	frame, err := Frame(m)
	if err != nil {
		return err
	}
	_, err = e.w.Write(frame)
	if err != nil {
		return fmt.Errorf("writing %s frame failed: %w", string(m.Tag()), err)
	}
	return nil
}

func (e *Encoder) Version(text string) error {
	return e.Encode(Version{Text: text})
}

// KeyDown clamps travel time to what fits in a byte.
func (e *Encoder) KeyDown(key uint8, travelTime uint32) error {
	if travelTime > 0xFF {
		travelTime = 0xFF
	}
	return e.Encode(KeyDown{Key: key, TravelTime: uint8(travelTime)})
}

func (e *Encoder) KeyUp(key uint8) error {
	return e.Encode(KeyUp{Key: key})
}

func (e *Encoder) Panic() error {
	return e.Encode(Panic{})
}
