package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrMalformedVersion means the firmware sent a version string that is not valid UTF-8.
// A device able to frame messages is expected to send valid text, so this is not recovered.
var ErrMalformedVersion = errors.New("version string is not valid utf-8")

// Decoder reads frames from the serial link.
//
// Bytes that do not start a known frame are dropped one by one until a frame tag shows up,
// a corrupted payload containing a tag byte can therefore be misread, the link has no checksum.
// Read errors (including timeouts) are returned as-is, a frame interrupted by one is kept
// and the next call to Next continues it.
type Decoder struct {
	r *bufio.Reader

	frame     []byte // partially read frame, frame[0] is a tag
	discarded uint64
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     bufio.NewReaderSize(r, 64),
		frame: make([]byte, 0, 2+MaxVersionLength+1),
	}
}

// Discarded returns how many bytes were dropped while looking for a frame start.
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}

// Next blocks until a whole frame is available.
func (d *Decoder) Next() (Message, error) {
	for {
		if len(d.frame) == 0 {
			b, err := d.r.ReadByte()
			if err != nil {
				return nil, err
			}
			if !isTag(b) {
				d.discarded++
				continue
			}
			d.frame = append(d.frame, b)
		}

		need := frameLength(d.frame)
		for len(d.frame) < need {
			b, err := d.r.ReadByte()
			if err != nil {
				return nil, err
			}
			d.frame = append(d.frame, b)
			need = frameLength(d.frame)
		}

		msg, err := parse(d.frame)
		d.frame = d.frame[:0]
		return msg, err
	}
}

func isTag(b byte) bool {
	switch b {
	case TagVersion, TagKeyDown, TagKeyUp, TagPanic, TagPanicLower:
		return true
	default:
		return false
	}
}

// frameLength returns the full length of a frame given its first bytes.
// For a version frame the length is known only after the length byte arrives.
func frameLength(frame []byte) int {
	switch frame[0] {
	case TagVersion:
		if len(frame) < 2 {
			return 2
		}
		return 2 + int(frame[1])
	case TagKeyDown:
		return 3
	case TagKeyUp:
		return 2
	default:
		return 1
	}
}

func parse(frame []byte) (Message, error) {
	switch frame[0] {
	case TagVersion:
		text := frame[2:]
		if !utf8.Valid(text) {
			return nil, fmt.Errorf("%w: % x", ErrMalformedVersion, text)
		}
		return Version{Text: string(text)}, nil
	case TagKeyDown:
		return KeyDown{Key: frame[1], TravelTime: frame[2]}, nil
	case TagKeyUp:
		return KeyUp{Key: frame[1]}, nil
	default:
		return Panic{}, nil
	}
}
