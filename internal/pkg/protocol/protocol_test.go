package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTimeout = errors.New("timeout")

// chunkReader returns prepared chunks one per Read call, a nil chunk produces errTimeout.
type chunkReader struct {
	chunks [][]byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	chunk := r.chunks[0]
	r.chunks = r.chunks[1:]
	if chunk == nil {
		return 0, errTimeout
	}
	n := copy(p, chunk)
	if n < len(chunk) {
		r.chunks = append([][]byte{chunk[n:]}, r.chunks...)
	}
	return n, nil
}

func TestRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		msg   Message
		frame []byte
	}{
		{msg: KeyDown{Key: 7, TravelTime: 42}, frame: []byte{'D', 7, 42}},
		{msg: KeyUp{Key: 48}, frame: []byte{'U', 48}},
		{msg: Panic{}, frame: []byte{'P'}},
		{
			msg:   Version{Text: "I am a keyboard! :3 1.0"},
			frame: append([]byte{'V', 23}, "I am a keyboard! :3 1.0"...),
		},
		{msg: Version{Text: ""}, frame: []byte{'V', 0}},
	} {
		t.Run(tc.msg.String(), func(t *testing.T) {
			var buf bytes.Buffer
			err := NewEncoder(&buf).Encode(tc.msg)
			assert.NoError(t, err)
			assert.Equal(t, tc.frame, buf.Bytes())

			msg, err := NewDecoder(&buf).Next()
			assert.NoError(t, err)
			assert.Equal(t, tc.msg, msg)
		})
	}
}

func TestEncoderHelpers(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	assert.NoError(t, e.Version("v"))
	assert.NoError(t, e.KeyDown(3, 12))
	assert.NoError(t, e.KeyDown(4, 1000))
	assert.NoError(t, e.KeyUp(3))
	assert.NoError(t, e.Panic())

	assert.Equal(t, []byte{'V', 1, 'v', 'D', 3, 12, 'D', 4, 255, 'U', 3, 'P'}, buf.Bytes())
}

func TestVersionTooLong(t *testing.T) {
	var buf bytes.Buffer
	err := NewEncoder(&buf).Version(string(bytes.Repeat([]byte{'a'}, 255)))
	assert.ErrorIs(t, err, ErrVersionTooLong)
	assert.Zero(t, buf.Len())

	err = NewEncoder(&buf).Version(string(bytes.Repeat([]byte{'a'}, MaxVersionLength)))
	assert.NoError(t, err)
}

func TestDecoderResync(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte{0xFF, 'D', 5, 10}))

	msg, err := d.Next()
	assert.NoError(t, err)
	assert.Equal(t, KeyDown{Key: 5, TravelTime: 10}, msg)
	assert.Equal(t, uint64(1), d.Discarded())

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoderStream(t *testing.T) {
	stream := []byte{0x00, 0x13, 'U', 1, 'x', 'y', 'p', 'D', 2, 80, 'V', 2, 'h', 'i'}
	d := NewDecoder(bytes.NewReader(stream))

	var messages []Message
	for {
		msg, err := d.Next()
		if err != nil {
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		messages = append(messages, msg)
	}

	assert.Equal(t, []Message{
		KeyUp{Key: 1},
		Panic{},
		KeyDown{Key: 2, TravelTime: 80},
		Version{Text: "hi"},
	}, messages)
	assert.Equal(t, uint64(4), d.Discarded())
}

func TestDecoderTimeoutKeepsPartialFrame(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{
		nil,
		{'V', 5, 'h', 'e'},
		nil,
		{'l', 'l', 'o', 'D'},
		nil,
		{9, 33},
	}}
	d := NewDecoder(r)

	_, err := d.Next()
	assert.ErrorIs(t, err, errTimeout)

	_, err = d.Next()
	assert.ErrorIs(t, err, errTimeout)

	msg, err := d.Next()
	assert.NoError(t, err)
	assert.Equal(t, Version{Text: "hello"}, msg)

	_, err = d.Next()
	assert.ErrorIs(t, err, errTimeout)

	msg, err = d.Next()
	assert.NoError(t, err)
	assert.Equal(t, KeyDown{Key: 9, TravelTime: 33}, msg)
}

func TestDecoderMalformedVersion(t *testing.T) {
	d := NewDecoder(bytes.NewReader([]byte{'V', 2, 0xC3, 0x28, 'U', 4}))

	_, err := d.Next()
	assert.ErrorIs(t, err, ErrMalformedVersion)

	// the broken frame is consumed, whatever follows is still readable
	msg, err := d.Next()
	assert.NoError(t, err)
	assert.Equal(t, KeyUp{Key: 4}, msg)
}

func TestFrameUnsupported(t *testing.T) {
	_, err := Frame(nil)
	assert.Error(t, err)
}
