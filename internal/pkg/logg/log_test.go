package logg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	b := NewBuffer(3)
	assert.Empty(t, b.ReadLastMessages(5))

	b.WriteMessage([]byte("a"))
	b.WriteMessage([]byte("b"))
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, b.ReadLastMessages(5))

	b.WriteMessage([]byte("c"))
	b.WriteMessage([]byte("d"))
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("d")}, b.ReadLastMessages(3))
	assert.Equal(t, [][]byte{[]byte("c"), []byte("d")}, b.ReadLastMessages(2))
	assert.Empty(t, b.ReadLastMessages(0))
	assert.Empty(t, b.ReadLastMessages(-1))
}
