package main

import (
	"context"
	"testing"

	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/stretchr/testify/assert"
)

func TestReadyJinglePlaysOnFirstVerificationOnly(t *testing.T) {
	var started []string
	start := func(name string, fn func(context.Context) error) {
		started = append(started, name)
		assert.NotNil(t, fn)
	}

	verified := readyJingle(start, func(midi.Event) {})
	assert.Empty(t, started)

	verified()
	// controller reset, verified again
	verified()
	verified()

	assert.Equal(t, []string{"ready jingle"}, started)
}
