// Package firmware is the program running on the keybed controller. It has no
// dependency on the board so the same code runs under test on the host.
package firmware

import (
	"io"

	"github.com/gethiox/keystation/internal/pkg/keybed"
	"github.com/gethiox/keystation/internal/pkg/protocol"
)

type Program struct {
	keybed  *keybed.Keybed
	enc     *protocol.Encoder
	version string
}

func New(kb *keybed.Keybed, serial io.Writer, version string) *Program {
	return &Program{
		keybed:  kb,
		enc:     protocol.NewEncoder(serial),
		version: version,
	}
}

// Announce sends the version frame the host verifies the firmware with.
func (p *Program) Announce() error {
	return p.enc.Version(p.version)
}

// Step scans the matrix once and sends every reportable transition.
func (p *Program) Step() error {
	for t := range p.keybed.Scan() {
		var err error
		switch t.Key.State {
		case keybed.Down:
			err = p.enc.KeyDown(uint8(t.Index), t.Key.TravelTime)
		case keybed.Up:
			err = p.enc.KeyUp(uint8(t.Index))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Run announces the firmware and scans until writing to the serial port fails.
func (p *Program) Run() error {
	err := p.Announce()
	if err != nil {
		return err
	}
	for {
		err = p.Step()
		if err != nil {
			return err
		}
	}
}

// Guard runs fn and reports a panic inside it with the fault byte.
// It returns the recovered value, nil when fn returned normally.
// Targets without recover never get here, their runtime prints "panic: "
// on the same serial port and the leading 'p' decodes as the fault byte.
func Guard(serial io.Writer, fn func()) (recovered any) {
	defer func() {
		recovered = recover()
		if recovered != nil {
			_ = protocol.NewEncoder(serial).Panic()
		}
	}()
	fn()
	return nil
}
