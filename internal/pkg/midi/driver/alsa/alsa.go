package alsa

import (
	"fmt"

	"github.com/gethiox/keystation/internal/pkg/midi/driver"
	gomidi "gitlab.com/gomidi/midi/v2"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver
)

type MIDIOutPortFromDriver struct {
	name string
	port drivers.Out
}

func (out *MIDIOutPortFromDriver) Name() string {
	if out.name != "" {
		return out.name
	}
	return out.port.String()
}

func (out *MIDIOutPortFromDriver) Open() error {
	err := out.port.Open()
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	return nil
}

func (out *MIDIOutPortFromDriver) Close() error {
	return out.port.Close()
}

func (out *MIDIOutPortFromDriver) Send(msg []byte) error {
	return out.port.Send(msg)
}

func NewMIDIOutPortFromDriver(out drivers.Out) driver.MIDIOut {
	return &MIDIOutPortFromDriver{port: out}
}

// CreatePort opens a virtual sequencer output other programs can subscribe to.
func CreatePort(client, port string) (driver.MIDIOut, error) {
	d := drivers.Get()
	if d == nil {
		return nil, fmt.Errorf("failed to get driver")
	}

	rtmidid, ok := d.(*rtmididrv.Driver)
	if !ok {
		return nil, fmt.Errorf("failed to convert driver")
	}

	name := fmt.Sprintf("%s %s", client, port)
	out, err := rtmidid.OpenVirtualOut(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open virtual output: %w", err)
	}

	return &MIDIOutPortFromDriver{name: name, port: out}, nil
}

// FindPort connects directly to an existing output port, e.g. a hardware synth.
func FindPort(name string) (driver.MIDIOut, error) {
	out, err := gomidi.FindOutPort(name)
	if err != nil {
		return nil, fmt.Errorf("midi output \"%s\" not found: %w", name, err)
	}
	return NewMIDIOutPortFromDriver(out), nil
}

func OutputPorts() []string {
	var names []string
	for _, p := range gomidi.GetOutPorts() {
		names = append(names, p.String())
	}
	return names
}
