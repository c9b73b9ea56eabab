package rawmidi

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gethiox/keystation/internal/pkg/midi/driver"
)

// Dir holds the kernel rawmidi character devices.
var Dir = "/dev/snd"

// IsDevice reports whether name points at a rawmidi device rather than a sequencer port name.
func IsDevice(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "midi") && filepath.Dir(name) == Dir
}

// DetectDevices lists rawmidi devices, a missing sound directory means none.
func DetectDevices() ([]string, error) {
	entries, err := os.ReadDir(Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot list \"%s\": %w", Dir, err)
	}

	var devices []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), "midi") {
			devices = append(devices, filepath.Join(Dir, entry.Name()))
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// IODevice writes messages straight into a rawmidi device, e.g. a USB synth without a sequencer client.
type IODevice struct {
	path string
	w    io.WriteCloser
}

func NewIODevice(path string) driver.MIDIOut {
	return &IODevice{path: path}
}

func (d *IODevice) Name() string {
	return d.path
}

func (d *IODevice) Open() error {
	f, err := os.OpenFile(d.path, os.O_WRONLY|os.O_SYNC, 0)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	d.w = f
	return nil
}

func (d *IODevice) Close() error {
	if d.w == nil {
		return nil
	}
	err := d.w.Close()
	d.w = nil
	return err
}

func (d *IODevice) Send(msg []byte) error {
	if d.w == nil {
		return fmt.Errorf("%s is not open", d.path)
	}
	_, err := d.w.Write(msg)
	return err
}
