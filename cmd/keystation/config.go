package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gethiox/keystation/internal/pkg/display"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/source"
	"github.com/gethiox/keystation/internal/pkg/supervisor"
	"github.com/go-ini/ini"
)

type Keybed struct {
	Device             string
	Baud               int
	Header             string
	VersionFile        string
	FirmwareImage      string
	MaxReflashAttempts int
	SettleDelay        time.Duration
	Flasher            string
}

type MIDI struct {
	Client       string
	Port         string
	Target       string
	QueueWarning int
}

type Velocity struct {
	Profile string
}

type Daemon struct {
	LogViewRate   time.Duration
	LogBufferSize int
	ReadyJingle   bool
}

type KeystationConfig struct {
	Keybed    Keybed
	MIDI      MIDI
	Velocity  Velocity
	Pedal     source.PedalConfig
	Simulator source.SimulatorConfig
	Screen    display.ScreenConfig
	Daemon    Daemon

	PedalEnabled     bool
	SimulatorEnabled bool
}

// ProfilePath is the velocity profile location inside the config directory.
func (c KeystationConfig) ProfilePath() string {
	return filepath.Join(configDir, "velocity", c.Velocity.Profile)
}

// SupervisorConfig reads the provisioned build id, its bytes are compared exactly.
func (c KeystationConfig) SupervisorConfig() (supervisor.Config, error) {
	buildID, err := os.ReadFile(c.Keybed.VersionFile)
	if err != nil {
		return supervisor.Config{}, fmt.Errorf("cannot read build id: %w", err)
	}
	return supervisor.Config{
		Header:             c.Keybed.Header,
		BuildID:            string(buildID),
		MaxReflashAttempts: c.Keybed.MaxReflashAttempts,
		SettleDelay:        c.Keybed.SettleDelay,
	}, nil
}

// intKey returns def for a missing or empty key, a malformed value is still an error.
func intKey(key *ini.Key, def int) (int, error) {
	if key.String() == "" {
		return def, nil
	}
	i, err := key.Int()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key.Name(), err)
	}
	return i, nil
}

func positive(key *ini.Key, def int) (int, error) {
	i, err := intKey(key, def)
	if err != nil {
		return 0, err
	}
	if i <= 0 {
		return 0, fmt.Errorf("%s: expected positive value, got %d", key.Name(), i)
	}
	return i, nil
}

func LoadKeystationConfig(path string) (KeystationConfig, error) {
	var c KeystationConfig

	cfg, err := ini.Load(path)
	if err != nil {
		return c, fmt.Errorf("cannot load config: %w", err)
	}

	// [keybed]
	keybed := cfg.Section("keybed")
	c.Keybed.Device = keybed.Key("device").String()
	c.Keybed.Baud = keybed.Key("baud").MustInt(115200)
	c.Keybed.Header = keybed.Key("header").MustString("I am a keyboard :) ")
	c.Keybed.VersionFile = keybed.Key("version_file").MustString(filepath.Join(configDir, "build-id"))
	c.Keybed.FirmwareImage = keybed.Key("firmware_image").String()
	c.Keybed.Flasher = keybed.Key("flasher").String()

	i, err := intKey(keybed.Key("max_reflash_attempts"), 3)
	if err != nil {
		return c, err
	}
	if i < 0 {
		return c, fmt.Errorf("max_reflash_attempts: expected non-negative value, got %d", i)
	}
	c.Keybed.MaxReflashAttempts = i

	i, err = positive(keybed.Key("settle_delay_ms"), 100)
	if err != nil {
		return c, err
	}
	c.Keybed.SettleDelay = time.Millisecond * time.Duration(i)

	// [midi]
	midi := cfg.Section("midi")
	c.MIDI.Client = midi.Key("client").MustString("keystation")
	c.MIDI.Port = midi.Key("port").MustString("midi_out")
	c.MIDI.Target = midi.Key("target").String()
	c.MIDI.QueueWarning, err = positive(midi.Key("queue_warning"), 256)
	if err != nil {
		return c, err
	}

	// [velocity]
	c.Velocity.Profile = cfg.Section("velocity").Key("profile").MustString("default.toml")

	// [pedal]
	pedal := cfg.Section("pedal")
	c.PedalEnabled = pedal.Key("enabled").MustBool(false)
	c.Pedal.Pin = pedal.Key("pin").MustInt(20)
	c.Pedal.Debounce = time.Millisecond * time.Duration(pedal.Key("debounce_ms").MustInt(1))

	// [simulator]
	simulator := cfg.Section("simulator")
	c.SimulatorEnabled = simulator.Key("enabled").MustBool(false)
	c.Simulator.Device = simulator.Key("device").String()
	c.Simulator.Grab = simulator.Key("grab").MustBool(false)
	travel := simulator.Key("travel_time").MustInt(20)
	if travel < 0 || travel > 255 {
		return c, fmt.Errorf("travel_time: expected 0-255, got %d", travel)
	}
	c.Simulator.TravelTime = uint8(travel)

	// [screen]
	screen := cfg.Section("screen")
	c.Screen.Enabled = screen.Key("enabled").MustBool(false)
	c.Screen.LcdType, err = display.ParseLcdType(screen.Key("type").MustString("20x4"))
	if err != nil {
		return c, err
	}
	c.Screen.Bus = screen.Key("bus").MustInt(1)
	address := uint64(0x27)
	if screen.Key("address").String() != "" {
		address, err = screen.Key("address").Uint64()
	}
	if err != nil || address > 0x7f {
		return c, fmt.Errorf("address: expected i2c address, got \"%s\"", screen.Key("address").String())
	}
	c.Screen.Address = uint8(address)
	c.Screen.UpdateRate, err = positive(screen.Key("update_rate"), 1)
	if err != nil {
		return c, err
	}
	for n := range c.Screen.ExitMessage {
		c.Screen.ExitMessage[n] = screen.Key(fmt.Sprintf("exit_message%d", n+1)).String()
	}

	// [daemon]
	daemon := cfg.Section("daemon")
	i, err = positive(daemon.Key("log_view_rate"), 20)
	if err != nil {
		return c, err
	}
	c.Daemon.LogViewRate = time.Second / time.Duration(i)
	c.Daemon.LogBufferSize, err = positive(daemon.Key("log_buffer_size"), 1024)
	if err != nil {
		return c, err
	}
	c.Daemon.ReadyJingle = daemon.Key("ready_jingle").MustBool(true)

	return c, nil
}

//go:embed keystation-config/keystation.config keystation-config/build-id
//go:embed keystation-config/velocity/*
var templateConfig embed.FS

const (
	configDir  = "keystation-config"
	configFile = configDir + "/keystation.config"
)

// createConfigDirectoryIfNeeded creates missing config files from the template,
// files already present are never overwritten.
func createConfigDirectoryIfNeeded(root string) error {
	return fs.WalkDir(templateConfig, configDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(path))

		if d.IsDir() {
			err := os.Mkdir(target, 0o777)
			if err != nil && !errors.Is(err, os.ErrExist) {
				return fmt.Errorf("cannot create \"%s\" directory: %w", target, err)
			}
			return nil
		}

		dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o666)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil
			}
			return fmt.Errorf("cannot open \"%s\" file: %w", target, err)
		}
		defer dst.Close()

		data, err := fs.ReadFile(templateConfig, path)
		if err != nil {
			return fmt.Errorf("cannot read \"%s\" template file: %w", path, err)
		}

		_, err = dst.Write(data)
		if err != nil {
			return fmt.Errorf("cannot write data into \"%s\" file: %w", target, err)
		}

		log.Info(fmt.Sprintf("Created \"%s\" file", target), logger.Info)
		return nil
	})
}
