package velocity

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type profileFile struct {
	Name    string `toml:"name" yaml:"name"`
	Channel int    `toml:"channel" yaml:"channel"`

	Keys struct {
		MiddleCNote int `toml:"middle_c_note" yaml:"middle_c_note"`
		MiddleCKey  int `toml:"middle_c_key" yaml:"middle_c_key"`
	} `toml:"keys" yaml:"keys"`

	Travel struct {
		Min int `toml:"min" yaml:"min"`
		Max int `toml:"max" yaml:"max"`
	} `toml:"travel" yaml:"travel"`

	Curve struct {
		Type     string  `toml:"type" yaml:"type"`
		Exponent float64 `toml:"exponent" yaml:"exponent"`
	} `toml:"curve" yaml:"curve"`
}

func defaultFile() profileFile {
	d := DefaultProfile()
	var f profileFile
	f.Name = d.Name
	f.Channel = int(d.Channel) + 1
	f.Keys.MiddleCNote = int(d.MiddleCNote)
	f.Keys.MiddleCKey = int(d.MiddleCKey)
	f.Travel.Min = int(d.MinTravel)
	f.Travel.Max = int(d.MaxTravel)
	f.Curve.Type = d.CurveName
	f.Curve.Exponent = d.Exponent
	return f
}

func inByte(name string, v, lo, hi int) (uint8, error) {
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s: value %d out of range %d-%d", name, v, lo, hi)
	}
	return uint8(v), nil
}

func (f profileFile) profile() (Profile, error) {
	var (
		p   Profile
		err error
	)
	p.Name = f.Name

	// channel is 1-16 in files, like every midi tool shows it
	channel, err := inByte("channel", f.Channel, 1, 16)
	if err != nil {
		return Profile{}, err
	}
	p.Channel = channel - 1

	if p.MiddleCNote, err = inByte("keys.middle_c_note", f.Keys.MiddleCNote, 0, 127); err != nil {
		return Profile{}, err
	}
	if p.MiddleCKey, err = inByte("keys.middle_c_key", f.Keys.MiddleCKey, 0, 255); err != nil {
		return Profile{}, err
	}
	if p.MinTravel, err = inByte("travel.min", f.Travel.Min, 0, 255); err != nil {
		return Profile{}, err
	}
	if p.MaxTravel, err = inByte("travel.max", f.Travel.Max, 0, 255); err != nil {
		return Profile{}, err
	}

	p.CurveName = f.Curve.Type
	p.Exponent = f.Curve.Exponent
	p.Curve, err = NewCurve(f.Curve.Type, f.Curve.Exponent)
	if err != nil {
		return Profile{}, err
	}

	err = p.Validate()
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

// ParseTOML reads a profile, fields absent from data keep their default values.
func ParseTOML(data []byte) (Profile, error) {
	f := defaultFile()

	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	err := d.Decode(&f)
	if err != nil {
		return Profile{}, fmt.Errorf("parsing toml failed: %w", err)
	}
	return f.profile()
}

func ParseYAML(data []byte) (Profile, error) {
	f := defaultFile()

	d := yaml.NewDecoder(bytes.NewReader(data))
	d.KnownFields(true)

	err := d.Decode(&f)
	if err != nil && err != io.EOF {
		return Profile{}, fmt.Errorf("parsing yaml failed: %w", err)
	}
	return f.profile()
}

func isProfileFile(name string) bool {
	name = strings.ToLower(name)
	for _, ext := range []string{".toml", ".yaml", ".yml"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Load reads a profile from a .toml, .yaml or .yml file, a missing name is taken from the file name.
func Load(path string) (Profile, error) {
	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Profile{}, fmt.Errorf("opening profile failed: %w", err)
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile failed: %w", err)
	}

	var p Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		p, err = ParseTOML(data)
	case ".yaml", ".yml":
		p, err = ParseYAML(data)
	default:
		return Profile{}, fmt.Errorf("unsupported profile format \"%s\"", ext)
	}
	if err != nil {
		return Profile{}, fmt.Errorf("profile \"%s\": %w", path, err)
	}

	if p.Name == "" || p.Name == DefaultProfile().Name {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}
