package flash

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/amenzhinsky/go-memexec"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// ErrFlashFailed means the programmer ran but did not write the image, there is no point retrying.
var ErrFlashFailed = errors.New("firmware flashing failed")

type Config struct {
	Binary     string // empty means embedded avrdude if built with it, "avrdude" from PATH otherwise
	Device     string
	Baud       int
	Image      string
	Part       string
	Programmer string
}

func (c Config) withDefaults() Config {
	if c.Part == "" {
		c.Part = "atmega328p"
	}
	if c.Programmer == "" {
		c.Programmer = "arduino"
	}
	if c.Baud == 0 {
		c.Baud = 115200
	}
	return c
}

// Avrdude writes a firmware image to the keyboard controller through its bootloader.
type Avrdude struct {
	cfg Config
}

func NewAvrdude(cfg Config) *Avrdude {
	return &Avrdude{cfg: cfg.withDefaults()}
}

// Args returns the programmer arguments: chip erase, no auto-erase, and a write of the image
// with the file format detected automatically.
func (a *Avrdude) Args() []string {
	return []string{
		"-p", a.cfg.Part,
		"-c", a.cfg.Programmer,
		"-P", a.cfg.Device,
		"-b", strconv.Itoa(a.cfg.Baud),
		"-e",
		"-D",
		"-U", fmt.Sprintf("flash:w:%s:e", a.cfg.Image),
	}
}

// newCommand is swapped in tests.
var newCommand = func(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

func (a *Avrdude) command() (*exec.Cmd, func(), error) {
	if a.cfg.Binary == "" && len(embedded) > 0 {
		exe, err := memexec.New(embedded)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to prepare embedded avrdude: %w", err)
		}
		closer := func() {
			err := exe.Close()
			if err != nil {
				log.Info(fmt.Sprintf("failed to close memory exec: %s", err), logger.Error)
			}
		}
		return exe.Command(a.Args()...), closer, nil
	}

	bin := a.cfg.Binary
	if bin == "" {
		bin = "avrdude"
	}
	return newCommand(bin, a.Args()...), func() {}, nil
}

func (a *Avrdude) Flash(ctx context.Context) error {
	if _, err := os.Stat(a.cfg.Image); err != nil {
		return fmt.Errorf("%w: firmware image: %w", ErrFlashFailed, err)
	}

	cmd, closer, err := a.command()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFlashFailed, err)
	}
	defer closer()

	log.Info("flashing firmware", zap.String("device", a.cfg.Device), zap.String("image", a.cfg.Image), logger.Firmware)
	start := time.Now()
	err = utils.RunCommand(ctx, "avrdude", cmd, logger.Firmware)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFlashFailed, err)
	}
	log.Info("firmware flashed", zap.Duration("took", time.Since(start)), logger.Firmware)
	return nil
}
