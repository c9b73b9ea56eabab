package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gethiox/keystation/internal/pkg/keybed"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/protocol"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
	"github.com/holoplot/go-evdev"
	"go.uber.org/zap"
)

// two tracker-style rows, the bottom one starts an octave below middle C
var simulatorKeys = map[evdev.EvCode]uint8{
	evdev.KEY_Z: 12, evdev.KEY_S: 13, evdev.KEY_X: 14, evdev.KEY_D: 15, evdev.KEY_C: 16,
	evdev.KEY_V: 17, evdev.KEY_G: 18, evdev.KEY_B: 19, evdev.KEY_H: 20, evdev.KEY_N: 21,
	evdev.KEY_J: 22, evdev.KEY_M: 23, evdev.KEY_COMMA: 24,

	evdev.KEY_Q: 24, evdev.KEY_2: 25, evdev.KEY_W: 26, evdev.KEY_3: 27, evdev.KEY_E: 28,
	evdev.KEY_R: 29, evdev.KEY_5: 30, evdev.KEY_T: 31, evdev.KEY_6: 32, evdev.KEY_Y: 33,
	evdev.KEY_7: 34, evdev.KEY_U: 35, evdev.KEY_I: 36, evdev.KEY_9: 37, evdev.KEY_O: 38,
	evdev.KEY_0: 39, evdev.KEY_P: 40,
}

type SimulatorConfig struct {
	Device     string
	TravelTime uint8 // reported for every press, computer keys have no velocity
	Grab       bool
}

// Simulator plays the keybed from a computer keyboard, useful without the hardware attached.
type Simulator struct {
	cfg    SimulatorConfig
	tr     *velocity.Translator
	events *utils.Queue[midi.Event]

	held map[uint8]int // keybed index, computer keys holding it
}

func NewSimulator(cfg SimulatorConfig, tr *velocity.Translator, events *utils.Queue[midi.Event]) *Simulator {
	return &Simulator{
		cfg:    cfg,
		tr:     tr,
		events: events,
		held:   make(map[uint8]int),
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	if s.cfg.Device == "" {
		return errors.New("no input device configured")
	}
	dev, err := evdev.Open(s.cfg.Device)
	if err != nil {
		return fmt.Errorf("opening input device failed: %w", err)
	}

	name, _ := dev.Name()
	name = strings.Trim(name, "\x00")

	go func() {
		<-ctx.Done()
		err := dev.Close()
		if err != nil {
			log.Info(fmt.Sprintf("[%s] device close failed: %v", s.cfg.Device, err), logger.Debug)
		}
	}()

	if s.cfg.Grab {
		_ = dev.Grab()
		log.Info("Grabbing device for exclusive usage", zap.String("handler_name", name), logger.Debug)
		defer func() { _ = dev.Ungrab() }()
	}
	log.Info("[Simulator source] reading input events", zap.String("device", s.cfg.Device), zap.String("handler_name", name), logger.Info)

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading input events failed: %w", err)
		}

		msg, ok := s.message(*ev)
		if !ok {
			continue
		}
		out, ok := s.tr.Translate(msg)
		if ok {
			s.events.Push(out)
		}
	}
}

// message maps a key event onto a keybed message. Both rows share middle C, so a keybed key
// is released only when the last computer key holding it goes up.
func (s *Simulator) message(ev evdev.InputEvent) (protocol.Message, bool) {
	if ev.Type != evdev.EV_KEY {
		return nil, false
	}
	key, ok := simulatorKeys[ev.Code]
	if !ok || int(key) >= keybed.KeyCount {
		return nil, false
	}

	switch ev.Value {
	case 1:
		s.held[key]++
		if s.held[key] > 1 {
			return nil, false
		}
		return protocol.KeyDown{Key: key, TravelTime: s.cfg.TravelTime}, true
	case 0:
		if s.held[key] == 0 {
			return nil, false
		}
		s.held[key]--
		if s.held[key] > 0 {
			return nil, false
		}
		delete(s.held, key)
		return protocol.KeyUp{Key: key}, true
	default: // repeat
		return nil, false
	}
}

// InputDevices lists event devices the simulator can read from.
func InputDevices() ([]string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("listing input devices failed: %w", err)
	}
	var devices []string
	for _, p := range paths {
		devices = append(devices, fmt.Sprintf("%s: %s", p.Path, p.Name))
	}
	return devices, nil
}
