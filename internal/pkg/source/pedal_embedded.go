//go:build arm || arm64

package source

import (
	"context"
	"fmt"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"
)

func watchPin(ctx context.Context, pin int, changed func(high bool)) error {
	err := embd.InitGPIO()
	if err != nil {
		return fmt.Errorf("failed to initialize gpio: %w", err)
	}
	defer func() {
		err := embd.CloseGPIO()
		if err != nil {
			log.Info(fmt.Sprintf("closing gpio failed: %s", err), logger.Debug)
		}
	}()

	p, err := embd.NewDigitalPin(pin)
	if err != nil {
		return fmt.Errorf("failed to open gpio pin %d: %w", pin, err)
	}
	defer p.Close()

	err = p.SetDirection(embd.In)
	if err != nil {
		return fmt.Errorf("failed to set pin %d as input: %w", pin, err)
	}

	err = p.Watch(embd.EdgeBoth, func(p embd.DigitalPin) {
		v, err := p.Read()
		if err != nil {
			log.Info(fmt.Sprintf("reading pedal pin failed: %s", err), logger.Warning)
			return
		}
		changed(v == embd.High)
	})
	if err != nil {
		return fmt.Errorf("failed to watch pin %d: %w", pin, err)
	}

	<-ctx.Done()
	return p.StopWatching()
}
