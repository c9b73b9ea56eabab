package source

import (
	"context"
	"io"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/gethiox/keystation/internal/pkg/midi"
	"github.com/gethiox/keystation/internal/pkg/protocol"
	"github.com/gethiox/keystation/internal/pkg/supervisor"
	"github.com/gethiox/keystation/internal/pkg/tty"
	"github.com/gethiox/keystation/internal/pkg/utils"
	"github.com/gethiox/keystation/internal/pkg/velocity"
)

var log = logger.GetLogger()

// SerialLink opens the keybed serial port anew on every call.
func SerialLink(cfg tty.Config) supervisor.Link {
	return supervisor.LinkFunc(func() (io.ReadWriteCloser, error) {
		return tty.Open(cfg)
	})
}

// Keybed feeds key events of the supervised keybed controller into the queue.
type Keybed struct {
	sup    *supervisor.Supervisor
	tr     *velocity.Translator
	events *utils.Queue[midi.Event]
}

func NewKeybed(sup *supervisor.Supervisor, tr *velocity.Translator, events *utils.Queue[midi.Event]) *Keybed {
	return &Keybed{sup: sup, tr: tr, events: events}
}

func (k *Keybed) Run(ctx context.Context) error {
	log.Info("[Keybed source] started", logger.Debug)
	defer log.Info("[Keybed source] stopped", logger.Debug)
	return k.sup.Run(ctx, k.handle)
}

func (k *Keybed) handle(msg protocol.Message) error {
	ev, ok := k.tr.Translate(msg)
	if !ok {
		return nil
	}
	k.events.Push(ev)
	return nil
}
