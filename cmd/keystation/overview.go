package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awesome-gocui/gocui"
	"github.com/gethiox/keystation/internal/pkg/display"
	"github.com/gethiox/keystation/internal/pkg/logg"
	"github.com/gethiox/keystation/internal/pkg/logger"
	"github.com/logrusorgru/aurora"
)

func overviewLines(au aurora.Aurora, s Status) []string {
	firmware := au.Index(229, s.Firmware).String()
	if s.Firmware == "operational" {
		firmware = au.Index(120, s.Firmware).String()
	}
	return []string{
		fmt.Sprintf("firmware: %s, expected: %q, reflashes: %d", firmware, s.Expected, s.Reflashes),
		fmt.Sprintf("profile: %s", colorForString(au, s.Profile)),
		fmt.Sprintf("output: %s, emitted: %d, dropped: %d", colorForString(au, s.Output), s.Emitted, s.Dropped),
		fmt.Sprintf("queue: %d (peak %d)", s.Backlog, s.Peak),
		fmt.Sprintf("└ notes held: %d, sustain: %s, pedal: %s", s.Held, onOff(s.Sustain), s.Pedal),
	}
}

func overviewView(ctx context.Context, g *gocui.Gui, colors bool, status func() Status) {
	view, err := g.View(ViewOverview)
	if err != nil {
		log.Info(fmt.Sprintf("overview unavailable: %s", err), logger.Warning)
		return
	}

	au := aurora.NewAurora(colors)

	for {
		viewData := overviewLines(au, status())

		x, y := view.Size()
		view.Rewind()
		for i := 0; i < y; i++ {
			line := ""
			if i < len(viewData) {
				line = viewData[i]
			}
			view.Write([]byte(line + strings.Repeat(" ", max(x-rawStringLen(line), 0))))
			view.Write([]byte{'\n'})
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond * 500):
		}
	}
}

func logView(g *gocui.Gui, color bool, logLevel, bufSize int, messages <-chan []byte) {
	feeder, err := NewFeeder(g, ViewLogs, logLevel, aurora.NewAurora(color))
	if err != nil {
		for range messages {
		}
		return
	}

	buf := logg.NewBuffer(bufSize)
	redraw := make(chan struct{}, 1)

	go func() {
		for msg := range messages {
			buf.WriteMessage(msg)
			select {
			case redraw <- struct{}{}:
			default:
			}
		}
		close(redraw)
	}()

	var lastX, lastY int
	for {
		select {
		case _, ok := <-redraw:
			if !ok {
				return
			}
		case <-time.After(time.Millisecond * 100):
			x, y := feeder.view.Size()
			if x == lastX && y == lastY {
				continue
			}
		}
		lastX, lastY = feeder.view.Size()

		feeder.view.Clear()
		for _, msg := range buf.ReadLastMessages(lastY) {
			feeder.Write(msg)
		}
	}
}

func lcdView(g *gocui.Gui, dd <-chan display.DisplayData) {
	view, err := g.View(ViewLCD)
	if err != nil {
		for range dd {
		}
		return
	}

	for data := range dd {
		view.Rewind()
		for _, s := range data.Lines {
			view.Write([]byte(s))
			view.Write([]byte{'\n'})
		}
	}
}
