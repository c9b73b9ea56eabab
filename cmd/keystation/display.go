package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gethiox/keystation/internal/pkg/display"
)

const lcdWidth = 20

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// displayLines renders one status frame, events is the number of events sent since the previous frame.
func displayLines(s Status, events uint64, graph *display.Graph) [4]string {
	return [4]string{
		fmt.Sprintf("fw: %16s", s.Firmware),
		fmt.Sprintf("notes: %3d  sus: %3s", s.Held, onOff(s.Sustain)),
		fmt.Sprintf("events: %12d", events),
		graph.String(),
	}
}

func exitLines(cfg display.ScreenConfig, s Status) [4]string {
	var lines [4]string
	if cfg.HaveExitMessage() {
		for i, msg := range cfg.ExitMessage {
			lines[i] = display.Fit(msg, lcdWidth)
		}
		return lines
	}
	lines[0] = display.Fit("", lcdWidth)
	lines[1] = display.Center("thanks for playing", lcdWidth)
	lines[2] = display.Center("♪ keystation ♫", lcdWidth)
	lines[3] = display.Center(fmt.Sprintf("(events: %d)", s.Emitted), lcdWidth)
	return lines
}

// GenerateDisplayData emits a status frame every update period and a farewell frame when ctx is done.
func GenerateDisplayData(ctx context.Context, wg *sync.WaitGroup, cfg display.ScreenConfig, status func() Status) <-chan display.DisplayData {
	data := make(chan display.DisplayData)

	go func() {
		defer wg.Done()
		defer close(data)

		period := time.Duration(cfg.UpdateRate) * time.Second
		graph := display.NewGraph(lcdWidth)
		last := status().Emitted

	root:
		for {
			start := time.Now()

			s := status()
			events := s.Emitted - last
			last = s.Emitted
			graph.Add(uint(events))

			select {
			case data <- display.DisplayData{Lines: displayLines(s, events, graph)}:
			case <-ctx.Done():
				break root
			}

			select {
			case <-ctx.Done():
				break root
			case <-time.After(period - time.Since(start)):
			}
		}

		data <- display.DisplayData{
			Lines:   exitLines(cfg, status()),
			LastMsg: true,
		}
	}()

	return data
}
