package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/gethiox/keystation/internal/pkg/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RunCommand runs cmd to completion with its stdout and stderr forwarded line by line to the log,
// prefixed with tag. Cancelling ctx interrupts the process.
func RunCommand(ctx context.Context, tag string, cmd *exec.Cmd, level zap.Field) error {
	out1, in1 := io.Pipe()
	out2, in2 := io.Pipe()

	cmd.Stdout = in1
	cmd.Stderr = in2

	log.Info(fmt.Sprintf("[%s] start", tag), logger.Debug)
	err := cmd.Start()
	if err != nil {
		_ = in1.Close()
		_ = in2.Close()
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scan1 := bufio.NewScanner(out1)
		for scan1.Scan() {
			log.Info(fmt.Sprintf("[%s] o> %s", tag, scan1.Text()), level)
		}
		_, _ = io.Copy(io.Discard, out1)
	}()
	go func() {
		defer wg.Done()
		scan2 := bufio.NewScanner(out2)
		for scan2.Scan() {
			log.Info(fmt.Sprintf("[%s] e> %s", tag, scan2.Text()), level)
		}
		_, _ = io.Copy(io.Discard, out2)
	}()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			err := cmd.Process.Signal(os.Interrupt)
			if err != nil {
				if !errors.Is(err, os.ErrProcessDone) {
					log.Info(fmt.Sprintf("[%s] failed to send signal: %s", tag, err), logger.Error)
				}
			} else {
				log.Info(fmt.Sprintf("[%s] interrupt success", tag), logger.Info)
			}
		case <-done:
		}
	}()

	err = cmd.Wait()
	close(done)
	_ = in1.Close()
	_ = in2.Close()
	wg.Wait()

	if err != nil {
		return fmt.Errorf("[%s] execution error: %w", tag, err)
	}
	log.Info(fmt.Sprintf("[%s] done", tag), logger.Debug)
	return nil
}
