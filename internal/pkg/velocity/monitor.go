package velocity

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gethiox/keystation/internal/pkg/logger"
)

// DetectProfileChanges reports writes to the profile file. The directory is watched
// rather than the file so editors replacing the file by rename are noticed too.
func DetectProfileChanges(ctx context.Context, path string) (<-chan bool, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher failed: %w", err)
	}

	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching \"%s\" failed: %w", filepath.Dir(path), err)
	}

	var change = make(chan bool)
	go func() {
		<-ctx.Done()
		err := watcher.Close()
		if err != nil {
			log.Info(fmt.Sprintf("closing watcher failed: %v", err), logger.Debug)
		}
	}()

	go func() {
		defer close(change)
		target := filepath.Clean(path)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Info(fmt.Sprintf("velocity profile change detected: %s", event.Name), logger.Info)
				select {
				case change <- true:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Info(fmt.Sprintf("profile watcher error: %v", err), logger.Warning)
			}
		}
	}()

	return change, nil
}

// Follow reloads the profile on every change and installs it into t until ctx is done.
// A profile that fails to load is reported and the previous one stays active.
func Follow(ctx context.Context, path string, t *Translator) error {
	changes, err := DetectProfileChanges(ctx, path)
	if err != nil {
		return err
	}

	go func() {
		for range changes {
			p, err := Load(path)
			if err != nil {
				log.Info(fmt.Sprintf("velocity profile reload failed, keeping previous: %s", err), logger.Error)
				continue
			}
			t.SetProfile(p)
			log.Info(fmt.Sprintf("velocity profile reloaded: %s", p), logger.Info)
		}
	}()
	return nil
}
