// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher provides debounced filesystem watching.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkrall/deckhand/internal/events"
)

// ConfigWatcher watches the configuration file and publishes a
// config.changed event when it is modified. Rapid bursts of filesystem
// events (editors write, truncate, and rename in quick succession) collapse
// into one publication.
type ConfigWatcher struct {
	mu        sync.Mutex
	bus       events.EventBus
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	path      string
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewConfigWatcher watches the config file at path. The parent directory is
// watched rather than the file itself, so atomic replaces (write to temp,
// rename over) are still observed.
func NewConfigWatcher(bus events.EventBus, path string, debounce time.Duration) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watching config directory: %w", err)
	}

	w := &ConfigWatcher{
		bus:       bus,
		watcher:   fsWatcher,
		debouncer: NewDebouncer(debounce),
		path:      abs,
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.debouncer.Debounce("config", w.publishChanged)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: config watcher error: %v", err)
		}
	}
}

func (w *ConfigWatcher) publishChanged() {
	err := w.bus.Publish(context.Background(), events.Event{
		Type:    events.EventConfigChanged,
		Payload: map[string]interface{}{"path": w.path},
	})
	if err != nil {
		log.Printf("Warning: publish %s failed: %v", events.EventConfigChanged, err)
	}
}

// Close stops watching. Safe to call once.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
