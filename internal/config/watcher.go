// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG WATCHER
// =============================================================================

// Watcher watches the config file for changes and reloads the global config
// when it is modified. Edits made with `shopchat config set` in one terminal
// become visible to a TUI running in another.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	onReload func(*Config)
	mu       sync.Mutex
	lastSeen time.Time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the default TOML config file.
// onReload is called with the freshly loaded config after each reload;
// it may be nil.
func NewWatcher(onReload func(*Config)) (*Watcher, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:  fsw,
		path:     path,
		debounce: 250 * time.Millisecond,
		onReload: onReload,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for config changes.
func (w *Watcher) Watch() error {
	// Watch the directory, not the file: editors and SaveTOML replace the
	// file, which would drop a file-level watch.
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents()

	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
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
			w.maybeReload()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next successful event
			// still triggers a reload.
		}
	}
}

// maybeReload reloads the global config, debouncing bursts of events from
// editors that write the file in several steps.
func (w *Watcher) maybeReload() {
	w.mu.Lock()
	now := time.Now()
	if now.Sub(w.lastSeen) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.lastSeen = now
	w.mu.Unlock()

	if err := ReloadGlobal(); err != nil {
		// Keep the previous config on parse errors.
		return
	}
	if w.onReload != nil {
		w.onReload(Global())
	}
}
