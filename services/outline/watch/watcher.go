// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs an action whenever a source file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of events (editors often write twice).
const DefaultDebounce = 100 * time.Millisecond

// ErrNoFiles is returned by Run when nothing is being watched.
var ErrNoFiles = errors.New("no files to watch")

// ChangeFunc is invoked with the path of the file that changed.
type ChangeFunc func(ctx context.Context, path string)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher reports debounced Write/Create events for a set of files.
//
// The parent directory of every file is watched rather than the file
// itself, so rename-over-original saves are still seen.
type Watcher struct {
	debounce time.Duration
	logger   *slog.Logger
	files    map[string]struct{}
}

// NewWatcher creates a Watcher for the given files.
func NewWatcher(files []string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		files:    make(map[string]struct{}, len(files)),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, calling onChange after each debounced
// change. Calls for one file never overlap.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	if len(w.files) == 0 {
		return ErrNoFiles
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	dirs := make(map[string]struct{})
	for f := range w.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", slog.String("dir", dir))
	}

	var (
		mu      sync.Mutex
		timers  = make(map[string]*time.Timer)
		running sync.WaitGroup
		fileMus = make(map[string]*sync.Mutex)
	)
	for f := range w.files {
		fileMus[f] = &sync.Mutex{}
	}

	defer func() {
		mu.Lock()
		for _, t := range timers {
			if t.Stop() {
				running.Done()
			}
		}
		mu.Unlock()
		running.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.files[path]; !watched {
				continue
			}

			mu.Lock()
			if t, exists := timers[path]; exists && t.Stop() {
				running.Done()
			}
			running.Add(1)
			timers[path] = time.AfterFunc(w.debounce, func() {
				defer running.Done()
				if ctx.Err() != nil {
					return
				}
				fileMu := fileMus[path]
				fileMu.Lock()
				defer fileMu.Unlock()
				w.logger.Debug("file changed", slog.String("file", path))
				onChange(ctx, path)
			})
			mu.Unlock()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}
