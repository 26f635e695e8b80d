// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package store keeps pipeline text in plain files.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits after the last event before
// reloading.
const DefaultDebounce = 100 * time.Millisecond

// Load reads the pipeline text stored at path. A single trailing newline is
// dropped.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", path, err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// Save writes text to path followed by a newline, creating parent
// directories as needed. The file is replaced atomically.
func Save(path, text string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// Watcher reloads a file whenever it changes.
type Watcher struct {
	Path     string
	Debounce time.Duration // zero uses DefaultDebounce
	Logger   *zap.Logger   // nil discards
}

// Watch is shorthand for a Watcher with default settings.
func Watch(ctx context.Context, path string, onChange func(text string)) error {
	return (&Watcher{Path: path}).Run(ctx, onChange)
}

// Run watches the file's directory, so editors that save by renaming a
// fresh file over the original are still seen. After a burst of events
// settles, the file is reloaded and onChange called with its text if it
// differs from the last text delivered. Run blocks until ctx is done and
// then returns nil; it returns an error only if the watch cannot be set up.
func (w *Watcher) Run(ctx context.Context, onChange func(text string)) error {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.Path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	log.Debug("watching", zap.String("path", path))

	last, _ := Load(path)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug("file event", zap.String("op", ev.Op.String()))
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))

		case <-timer.C:
			text, err := Load(path)
			if err != nil {
				log.Debug("reload failed", zap.Error(err))
				continue
			}
			if text == last {
				continue
			}
			last = text
			onChange(text)
		}
	}
}
