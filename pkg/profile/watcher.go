// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package profile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadCallback is called after the registry has been refreshed because of
// a file change. eventType is one of create, modify or delete.
type ReloadCallback func(eventType string, filePath string, profiles int)

// HotReloadConfig configures hot-reload behavior for the profile roots.
type HotReloadConfig struct {
	DebounceMs int            // Debounce delay in milliseconds (default: 500ms)
	Logger     *zap.Logger    // Logger for reload events
	OnReload   ReloadCallback // Callback after each refresh (optional)
}

// HotReloader refreshes a registry when profile files change on disk.
type HotReloader struct {
	registry *Registry
	watcher  *fsnotify.Watcher
	config   HotReloadConfig
	logger   *zap.Logger

	// A burst of writes triggers a single refresh.
	debounceTimer *time.Timer
	debounceMu    sync.Mutex

	// Lifecycle
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
	stopMu  sync.Mutex
}

// NewHotReloader creates a hot-reloader for the registry's roots.
func NewHotReloader(registry *Registry, config HotReloadConfig) (*HotReloader, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.DebounceMs == 0 {
		config.DebounceMs = 500
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &HotReloader{
		registry: registry,
		watcher:  watcher,
		config:   config,
		logger:   config.Logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start watches every existing root and its subdirectories. It returns the
// number of directories watched.
func (hr *HotReloader) Start(ctx context.Context) (int, error) {
	watched := 0
	for _, root := range hr.registry.roots.discoveryOrder() {
		if root.dir == "" || !exists(root.dir) {
			continue
		}
		n, err := hr.watchTree(root.dir)
		if err != nil {
			return watched, fmt.Errorf("failed to watch %s: %w", root.dir, err)
		}
		watched += n
	}

	if watched == 0 {
		return 0, fmt.Errorf("no profile directories to watch")
	}

	hr.logger.Info("Started profile hot-reload watcher",
		zap.Int("directories", watched),
		zap.Int("debounce_ms", hr.config.DebounceMs))

	go hr.watchLoop(ctx)
	return watched, nil
}

func (hr *HotReloader) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := hr.watcher.Add(path); err != nil {
			hr.logger.Warn("Failed to watch profile subdirectory",
				zap.String("path", path),
				zap.Error(err))
			return nil
		}
		count++
		return nil
	})
	return count, err
}

// watchLoop processes file system events.
func (hr *HotReloader) watchLoop(ctx context.Context) {
	defer close(hr.doneCh)

	for {
		select {
		case event, ok := <-hr.watcher.Events:
			if !ok {
				return
			}
			hr.handleEvent(event)

		case err, ok := <-hr.watcher.Errors:
			if !ok {
				return
			}
			hr.logger.Error("File watcher error", zap.Error(err))

		case <-hr.stopCh:
			hr.logger.Info("Stopping profile hot-reload watcher")
			return

		case <-ctx.Done():
			hr.logger.Info("Profile hot-reload context cancelled")
			return
		}
	}
}

func (hr *HotReloader) handleEvent(event fsnotify.Event) {
	// New subdirectories need their own watch.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := hr.watchTree(event.Name); err != nil {
				hr.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}

	if !isYAMLFile(event.Name) {
		return
	}

	// Editors create temporary files while saving.
	base := filepath.Base(event.Name)
	if strings.Contains(base, ".tmp") || strings.Contains(base, "~") || strings.HasPrefix(base, ".") {
		return
	}

	hr.debounce(func() {
		hr.reload(event)
	})
}

// debounce delays execution until changes settle.
func (hr *HotReloader) debounce(callback func()) {
	hr.debounceMu.Lock()
	defer hr.debounceMu.Unlock()

	if hr.debounceTimer != nil {
		hr.debounceTimer.Stop()
	}
	delay := time.Duration(hr.config.DebounceMs) * time.Millisecond
	hr.debounceTimer = time.AfterFunc(delay, callback)
}

func (hr *HotReloader) reload(event fsnotify.Event) {
	eventType := eventTypeOf(event.Op)
	count := hr.registry.Refresh()

	hr.logger.Info("Profile file changed, registry refreshed",
		zap.String("file", event.Name),
		zap.String("operation", eventType),
		zap.Int("profiles", count))

	if hr.config.OnReload != nil {
		hr.config.OnReload(eventType, event.Name, count)
	}
}

func eventTypeOf(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Remove == fsnotify.Remove, op&fsnotify.Rename == fsnotify.Rename:
		return "delete"
	case op&fsnotify.Create == fsnotify.Create:
		return "create"
	default:
		return "modify"
	}
}

// Stop stops watching and waits for the watch loop to exit. Safe to call
// more than once.
func (hr *HotReloader) Stop() error {
	hr.stopMu.Lock()
	defer hr.stopMu.Unlock()

	if hr.stopped {
		return nil
	}
	hr.stopped = true

	close(hr.stopCh)

	hr.debounceMu.Lock()
	if hr.debounceTimer != nil {
		hr.debounceTimer.Stop()
	}
	hr.debounceMu.Unlock()

	// Wait for watch loop to finish (with timeout)
	select {
	case <-hr.doneCh:
	case <-time.After(5 * time.Second):
		hr.logger.Warn("Hot-reload stop timed out")
	}

	return hr.watcher.Close()
}
