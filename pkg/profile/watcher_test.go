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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHotReloader_RefreshesOnChange(t *testing.T) {
	roots := testRoots(t)
	writeFile(t, roots.User, "first.yaml", "profile_name: first\nsystem_prompt: one\n")

	reg := newTestRegistry(t, roots)
	require.Equal(t, 1, reg.Count())

	events := make(chan string, 10)
	hr, err := NewHotReloader(reg, HotReloadConfig{
		DebounceMs: 50,
		Logger:     zaptest.NewLogger(t),
		OnReload: func(eventType, filePath string, profiles int) {
			events <- eventType
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watched, err := hr.Start(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, watched, 3)
	defer func() { _ = hr.Stop() }()

	writeFile(t, roots.User, "second.yaml", "profile_name: second\nsystem_prompt: two\n")

	select {
	case <-events:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	require.Eventually(t, func() bool {
		_, ok := reg.Entry("second")
		return ok
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(roots.User, "first.yaml")))
	require.Eventually(t, func() bool {
		_, ok := reg.Entry("first")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHotReloader_IgnoresNonProfileFiles(t *testing.T) {
	reg := newTestRegistry(t, testRoots(t))

	called := make(chan struct{}, 1)
	hr, err := NewHotReloader(reg, HotReloadConfig{
		DebounceMs: 10,
		OnReload:   func(string, string, int) { called <- struct{}{} },
	})
	require.NoError(t, err)

	for _, name := range []string{"notes.md", ".hidden.yaml", "draft.yaml~", "save.tmp.yaml"} {
		hr.handleEvent(fsnotify.Event{Name: filepath.Join(reg.Roots().User, name), Op: fsnotify.Write})
	}

	select {
	case <-called:
		t.Fatal("unexpected reload")
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, hr.watcher.Close())
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, "create", eventTypeOf(fsnotify.Create))
	assert.Equal(t, "modify", eventTypeOf(fsnotify.Write))
	assert.Equal(t, "delete", eventTypeOf(fsnotify.Remove))
	assert.Equal(t, "delete", eventTypeOf(fsnotify.Rename))
}
