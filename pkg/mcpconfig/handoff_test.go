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
package mcpconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHandoffFileName(t *testing.T) {
	id := uuid.MustParse("0123abcd-4567-89ab-cdef-0123456789ab")
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	assert.Equal(t, "mcp_config_dev_20260304050607_0123abcd.json", HandoffFileName("dev", now, id))
	assert.Equal(t, "mcp_config_team_dev_20260304050607_0123abcd.json", HandoffFileName("team/dev", now, id))
	assert.Equal(t, "mcp_config_unknown_20260304050607_0123abcd.json", HandoffFileName("", now, id))
}

func TestLoader_WriteTempConfig(t *testing.T) {
	f := newFixture(t)

	written, path, err := f.loader.WriteTempConfig(f.get(t, "dev"))
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, []string{"alpha", "beta"}, written.ServerNames())

	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, f.loader.TempDir(), filepath.Dir(path))
	assert.Regexp(t, `^mcp_config_dev_\d{14}_[0-9a-f]{8}\.json$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, []string{"alpha", "beta"}, cfg.ServerNames())

	// The profile lives in the user root, so the packaged configs were copied.
	assert.FileExists(t, filepath.Join(f.roots.User, "configs", "base.json"))

	_, second, err := f.loader.WriteTempConfig(f.get(t, "dev"))
	require.NoError(t, err)
	assert.NotEqual(t, path, second, "every call writes a new file")
}

func TestLoader_WriteTempConfigWithoutFiles(t *testing.T) {
	f := newFixture(t)

	cfg, path, err := f.loader.WriteTempConfig(f.get(t, "plain"))
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, path)
	assert.NoDirExists(t, f.loader.TempDir())
}

func TestLoader_WriteTempConfigReturnsWrittenConfig(t *testing.T) {
	f := newFixture(t)

	// Each lookup sees a different token, so a second build would differ.
	calls := 0
	f.loader.Env().WithLookup(func(name string) (string, bool) {
		if name != "ARIS_TEST_TOKEN" {
			return "", false
		}
		calls++
		return fmt.Sprintf("token-%d", calls), true
	})

	cfg, path, err := f.loader.WriteTempConfig(f.get(t, "dev"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "the config is built once")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, json.Unmarshal(data, &onDisk))

	want, err := json.Marshal(cfg)
	require.NoError(t, err)
	got, err := json.Marshal(onDisk)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.Contains(t, string(data), "token-1")
}

func TestCleanupOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)

	stale := writeFile(t, dir, "mcp_config_a_20200101000000_aaaaaaaa.json", "{}")
	fresh := writeFile(t, dir, "mcp_config_b_20200101000000_bbbbbbbb.json", "{}")
	unrelated := writeFile(t, dir, "keep.json", "{}")
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	removed, err := CleanupOldFiles(dir, 24*time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, unrelated)

	removed, err = CleanupOldFiles(filepath.Join(dir, "missing"), time.Hour, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestEnsureUserConfigs(t *testing.T) {
	dir := t.TempDir()
	pkg := filepath.Join(dir, "package")
	user := filepath.Join(dir, "user")
	writeFile(t, pkg, "configs/one.json", `{"a": 1}`)
	writeFile(t, pkg, "configs/two.json", `{"b": 2}`)
	writeFile(t, pkg, "configs/readme.md", "docs")

	copied, err := EnsureUserConfigs(user, pkg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, copied)
	assert.FileExists(t, filepath.Join(user, "configs", "one.json"))
	assert.NoFileExists(t, filepath.Join(user, "configs", "readme.md"))

	// An existing user configs directory is left alone.
	require.NoError(t, os.WriteFile(filepath.Join(user, "configs", "one.json"), []byte("custom"), 0644))
	require.NoError(t, os.Remove(filepath.Join(user, "configs", "two.json")))
	copied, err = EnsureUserConfigs(user, pkg, nil)
	require.NoError(t, err)
	assert.Zero(t, copied)
	data, err := os.ReadFile(filepath.Join(user, "configs", "one.json"))
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data))
	assert.NoFileExists(t, filepath.Join(user, "configs", "two.json"))

	copied, err = EnsureUserConfigs(user, filepath.Join(dir, "nowhere"), nil)
	require.NoError(t, err)
	assert.Zero(t, copied)
}
