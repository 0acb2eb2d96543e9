// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package activation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/aris/pkg/mcpconfig"
	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap/zaptest"
)

// contextSetup writes a "doc" profile with one context file of the given
// size and the given context_mode, and returns an activator over it.
func contextSetup(t *testing.T, mode string, size int) (*Activator, string) {
	t.Helper()
	dir := t.TempDir()
	user := filepath.Join(dir, "user")
	require.NoError(t, os.MkdirAll(user, 0755))

	guide := filepath.Join(user, "style guide.md")
	require.NoError(t, os.WriteFile(guide, []byte(strings.Repeat("g", size)), 0644))

	content := "profile_name: doc\nsystem_prompt: Write docs.\ncontext_files: [\"style guide.md\", missing.md]\n"
	if mode != "" {
		content += "context_mode: " + mode + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(user, "doc.yaml"), []byte(content), 0644))

	logger := zaptest.NewLogger(t)
	reg, err := profile.NewRegistry(profile.RegistryConfig{Roots: profile.Roots{User: user}, Logger: logger})
	require.NoError(t, err)

	act, err := New(Config{
		Registry: reg,
		Loader: mcpconfig.NewLoader(mcpconfig.LoaderConfig{
			Profiles: reg,
			TempDir:  filepath.Join(dir, "handoff"),
			Logger:   logger,
		}),
		Logger: logger,
	})
	require.NoError(t, err)
	return act, guide
}

func TestActivate_ContextModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		size     int
		wantMode string
	}{
		{name: "embedded", mode: "embedded", size: 20 * 1024, wantMode: profile.ContextModeEmbedded},
		{name: "referenced", mode: "referenced", size: 16, wantMode: profile.ContextModeReferenced},
		{name: "auto at threshold embeds", mode: "auto", size: int(DefaultContextSizeThreshold), wantMode: profile.ContextModeEmbedded},
		{name: "auto above threshold references", mode: "auto", size: int(DefaultContextSizeThreshold) + 1, wantMode: profile.ContextModeReferenced},
		{name: "unset defaults to auto", mode: "", size: 16, wantMode: profile.ContextModeEmbedded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, guide := contextSetup(t, tt.mode, tt.size)

			got, err := act.Activate("doc", Options{SessionID: "s/1"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, got.ContextMode)
			assert.Equal(t, []string{guide}, got.ContextFiles, "missing files are skipped")
			assert.True(t, strings.HasPrefix(got.SystemPrompt, "Write docs.\n\n"))

			switch tt.wantMode {
			case profile.ContextModeEmbedded:
				assert.Empty(t, got.ContextFilePath)
				assert.Contains(t, got.SystemPrompt, "Reference materials:\n\n\n<context_style_guide>\n")
				assert.Contains(t, got.SystemPrompt, strings.Repeat("g", tt.size)+"\n</context_style_guide>")
			case profile.ContextModeReferenced:
				require.NotEmpty(t, got.ContextFilePath)
				assert.Regexp(t, `^context_s1_[0-9a-f]{8}\.md$`, filepath.Base(got.ContextFilePath))
				assert.Equal(t, act.loader.TempDir(), filepath.Dir(got.ContextFilePath))
				assert.Contains(t, got.SystemPrompt, "you MUST read the reference file at:\n"+got.ContextFilePath)
				assert.NotContains(t, got.SystemPrompt, "<context_")

				data, err := os.ReadFile(got.ContextFilePath)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(string(data), "# ARIS Context Reference\n"))
				assert.Contains(t, string(data), "\n\n## style guide\n\n")
			}
		})
	}
}

func TestActivate_WithoutContextFiles(t *testing.T) {
	act := setup(t)

	got, err := act.Activate("analyst", Options{Variables: map[string]string{"dataset": "d", "project": "p"}})
	require.NoError(t, err)
	assert.Empty(t, got.ContextMode)
	assert.Empty(t, got.ContextFiles)
	assert.NotContains(t, got.SystemPrompt, "Reference materials")
}

func TestContextMode(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "small.md")
	require.NoError(t, os.WriteFile(small, []byte("12345"), 0644))
	files := []string{small, filepath.Join(dir, "gone.md")}
	logger := zaptest.NewLogger(t)

	assert.Equal(t, int64(5), ContextSize(files, logger))
	assert.Equal(t, "embedded", ContextMode("auto", files, 5, logger))
	assert.Equal(t, "referenced", ContextMode("auto", files, 4, logger))
	assert.Equal(t, "embedded", ContextMode("embedded", files, 0, logger))
	assert.Equal(t, "referenced", ContextMode("referenced", files, 1<<20, logger))
}

func TestEmbedContext(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "api-notes.v2.md")
	require.NoError(t, os.WriteFile(notes, []byte("endpoints"), 0644))
	missing := filepath.Join(dir, "missing.md")

	got := EmbedContext([]string{notes, missing}, nil)
	assert.Contains(t, got, "\n\n<context_api_notes_v2>\nendpoints\n</context_api_notes_v2>\n\n")
	assert.Contains(t, got, "<context_error>\nFailed to include "+missing)
}

func TestWriteContextFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	a := filepath.Join(src, "a.md")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0644))

	out := filepath.Join(dir, "out")
	first, err := WriteContextFile(out, "sess", []string{a}, zaptest.NewLogger(t))
	require.NoError(t, err)
	second, err := WriteContextFile(out, "sess", []string{a}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, first, second, "unchanged files reuse the reference file")

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(a, later, later))
	third, err := WriteContextFile(out, "sess", []string{a}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "a modified file gets a new reference file")
}

func TestCleanupContextFiles(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-48 * time.Hour)
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		return path
	}

	stale := write("context_s_aaaaaaaa.md")
	fresh := write("context_s_bbbbbbbb.md")
	handoff := write("mcp_config_p_20200101000000_cccccccc.json")
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(handoff, old, old))

	removed, err := CleanupContextFiles(dir, 24*time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, handoff)

	removed, err = CleanupContextFiles(filepath.Join(dir, "missing"), time.Hour, nil)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
