// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDocument_Layout(t *testing.T) {
	doc := Document{
		"zeta":            "last",
		"tools":           []interface{}{"read"},
		"system_prompt":   "line one\nline two",
		"welcome_message": "short",
		"profile_name":    "writer",
		"description":     strings.Repeat("d", 100),
	}

	data, err := MarshalDocument(doc)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.HasPrefix(out, "profile_name: writer\n"), out)
	assert.Contains(t, out, "system_prompt: |")
	assert.Contains(t, out, "  line one\n  line two")
	assert.Contains(t, out, "welcome_message: short\n")
	assert.NotContains(t, out, "description: |", "only prompt-like fields use literal blocks")
	assert.Less(t, strings.Index(out, "tools:"), strings.Index(out, "zeta:"))

	parsed, err := parseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, parsed)
}

func TestMarshalDocument_LongSingleLine(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 20))
	data, err := MarshalDocument(Document{"profile_name": "p", "welcome_message": long})
	require.NoError(t, err)
	assert.Contains(t, string(data), "welcome_message: |")
}

func TestRegistry_Create(t *testing.T) {
	roots := testRoots(t)
	reg := newTestRegistry(t, roots)

	path, err := reg.Create(Document{
		"profile_name":  "team/reviewer",
		"system_prompt": "Review carefully.\nBe kind.",
		"tools":         []interface{}{"read"},
	}, CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(roots.User, "team", "reviewer.yaml"), path)

	entry, ok := reg.Entry("team/reviewer")
	require.True(t, ok, "registry is refreshed after create")
	assert.Equal(t, "reviewer", entry.Name)

	doc, err := reg.Get("team/reviewer", GetOptions{Resolve: true})
	require.NoError(t, err)
	assert.Equal(t, "Review carefully.\nBe kind.", doc["system_prompt"])

	_, err = reg.Create(Document{"profile_name": "team/reviewer", "system_prompt": "again"}, CreateOptions{})
	assert.ErrorIs(t, err, ErrProfileExists)

	_, err = reg.Create(Document{"profile_name": "team/reviewer", "system_prompt": "again"}, CreateOptions{Overwrite: true})
	require.NoError(t, err)
}

func TestRegistry_CreateRejectsInvalid(t *testing.T) {
	roots := testRoots(t)
	reg := newTestRegistry(t, roots)

	_, err := reg.Create(Document{"profile_name": "empty"}, CreateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProfile)
	assert.NoFileExists(t, filepath.Join(roots.User, "empty.yaml"))
}

func TestRegistry_CreateAtPath(t *testing.T) {
	roots := testRoots(t)
	reg := newTestRegistry(t, roots)
	target := filepath.Join(roots.Project, "local.yaml")

	path, err := reg.Create(Document{"profile_name": "local", "extends": "base"}, CreateOptions{Path: target})
	require.NoError(t, err)
	assert.Equal(t, target, path)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "profile_name: local\nextends: base\n", string(data))

	entry, ok := reg.Entry("local")
	require.True(t, ok)
	assert.Equal(t, LocationProject, entry.Location)
}
