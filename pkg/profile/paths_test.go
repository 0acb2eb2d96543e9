// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathResolver_Absolute(t *testing.T) {
	roots := testRoots(t)
	existing := writeFile(t, roots.User, "abs.md", "x")
	p := NewPathResolver(roots, nil)

	got, ok := p.Resolve(existing, "")
	require.True(t, ok)
	assert.Equal(t, existing, got)

	_, ok = p.Resolve(filepath.Join(roots.User, "missing.md"), "")
	assert.False(t, ok)
}

func TestPathResolver_ExpandsEnvAndHome(t *testing.T) {
	roots := testRoots(t)
	existing := writeFile(t, roots.Project, "env.md", "x")
	t.Setenv("ARIS_TEST_DIR", roots.Project)
	t.Setenv("HOME", roots.User)
	home := writeFile(t, roots.User, "home.md", "x")

	p := NewPathResolver(roots, nil)

	got, ok := p.Resolve("${ARIS_TEST_DIR}/env.md", "")
	require.True(t, ok)
	assert.Equal(t, existing, got)

	got, ok = p.Resolve("~/home.md", "")
	require.True(t, ok)
	assert.Equal(t, home, got)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("ARIS_SET_VAR", "/opt/aris")
	t.Setenv("ARIS_UNSET_VAR", "")
	require.NoError(t, os.Unsetenv("ARIS_UNSET_VAR"))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare set", in: "$ARIS_SET_VAR/a.md", want: "/opt/aris/a.md"},
		{name: "braced set", in: "${ARIS_SET_VAR}/a.md", want: "/opt/aris/a.md"},
		{name: "bare unset kept", in: "$ARIS_UNSET_VAR/a.md", want: "$ARIS_UNSET_VAR/a.md"},
		{name: "braced unset kept", in: "${ARIS_UNSET_VAR}/a.md", want: "${ARIS_UNSET_VAR}/a.md"},
		{name: "mixed", in: "$ARIS_SET_VAR/$ARIS_UNSET_VAR", want: "/opt/aris/$ARIS_UNSET_VAR"},
		{name: "lone dollar", in: "cost$/a.md", want: "cost$/a.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandPath(tt.in))
		})
	}
}

func TestPathResolver_UnsetVariableIsLiteral(t *testing.T) {
	roots := testRoots(t)
	t.Setenv("ARIS_UNSET_VAR", "")
	require.NoError(t, os.Unsetenv("ARIS_UNSET_VAR"))
	literal := writeFile(t, roots.User, "$ARIS_UNSET_VAR/notes.md", "x")

	got, ok := NewPathResolver(roots, nil).Resolve("$ARIS_UNSET_VAR/notes.md", "")
	require.True(t, ok)
	assert.Equal(t, literal, got)
}

func TestPathResolver_ConfigsPrefix(t *testing.T) {
	roots := testRoots(t)
	pkgConfig := writeFile(t, roots.Package, "configs/files.json", "{}")
	codeConfig := writeFile(t, roots.CodeDir, "profiles/configs/nested/code.json", "{}")
	// A same-named file next to the profile loses to the package copy.
	profilePath := writeFile(t, roots.User, "team/p.yaml", "profile_name: p\n")
	writeFile(t, roots.User, "team/configs/files.json", "{}")

	p := NewPathResolver(roots, nil)

	got, ok := p.Resolve("configs/files.json", profilePath)
	require.True(t, ok)
	assert.Equal(t, pkgConfig, got)

	got, ok = p.Resolve("./configs/nested/code.json", "")
	require.True(t, ok)
	assert.Equal(t, codeConfig, got)
}

func TestPathResolver_RelativeTo(t *testing.T) {
	roots := testRoots(t)
	profilePath := writeFile(t, roots.User, "team/sub/p.yaml", "profile_name: p\n")
	sibling := writeFile(t, roots.User, "team/sub/notes.md", "x")
	parentConfig := writeFile(t, roots.User, "team/settings.json", "{}")
	siblingConfigs := writeFile(t, roots.User, "team/configs/servers.json", "{}")

	p := NewPathResolver(roots, nil)

	t.Run("next to the profile file", func(t *testing.T) {
		got, ok := p.Resolve("notes.md", profilePath)
		require.True(t, ok)
		assert.Equal(t, sibling, got)
	})

	t.Run("relative to a directory", func(t *testing.T) {
		got, ok := p.Resolve("notes.md", filepath.Dir(profilePath))
		require.True(t, ok)
		assert.Equal(t, sibling, got)
	})

	t.Run("config file in the parent directory", func(t *testing.T) {
		got, ok := p.Resolve("settings.json", profilePath)
		require.True(t, ok)
		assert.Equal(t, parentConfig, got)
	})

	t.Run("configs directory beside the profile directory", func(t *testing.T) {
		got, ok := p.Resolve("shared/configs/servers.json", profilePath)
		require.True(t, ok)
		assert.Equal(t, siblingConfigs, got)
	})

	t.Run("non-config files do not search the parent", func(t *testing.T) {
		writeFile(t, roots.User, "team/readme.md", "x")
		_, ok := p.Resolve("readme.md", profilePath)
		assert.False(t, ok)
	})
}

func TestPathResolver_RootOrder(t *testing.T) {
	roots := testRoots(t)
	writeFile(t, roots.Package, "prompts/shared.md", "package")
	projectCopy := writeFile(t, roots.Project, "prompts/shared.md", "project")
	userConfig := writeFile(t, roots.User, "configs/servers.yaml", "{}")
	writeFile(t, roots.Package, "configs/servers.yaml", "{}")

	p := NewPathResolver(roots, nil)

	got, ok := p.Resolve("prompts/shared.md", "")
	require.True(t, ok)
	assert.Equal(t, projectCopy, got, "project root is searched before package root")

	got, ok = p.Resolve("servers.yaml", "")
	require.True(t, ok)
	assert.Equal(t, userConfig, got, "config files are also looked up in <root>/configs")
}

func TestPathResolver_WorkingAndCodeDirectories(t *testing.T) {
	roots := testRoots(t)
	cwd := t.TempDir()
	// Equivalent of t.Chdir (Go 1.24+) for the Go 1.21 toolchain.
	if prevDir, err := os.Getwd(); err != nil {
		t.Fatal(err)
	} else if err := os.Chdir(cwd); err != nil {
		t.Fatal(err)
	} else {
		t.Cleanup(func() { _ = os.Chdir(prevDir) })
	}

	local := writeFile(t, cwd, "local-config.toml", "x")
	code := writeFile(t, roots.CodeDir, "tool.config", "x")
	codeConfigs := writeFile(t, roots.CodeDir, "profiles/configs/servers.json", "{}")
	writeFile(t, cwd, "plain.md", "x")

	p := NewPathResolver(roots, nil)

	got, ok := p.Resolve("local-config.toml", "")
	require.True(t, ok)
	assert.Equal(t, local, got)

	got, ok = p.Resolve("tool.config", "")
	require.True(t, ok)
	assert.Equal(t, code, got)

	got, ok = p.Resolve("elsewhere/servers.json", "")
	require.True(t, ok)
	assert.Equal(t, codeConfigs, got)

	_, ok = p.Resolve("plain.md", "")
	assert.False(t, ok, "non-config files are never resolved against the working directory")
}

func TestIsConfigFile(t *testing.T) {
	assert.True(t, isConfigFile("MyConfig.txt"))
	assert.True(t, isConfigFile("servers.json"))
	assert.True(t, isConfigFile("servers.yml"))
	assert.True(t, isConfigFile("a/b.yaml"))
	assert.False(t, isConfigFile("notes.md"))
}
