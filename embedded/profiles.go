// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package embedded provides access to files embedded into the aris binary.
// This ensures the bundled profiles are always available, even when the
// binary is distributed separately from the source tree.
package embedded

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Profiles holds the bundled profiles under profiles/, including the
// companion server configs in profiles/configs/.
//
//go:embed profiles
var Profiles embed.FS

const profilesRoot = "profiles"

// ProfilesFS returns the bundled profile tree rooted at its top directory.
func ProfilesFS() fs.FS {
	sub, err := fs.Sub(Profiles, profilesRoot)
	if err != nil {
		panic(err) // profiles/ is embedded at build time
	}
	return sub
}

// Extract writes the bundled profiles into dir, creating it if needed.
// Existing files are left untouched so local edits survive upgrades.
// It returns the number of files written.
func Extract(dir string) (int, error) {
	written := 0
	err := fs.WalkDir(ProfilesFS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if _, err := os.Stat(target); err == nil {
			return nil
		}

		data, err := fs.ReadFile(ProfilesFS(), path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		return written, fmt.Errorf("failed to extract bundled profiles: %w", err)
	}
	return written, nil
}
