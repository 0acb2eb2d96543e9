// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ProjectDirName is the per-project profile directory, relative to the
// working directory.
const ProjectDirName = ".aris"

// GetArisDataDir returns the Aris data directory. User profiles live here.
//
// Priority:
// 1. ARIS_DATA_DIR environment variable (if set and non-empty)
// 2. ~/.aris (default)
//
// The returned path is always absolute. Tilde (~) in ARIS_DATA_DIR is expanded to the user's home directory.
//
// Examples:
//
//	ARIS_DATA_DIR=/custom/aris        -> /custom/aris
//	ARIS_DATA_DIR=~/my-aris           -> /home/user/my-aris
//	ARIS_DATA_DIR=relative/path       -> /current/dir/relative/path
//	ARIS_DATA_DIR not set             -> /home/user/.aris
//
// Note: This function reads directly from os.Getenv(), not from viper, so the
// config file can be located before viper is initialized.
func GetArisDataDir() string {
	if dataDir := os.Getenv("ARIS_DATA_DIR"); dataDir != "" {
		return expandPath(dataDir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ProjectDirName
	}
	return filepath.Join(homeDir, ProjectDirName)
}

// GetArisSubDir returns a subdirectory within the Aris data directory.
// Example: GetArisSubDir("configs") returns ~/.aris/configs
func GetArisSubDir(subdir string) string {
	return filepath.Join(GetArisDataDir(), subdir)
}

// GetProjectProfilesDir returns ./.aris as an absolute path.
func GetProjectProfilesDir() string {
	return expandPath(ProjectDirName)
}

// GetPackageProfilesDir returns the directory holding the bundled profiles.
//
// Priority:
// 1. ARIS_PACKAGE_DIR environment variable (if set and non-empty)
// 2. <user cache dir>/aris/profiles, where bundled profiles are extracted
func GetPackageProfilesDir() string {
	if dir := os.Getenv("ARIS_PACKAGE_DIR"); dir != "" {
		return expandPath(dir)
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(GetArisDataDir(), "package")
	}
	return filepath.Join(cacheDir, "aris", "profiles")
}

// GetCodeDir returns the directory containing the running executable, or
// "" if it cannot be determined.
func GetCodeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// expandPath expands ~ and resolves to absolute path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path // Return as-is if we can't get home dir
		}
		return filepath.Join(homeDir, path[2:])
	}

	// Make path absolute
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path // Return as-is if we can't make it absolute
	}
	return absPath
}
