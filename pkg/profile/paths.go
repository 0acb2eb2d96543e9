// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const configsDir = "configs"

// Roots are the directories profiles and their referenced files live in.
// Discovery scans Package, then Project, then User, so User wins on
// conflicts. CodeDir is the installation directory of the running binary and
// is only consulted as a fallback for config files.
type Roots struct {
	Package string
	Project string
	User    string
	CodeDir string
}

// discoveryOrder returns the roots in scan order, lowest priority first.
func (r Roots) discoveryOrder() []rootDir {
	return []rootDir{
		{dir: r.Package, location: LocationPackage},
		{dir: r.Project, location: LocationProject},
		{dir: r.User, location: LocationUser},
	}
}

// searchOrder returns the roots in file search order, highest priority first.
func (r Roots) searchOrder() []string {
	return []string{r.User, r.Project, r.Package}
}

type rootDir struct {
	dir      string
	location Location
}

// PathResolver turns file references found in profiles into absolute paths.
type PathResolver struct {
	roots  Roots
	logger *zap.Logger
}

// NewPathResolver creates a resolver over the given roots.
func NewPathResolver(roots Roots, logger *zap.Logger) *PathResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathResolver{roots: roots, logger: logger}
}

// Roots returns the directories the resolver searches.
func (p *PathResolver) Roots() Roots {
	return p.roots
}

// Resolve locates filePath and returns its absolute path. relativeTo, when
// set, is a profile file or directory that relative references are tried
// against first. The search order is:
//
//  1. absolute paths, returned only if they exist
//  2. configs/ references, under the package root then the code directory
//  3. relativeTo's directory, and for config files its parent and sibling configs/
//  4. each root (user, project, package), plus <root>/configs for config files
//  5. for config files only: working directory and code directory
func (p *PathResolver) Resolve(filePath, relativeTo string) (string, bool) {
	filePath = expandPath(filePath)

	if filepath.IsAbs(filePath) {
		if exists(filePath) {
			return filePath, true
		}
		p.logger.Debug("Absolute path does not exist", zap.String("path", filePath))
		return "", false
	}

	var tried []string
	try := func(candidate string) bool {
		if abs, err := filepath.Abs(candidate); err == nil {
			candidate = abs
		}
		tried = append(tried, candidate)
		return exists(candidate)
	}
	found := func(path, via string) (string, bool) {
		p.logger.Debug("Resolved file path",
			zap.String("file", filePath),
			zap.String("path", path),
			zap.String("via", via))
		return path, true
	}

	configFile := isConfigFile(filePath)
	base := filepath.Base(filePath)

	if rest, ok := configsRelative(filePath); ok {
		if p.roots.Package != "" {
			candidate := filepath.Join(p.roots.Package, filePath)
			if try(candidate) {
				return found(tried[len(tried)-1], "package configs")
			}
		}
		if p.roots.CodeDir != "" {
			candidate := filepath.Join(p.roots.CodeDir, "profiles", configsDir, rest)
			if try(candidate) {
				return found(tried[len(tried)-1], "code configs")
			}
		}
	}

	if relativeTo != "" {
		baseDir := relativeTo
		if info, err := os.Stat(relativeTo); err == nil && !info.IsDir() {
			baseDir = filepath.Dir(relativeTo)
		}
		if try(filepath.Join(baseDir, filePath)) {
			return found(tried[len(tried)-1], "relative")
		}
		if configFile {
			parentDir := filepath.Dir(baseDir)
			if try(filepath.Join(parentDir, filePath)) {
				return found(tried[len(tried)-1], "relative parent")
			}
			if strings.Contains(filePath, configsDir+"/") {
				siblingConfigs := filepath.Join(parentDir, configsDir)
				if exists(siblingConfigs) && try(filepath.Join(siblingConfigs, base)) {
					return found(tried[len(tried)-1], "sibling configs")
				}
			}
		}
	}

	for _, root := range p.roots.searchOrder() {
		if root == "" {
			continue
		}
		if try(filepath.Join(root, filePath)) {
			return found(tried[len(tried)-1], "root")
		}
		if configFile && try(filepath.Join(root, configsDir, base)) {
			return found(tried[len(tried)-1], "root configs")
		}
	}

	if configFile {
		if try(filePath) {
			return found(tried[len(tried)-1], "working directory")
		}
		if p.roots.CodeDir != "" {
			if try(filepath.Join(p.roots.CodeDir, filePath)) {
				return found(tried[len(tried)-1], "code directory")
			}
			if try(filepath.Join(p.roots.CodeDir, "profiles", configsDir, base)) {
				return found(tried[len(tried)-1], "code configs")
			}
		}
	}

	p.logger.Warn("Could not resolve file path",
		zap.String("file", filePath),
		zap.Strings("tried", tried))
	return "", false
}

// configsRelative reports whether path starts with configs/ and returns the
// remainder after that prefix.
func configsRelative(path string) (string, bool) {
	for _, prefix := range []string{"./" + configsDir + "/", configsDir + "/"} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimPrefix(path, prefix), true
		}
	}
	return "", false
}

// isConfigFile reports whether path looks like a configuration file, which
// widens the search.
func isConfigFile(path string) bool {
	if strings.Contains(strings.ToLower(path), "config") {
		return true
	}
	switch filepath.Ext(path) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

var pathVarPattern = regexp.MustCompile(`\$(\w+|\{[^}]*\})`)

// expandPath expands a leading ~ and $NAME or ${NAME} references.
// References to unset variables are left exactly as written.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !strings.Contains(path, "$") {
		return path
	}
	return pathVarPattern.ReplaceAllStringFunc(path, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match[1:], "{"), "}")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
