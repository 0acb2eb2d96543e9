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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for config fragments that are neither
// JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported mcp config format")

// ProfileLocator finds profile files and resolves the paths they reference.
// *profile.Registry implements it.
type ProfileLocator interface {
	LocateByName(name string) (profile.RegistryEntry, bool)
	Paths() *profile.PathResolver
}

// LoaderConfig configures the MCP config loader
type LoaderConfig struct {
	Profiles ProfileLocator
	TempDir  string      // Handoff directory (default: <os temp>/aris_profiles)
	Logger   *zap.Logger // Defaults to a no-op logger
}

// Loader merges the MCP config fragments referenced by profiles.
type Loader struct {
	profiles ProfileLocator
	tempDir  string
	env      *EnvSubstitutor
	logger   *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(config LoaderConfig) *Loader {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.TempDir == "" {
		config.TempDir = DefaultHandoffDir()
	}
	return &Loader{
		profiles: config.Profiles,
		tempDir:  config.TempDir,
		env:      NewEnvSubstitutor(config.Logger),
		logger:   config.Logger,
	}
}

// Env returns the substitutor applied by Build.
func (l *Loader) Env() *EnvSubstitutor {
	return l.env
}

// TempDir returns the handoff directory.
func (l *Loader) TempDir() string {
	return l.tempDir
}

// Report describes how a profile's config files were resolved.
type Report struct {
	Resolved []string // absolute paths that were merged
	Missing  []string // references that could not be found
	Failed   []string // files that were found but could not be loaded
}

// Merge loads every file in doc's mcp_config_files, in order, and merges
// them into one configuration where later files win at every level. Files
// are resolved relative to the profile's own file. The returned Config is
// nil when the profile references no config files.
func (l *Loader) Merge(doc profile.Document) (Config, Report) {
	var report Report
	files := doc.StringList(profile.KeyMCPConfigFiles)
	name := doc.Name()
	if len(files) == 0 {
		l.logger.Debug("No MCP config files specified", zap.String("profile", name))
		return nil, report
	}

	profilePath := ""
	if entry, ok := l.profiles.LocateByName(name); ok {
		profilePath = entry.Path
	}

	merged := map[string]interface{}(NewConfig())
	for _, file := range files {
		path, ok := l.profiles.Paths().Resolve(file, profilePath)
		if !ok {
			l.logger.Warn("MCP config file not found",
				zap.String("profile", name),
				zap.String("file", file))
			report.Missing = append(report.Missing, file)
			continue
		}

		fragment, err := LoadFile(path)
		if err != nil {
			l.logger.Error("Failed to load MCP config file",
				zap.String("profile", name),
				zap.String("file", path),
				zap.Error(err))
			report.Failed = append(report.Failed, path)
			continue
		}

		if servers, ok := fragment[ServersKey].(map[string]interface{}); ok {
			l.logger.Debug("Merging MCP config file",
				zap.String("file", path),
				zap.Strings("servers", Config(fragment).ServerNames()),
				zap.Int("count", len(servers)))
		} else {
			l.logger.Warn("MCP config file has no mcpServers section", zap.String("file", path))
		}

		merged = profile.MergeTrees(merged, fragment)
		report.Resolved = append(report.Resolved, path)
	}

	cfg := Config(merged)
	if missing := MissingServers(cfg, doc.StringList(profile.KeyTools)); len(missing) > 0 {
		l.logger.Warn("Profile requires servers missing from the merged config",
			zap.String("profile", name),
			zap.Strings("servers", missing))
	}

	l.logger.Info("Merged MCP config",
		zap.String("profile", name),
		zap.Int("resolved", len(report.Resolved)),
		zap.Int("requested", len(files)),
		zap.Strings("servers", cfg.ServerNames()))
	return cfg, report
}

// Build merges doc's config files and substitutes environment references.
// Invalid server definitions are logged, not rejected.
func (l *Loader) Build(doc profile.Document) (Config, Report) {
	cfg, report := l.Merge(doc)
	if cfg == nil {
		return nil, report
	}
	cfg = l.env.Substitute(cfg)
	if err := cfg.Validate(); err != nil {
		l.logger.Warn("MCP config has invalid servers", zap.String("profile", doc.Name()), zap.Error(err))
	}
	return cfg, report
}

// LoadFile parses a JSON (.json) or YAML (.yaml, .yml) config fragment.
func LoadFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var raw interface{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		raw = profile.Normalize(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("config %s must be a mapping", path)
	}
	return m, nil
}
