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
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
)

const (
	handoffDirName = "aris_profiles"
	handoffPrefix  = "mcp_config_"
	handoffSuffix  = ".json"
)

// DefaultHandoffDir returns <os temp dir>/aris_profiles.
func DefaultHandoffDir() string {
	return filepath.Join(os.TempDir(), handoffDirName)
}

// HandoffFileName builds mcp_config_<profile>_<YYYYmmddHHMMSS>_<id8>.json.
func HandoffFileName(profileName string, now time.Time, id uuid.UUID) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(profileName)
	if safe == "" {
		safe = "unknown"
	}
	return fmt.Sprintf("%s%s_%s_%s%s", handoffPrefix, safe, now.Format("20060102150405"), id.String()[:8], handoffSuffix)
}

// WriteTempConfig builds the environment-substituted MCP config for doc and
// writes it to a new file in the handoff directory. It returns the config
// exactly as written and the file's absolute path. Both are empty when the
// profile references no config files.
func (l *Loader) WriteTempConfig(doc profile.Document) (Config, string, error) {
	if len(doc.StringList(profile.KeyMCPConfigFiles)) == 0 {
		return nil, "", nil
	}
	name := doc.Name()

	if entry, ok := l.profiles.LocateByName(name); ok && entry.Location == profile.LocationUser {
		roots := l.profiles.Paths().Roots()
		if _, err := EnsureUserConfigs(roots.User, roots.Package, l.logger); err != nil {
			l.logger.Warn("Failed to copy standard configs", zap.Error(err))
		}
	}

	cfg, _ := l.Build(doc)
	if cfg == nil {
		return nil, "", nil
	}

	path, err := l.writeConfig(name, cfg)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// writeConfig writes cfg to a new handoff file and returns its absolute path.
func (l *Loader) writeConfig(name string, cfg Config) (string, error) {
	if err := os.MkdirAll(l.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create handoff directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode mcp config: %w", err)
	}

	path := filepath.Join(l.tempDir, HandoffFileName(name, time.Now(), uuid.New()))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write mcp config: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	l.logger.Info("Created merged MCP config file",
		zap.String("profile", name),
		zap.String("file", abs),
		zap.Int("bytes", len(data)),
		zap.Strings("servers", cfg.ServerNames()))
	return abs, nil
}

// CleanupOldFiles removes handoff files in dir older than maxAge and
// returns how many were removed. A missing dir is not an error.
func CleanupOldFiles(dir string, maxAge time.Duration, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read handoff directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, handoffPrefix) || !strings.HasSuffix(name, handoffSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.Warn("Failed to remove old temp file", zap.String("file", path), zap.Error(err))
			continue
		}
		logger.Debug("Removed old temp file", zap.String("file", path))
		removed++
	}
	return removed, nil
}

// EnsureUserConfigs copies the package's configs/*.json into the user
// root's configs directory when that directory does not exist yet.
// Existing files are never overwritten. It returns the number copied.
func EnsureUserConfigs(userRoot, packageRoot string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if userRoot == "" || packageRoot == "" {
		return 0, nil
	}

	userConfigs := filepath.Join(userRoot, "configs")
	if _, err := os.Stat(userConfigs); err == nil {
		return 0, nil
	}
	standard := filepath.Join(packageRoot, "configs")
	entries, err := os.ReadDir(standard)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read standard configs: %w", err)
	}

	if err := os.MkdirAll(userConfigs, 0755); err != nil {
		return 0, fmt.Errorf("failed to create user configs directory: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		dst := filepath.Join(userConfigs, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(standard, entry.Name()))
		if err != nil {
			return copied, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return copied, fmt.Errorf("failed to write %s: %w", dst, err)
		}
		logger.Debug("Copied standard config", zap.String("file", dst))
		copied++
	}
	return copied, nil
}
