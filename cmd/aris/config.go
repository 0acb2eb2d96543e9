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
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/teradata-labs/aris/internal/log"
	arisconfig "github.com/teradata-labs/aris/pkg/config"
	"github.com/teradata-labs/aris/pkg/mcpconfig"
	"github.com/teradata-labs/aris/pkg/profile"
)

// DefaultConfigFileName is the name of the config file
const DefaultConfigFileName = "aris"

// envKeyReplacer maps nested keys to env names: logging.level -> ARIS_LOGGING_LEVEL
var envKeyReplacer = strings.NewReplacer(".", "_")

// Config holds all configuration for the aris CLI.
// Priority: CLI flags > env vars > config file > defaults
type Config struct {
	// DataDir is the Aris data directory (computed from ARIS_DATA_DIR env var or ~/.aris).
	// It is not loaded from the config file.
	DataDir string `mapstructure:"-"`

	// Profile roots
	Profiles ProfilesConfig `mapstructure:"profiles"`

	// MCP handoff configuration
	MCP MCPConfig `mapstructure:"mcp"`

	// Hot reload configuration
	Watch WatchConfig `mapstructure:"watch"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProfilesConfig locates the three profile roots.
type ProfilesConfig struct {
	// PackageDir holds the bundled profiles (default: extracted to the user cache)
	PackageDir string `mapstructure:"package_dir"`

	// ProjectDir holds per-project profiles (default: ./.aris)
	ProjectDir string `mapstructure:"project_dir"`

	// UserDir holds the user's own profiles (default: the data directory)
	UserDir string `mapstructure:"user_dir"`

	// CodeDir is the installation directory searched last for config files
	CodeDir string `mapstructure:"code_dir"`

	// ExtractBundled writes the bundled profiles into PackageDir on startup
	ExtractBundled bool `mapstructure:"extract_bundled"`
}

// MCPConfig configures merged MCP config handoff files.
type MCPConfig struct {
	TempDir            string `mapstructure:"temp_dir"`
	CleanupMaxAgeHours int    `mapstructure:"cleanup_max_age_hours"`
}

// WatchConfig configures the profile hot reloader.
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console, json
	File   string `mapstructure:"file"`   // empty means stderr
}

// LoadConfig loads configuration from multiple sources with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables (ARIS_ prefix)
// 3. Config file
// 4. Defaults (lowest priority)
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(arisconfig.GetArisDataDir()) // Aris data directory (respects ARIS_DATA_DIR)
		viper.AddConfigPath(".")                         // Current directory
		viper.AddConfigPath("/etc/aris/")                // System-wide
		viper.SetConfigName(DefaultConfigFileName)       // aris.yaml
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	viper.SetEnvPrefix("ARIS")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.DataDir = arisconfig.GetArisDataDir()
	if config.Profiles.UserDir == "" {
		config.Profiles.UserDir = config.DataDir
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("profiles.package_dir", arisconfig.GetPackageProfilesDir())
	viper.SetDefault("profiles.project_dir", arisconfig.GetProjectProfilesDir())
	viper.SetDefault("profiles.user_dir", "")
	viper.SetDefault("profiles.code_dir", arisconfig.GetCodeDir())
	viper.SetDefault("profiles.extract_bundled", true)

	viper.SetDefault("mcp.temp_dir", mcpconfig.DefaultHandoffDir())
	viper.SetDefault("mcp.cleanup_max_age_hours", 24)

	viper.SetDefault("watch.debounce_ms", 500)

	viper.SetDefault("logging.level", "warn")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.file", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Profiles.UserDir == "" {
		return fmt.Errorf("profiles.user_dir is required")
	}
	if c.MCP.CleanupMaxAgeHours < 0 {
		return fmt.Errorf("invalid mcp.cleanup_max_age_hours: %d (must be >= 0)", c.MCP.CleanupMaxAgeHours)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch.debounce_ms: %d (must be >= 0)", c.Watch.DebounceMs)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be 'console' or 'json')", c.Logging.Format)
	}
	return nil
}

// Roots returns the profile roots the registry scans.
func (c *Config) Roots() profile.Roots {
	return profile.Roots{
		Package: c.Profiles.PackageDir,
		Project: c.Profiles.ProjectDir,
		User:    c.Profiles.UserDir,
		CodeDir: c.Profiles.CodeDir,
	}
}

// CleanupMaxAge returns the handoff file retention.
func (c *Config) CleanupMaxAge() time.Duration {
	return time.Duration(c.MCP.CleanupMaxAgeHours) * time.Hour
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() log.Config {
	return log.Config{Level: c.Logging.Level, Format: c.Logging.Format, File: c.Logging.File}
}
