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
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/aris/embedded"
	"github.com/teradata-labs/aris/internal/log"
	"github.com/teradata-labs/aris/internal/version"
	"github.com/teradata-labs/aris/pkg/mcpconfig"
	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aris",
	Short: "Aris - hierarchical agent profile manager",
	Long: heredoc.Doc(`
		Aris resolves agent profiles: YAML documents describing an assistant's
		system prompt, tools, context files and MCP servers.

		Profiles are discovered in three roots (package, project, user), may
		extend one or more parents, and are merged into a single effective
		profile with list directives (!REPLACE, !PREPEND) and prompt
		placeholders ({{parent_system_prompt}}, {{parent:name}}).
	`),
	Version:       version.Get(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the aris version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aris %s\n", version.Get())
	},
}

// Execute runs the root command
func Execute() {
	defer func() { _ = log.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $ARIS_DATA_DIR/aris.yaml)")

	// Profile root flags
	rootCmd.PersistentFlags().String("package-dir", "", "bundled profiles directory")
	rootCmd.PersistentFlags().String("project-dir", "", "project profiles directory (default: ./.aris)")
	rootCmd.PersistentFlags().String("user-dir", "", "user profiles directory (default: $ARIS_DATA_DIR)")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")

	bindFlag("profiles.package_dir", "package-dir")
	bindFlag("profiles.project_dir", "project-dir")
	bindFlag("profiles.user_dir", "user-dir")
	bindFlag("logging.level", "log-level")
	bindFlag("logging.format", "log-format")
	bindFlag("logging.file", "log-file")

	rootCmd.AddCommand(versionCmd)
}

// bindFlag binds a persistent flag to a viper key. Unset flags do not
// override the config file.
func bindFlag(key, flag string) {
	_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err == nil {
		err = config.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() error {
	logger, err := log.New(config.LogConfig())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log.SetLogger(logger)
	return nil
}

// openRegistry extracts the bundled profiles when enabled and indexes all roots.
func openRegistry() (*profile.Registry, error) {
	logger := log.Logger()
	if config.Profiles.ExtractBundled && config.Profiles.PackageDir != "" {
		n, err := embedded.Extract(config.Profiles.PackageDir)
		if err != nil {
			logger.Warn("Failed to extract bundled profiles", zap.Error(err))
		} else if n > 0 {
			logger.Info("Extracted bundled profiles",
				zap.String("dir", config.Profiles.PackageDir),
				zap.Int("files", n))
		}
	}

	reg, err := profile.NewRegistry(profile.RegistryConfig{
		Roots:  config.Roots(),
		Logger: logger.Named("profiles"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open profile registry: %w", err)
	}
	return reg, nil
}

func newLoader(reg *profile.Registry) *mcpconfig.Loader {
	return mcpconfig.NewLoader(mcpconfig.LoaderConfig{
		Profiles: reg,
		TempDir:  config.MCP.TempDir,
		Logger:   log.Logger().Named("mcp"),
	})
}

// notFound decorates a lookup failure with close matches.
func notFound(reg *profile.Registry, ref string, err error) error {
	if suggestions := reg.Suggest(ref); len(suggestions) > 0 {
		return fmt.Errorf("%w (did you mean: %v?)", err, suggestions)
	}
	return err
}
