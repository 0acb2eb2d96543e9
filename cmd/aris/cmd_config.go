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
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/aris/internal/home"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect aris configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration (merged from all sources).`,
	Run: func(cmd *cobra.Command, args []string) {
		printConfig(cmd.OutOrStdout(), config)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func printConfig(out io.Writer, c *Config) {
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "======================")
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "Config file: %s\n", home.Short(used))
	} else {
		fmt.Fprintln(out, "Config file: (none, using defaults + environment)")
	}
	fmt.Fprintf(out, "Data dir: %s\n", home.Short(c.DataDir))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Profiles:")
	fmt.Fprintf(out, "  Package: %s\n", home.Short(c.Profiles.PackageDir))
	fmt.Fprintf(out, "  Project: %s\n", home.Short(c.Profiles.ProjectDir))
	fmt.Fprintf(out, "  User: %s\n", home.Short(c.Profiles.UserDir))
	fmt.Fprintf(out, "  Code: %s\n", home.Short(c.Profiles.CodeDir))
	fmt.Fprintf(out, "  Extract bundled: %t\n", c.Profiles.ExtractBundled)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "MCP:")
	fmt.Fprintf(out, "  Temp dir: %s\n", home.Short(c.MCP.TempDir))
	fmt.Fprintf(out, "  Cleanup max age: %s\n", c.CleanupMaxAge())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Watch:")
	fmt.Fprintf(out, "  Debounce: %dms\n", c.Watch.DebounceMs)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Logging:")
	fmt.Fprintf(out, "  Level: %s\n", c.Logging.Level)
	fmt.Fprintf(out, "  Format: %s\n", c.Logging.Format)
	if c.Logging.File != "" {
		fmt.Fprintf(out, "  File: %s\n", home.Short(c.Logging.File))
	}
}
