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
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/aris/internal/home"
	"github.com/teradata-labs/aris/internal/log"
	"github.com/teradata-labs/aris/pkg/activation"
	"github.com/teradata-labs/aris/pkg/mcpconfig"
	"github.com/teradata-labs/aris/pkg/profile"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Build and inspect the MCP configuration of a profile",
}

var mcpConfigCmd = &cobra.Command{
	Use:   "config <reference>",
	Short: "Print the merged MCP config of a profile",
	Long: heredoc.Doc(`
		Merge every file listed in the profile's mcp_config_files (later files
		win), substitute ${VAR} and ${VAR:-default} references from the
		environment and print the result. With --write the config is written
		to a new handoff file and its path is printed instead.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runMCPConfig,
}

var mcpRequirementsCmd = &cobra.Command{
	Use:   "requirements <reference>",
	Short: "Report which companion MCP servers a profile needs",
	Args:  cobra.ExactArgs(1),
	RunE:  runMCPRequirements,
}

var mcpCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old MCP config handoff and context reference files",
	Args:  cobra.NoArgs,
	RunE:  runMCPCleanup,
}

func init() {
	mcpConfigCmd.Flags().Bool("write", false, "write a handoff file and print its path")
	mcpConfigCmd.Flags().Bool("summary", false, "print server names and types only")

	mcpCleanupCmd.Flags().Duration("max-age", 0, "remove files older than this (default: mcp.cleanup_max_age_hours)")

	mcpCmd.AddCommand(mcpConfigCmd, mcpRequirementsCmd, mcpCleanupCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPConfig(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	summary, _ := cmd.Flags().GetBool("summary")

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	doc, err := reg.Get(args[0], profile.GetOptions{Resolve: true})
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return notFound(reg, args[0], err)
		}
		return err
	}

	loader := newLoader(reg)
	out := cmd.OutOrStdout()

	if write {
		_, path, err := loader.WriteTempConfig(doc)
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintf(out, "Profile %s has no MCP config files.\n", args[0])
			return nil
		}
		fmt.Fprintln(out, path)
		return nil
	}

	cfg, report := loader.Build(doc)
	if cfg == nil {
		fmt.Fprintf(out, "Profile %s has no MCP config files.\n", args[0])
		return nil
	}
	for _, missing := range report.Missing {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: config file not found: %s\n", missing)
	}
	for _, failed := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: config file could not be loaded: %s\n", failed)
	}

	if summary {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERVER\tTYPE")
		for _, s := range cfg.Summaries() {
			fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Type)
		}
		return w.Flush()
	}
	return writeJSON(out, cfg)
}

func runMCPRequirements(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	req := mcpconfig.Analyze(reg, args[0], log.Logger().Named("mcp"))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile:          %s\n", req.Profile)
	fmt.Fprintf(out, "Inheritance:      %s\n", strings.Join(req.InheritanceChain, " -> "))
	fmt.Fprintf(out, "Profile server:   %s\n", startWord(req.ShouldStartProfileServer(false)))
	fmt.Fprintf(out, "Workflow server:  %s\n", startWord(req.ShouldStartWorkflowServer(false)))
	if len(req.ConfigFiles) > 0 {
		fmt.Fprintf(out, "Config files:     %s\n", strings.Join(req.ConfigFiles, ", "))
	}
	fmt.Fprintf(out, "Analysis time:    %s\n", req.Elapsed.Round(time.Microsecond))
	return nil
}

func runMCPCleanup(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("max-age")
	if maxAge <= 0 {
		maxAge = config.CleanupMaxAge()
	}

	logger := log.Logger().Named("mcp")
	removed, err := mcpconfig.CleanupOldFiles(config.MCP.TempDir, maxAge, logger)
	if err != nil {
		return err
	}
	contexts, err := activation.CleanupContextFiles(config.MCP.TempDir, maxAge, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d handoff and %d context files older than %s from %s\n",
		removed, contexts, maxAge, home.Short(config.MCP.TempDir))
	return nil
}

func startWord(start bool) string {
	if start {
		return "start"
	}
	return "skip"
}
