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
	"sort"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/aris/internal/home"
	"github.com/teradata-labs/aris/internal/log"
	"github.com/teradata-labs/aris/pkg/activation"
	"github.com/teradata-labs/aris/pkg/profile"
)

var activateCmd = &cobra.Command{
	Use:   "activate <reference>",
	Short: "Activate a profile and print its effective session settings",
	Long: heredoc.Doc(`
		Resolve a profile, fill its template variables, apply its context files
		and write the merged MCP config handoff file. Required variables without
		a default must be supplied with --var. --workspace sets the workspace
		and workspace_name variables from a directory.
	`),
	Example: heredoc.Doc(`
		aris activate base/developer --var project_name=aris
		aris activate analyst --var dataset=sales --json
		aris activate base/developer --workspace ~/src/aris --var project_name=aris
	`),
	Args: cobra.ExactArgs(1),
	RunE: runActivate,
}

func init() {
	activateCmd.Flags().StringToString("var", nil, "template variable values (key=value)")
	activateCmd.Flags().StringToString("workspace-var", nil, "workspace variables, override --var (key=value)")
	activateCmd.Flags().String("workspace", "", "workspace directory (sets workspace and workspace_name)")
	activateCmd.Flags().String("session", "", "session id used to name the context reference file")
	activateCmd.Flags().Bool("no-mcp", false, "do not write the MCP config handoff file")
	activateCmd.Flags().Bool("json", false, "print the activation as JSON")
	rootCmd.AddCommand(activateCmd)
}

func runActivate(cmd *cobra.Command, args []string) error {
	vars, _ := cmd.Flags().GetStringToString("var")
	workspaceVars, _ := cmd.Flags().GetStringToString("workspace-var")
	workspace, _ := cmd.Flags().GetString("workspace")
	session, _ := cmd.Flags().GetString("session")
	noMCP, _ := cmd.Flags().GetBool("no-mcp")
	asJSON, _ := cmd.Flags().GetBool("json")

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	activator, err := activation.New(activation.Config{
		Registry: reg,
		Loader:   newLoader(reg),
		Logger:   log.Logger().Named("activation"),
	})
	if err != nil {
		return err
	}

	act, err := activator.Activate(args[0], activation.Options{
		Variables:          vars,
		WorkspaceVariables: workspaceVars,
		Workspace:          workspace,
		WriteMCPConfig:     !noMCP,
		SessionID:          session,
	})
	if err != nil {
		var missing *activation.MissingVariablesError
		switch {
		case errors.As(err, &missing):
			for _, v := range missing.Variables {
				fmt.Fprintf(cmd.ErrOrStderr(), "  --var %s=...  %s\n", v.Name, v.Description)
			}
		case errors.Is(err, profile.ErrProfileNotFound):
			return notFound(reg, args[0], err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, act)
	}

	fmt.Fprintf(out, "Activated profile %s\n", act.Reference)
	if msg := act.Profile.String(profile.KeyWelcomeMessage); msg != "" {
		fmt.Fprintf(out, "\n%s\n", msg)
	}
	if len(act.Variables) > 0 {
		fmt.Fprintln(out, "\nVariables:")
		names := make([]string, 0, len(act.Variables))
		for name := range act.Variables {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %s\n", name, act.Variables[name])
		}
	}
	if servers := act.MCPConfig.ServerNames(); len(servers) > 0 {
		fmt.Fprintf(out, "\nMCP servers: %v\n", servers)
	}
	if act.MCPConfigPath != "" {
		fmt.Fprintf(out, "MCP config:  %s\n", act.MCPConfigPath)
	}
	if len(act.ContextFiles) > 0 {
		fmt.Fprintf(out, "\nContext files (%s):\n", act.ContextMode)
		for _, f := range act.ContextFiles {
			fmt.Fprintf(out, "  %s\n", home.Short(f))
		}
		if act.ContextFilePath != "" {
			fmt.Fprintf(out, "Context reference: %s\n", act.ContextFilePath)
		}
	}
	fmt.Fprintf(out, "\nSystem prompt:\n%s\n", act.SystemPrompt)
	return nil
}
