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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/aris/internal/log"
	"github.com/teradata-labs/aris/pkg/profile"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"profile", "p"},
	Short:   "Discover, inspect and create profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <reference>",
	Short: "Show a resolved profile",
	Long: heredoc.Doc(`
		Show the effective profile after inheritance, merge directives and
		prompt placeholders have been applied. Use --raw to show the file as
		written.
	`),
	Args: cobra.ExactArgs(1),
	RunE: runProfilesShow,
}

var profilesVariablesCmd = &cobra.Command{
	Use:   "variables <reference>",
	Short: "List the template variables a profile expects",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesVariables,
}

var profilesMergeCmd = &cobra.Command{
	Use:   "merge <base> <overlay>...",
	Short: "Merge resolved profiles left to right",
	Example: heredoc.Doc(`
		# Layer a reviewer persona on top of the developer profile
		aris profiles merge base/developer team/reviewer
	`),
	Args: cobra.MinimumNArgs(2),
	RunE: runProfilesMerge,
}

var profilesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a profile from a YAML file",
	Long: heredoc.Doc(`
		Validate a profile document and write it into the user profile root
		(or --path). Names containing "/" create nested directories.
	`),
	Args: cobra.NoArgs,
	RunE: runProfilesCreate,
}

var profilesPathsCmd = &cobra.Command{
	Use:   "paths <reference>",
	Short: "Resolve the context or MCP config files a profile references",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesPaths,
}

var profilesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescan the profile roots",
	Args:  cobra.NoArgs,
	RunE:  runProfilesRefresh,
}

var profilesWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the profile roots and report reloads until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runProfilesWatch,
}

func init() {
	profilesListCmd.Flags().String("tag", "", "only list profiles with this tag")
	profilesListCmd.Flags().StringP("output", "o", "table", "output format (table, json)")

	profilesShowCmd.Flags().Bool("raw", false, "show the profile without resolving inheritance")
	profilesShowCmd.Flags().StringP("output", "o", "yaml", "output format (yaml, json)")
	profilesShowCmd.Flags().StringToString("workspace-var", nil, "workspace variables to inject (key=value)")

	profilesMergeCmd.Flags().StringP("output", "o", "yaml", "output format (yaml, json)")

	profilesCreateCmd.Flags().StringP("file", "f", "", "profile YAML to create (- for stdin)")
	profilesCreateCmd.Flags().String("path", "", "write to this path instead of the user root")
	profilesCreateCmd.Flags().Bool("overwrite", false, "replace an existing profile file")
	_ = profilesCreateCmd.MarkFlagRequired("file")

	profilesPathsCmd.Flags().String("kind", "context", "which paths to resolve (context, mcp)")

	profilesCmd.AddCommand(profilesListCmd, profilesShowCmd, profilesVariablesCmd, profilesMergeCmd,
		profilesCreateCmd, profilesPathsCmd, profilesRefreshCmd, profilesWatchCmd)
	rootCmd.AddCommand(profilesCmd)
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	tag, _ := cmd.Flags().GetString("tag")
	output, _ := cmd.Flags().GetString("output")

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	var entries []profile.RegistryEntry
	for _, entry := range reg.List() {
		if tag == "" || containsString(entry.Tags, tag) {
			entries = append(entries, entry)
		}
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No profiles found.")
		return nil
	}

	width := descriptionWidth(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tLOCATION\tTAGS\tDESCRIPTION")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.Reference,
			entry.Location,
			strings.Join(entry.Tags, ","),
			truncate(entry.Description, width))
	}
	return w.Flush()
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	raw, _ := cmd.Flags().GetBool("raw")
	output, _ := cmd.Flags().GetString("output")
	workspace, _ := cmd.Flags().GetStringToString("workspace-var")

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	doc, err := reg.Get(args[0], profile.GetOptions{Resolve: !raw, WorkspaceVariables: workspace})
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			return notFound(reg, args[0], err)
		}
		return err
	}
	return writeDocument(cmd.OutOrStdout(), doc, output)
}

func runProfilesVariables(cmd *cobra.Command, args []string) error {
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

	vars := reg.Variables(doc)
	out := cmd.OutOrStdout()
	if len(vars) == 0 {
		fmt.Fprintf(out, "Profile %s has no template variables.\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREQUIRED\tDEFAULT\tDESCRIPTION")
	for _, v := range vars {
		def := "-"
		if v.Default != nil {
			def = *v.Default
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", v.Name, v.Required, def, v.Description)
	}
	return w.Flush()
}

func runProfilesMerge(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	doc, err := reg.MergeProfiles(args[0], args[1:]...)
	if err != nil {
		return err
	}
	return writeDocument(cmd.OutOrStdout(), doc, output)
}

func runProfilesCreate(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	path, _ := cmd.Flags().GetString("path")
	overwrite, _ := cmd.Flags().GetBool("overwrite")

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file) // #nosec G304 -- profile path from CLI flag
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	written, err := reg.Create(doc, profile.CreateOptions{Path: path, Overwrite: overwrite})
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", v)
			}
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s at %s\n", doc.Name(), written)
	return nil
}

func runProfilesPaths(cmd *cobra.Command, args []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	switch kind {
	case "context":
		kind = profile.PathKindContextFiles
	case "mcp":
		kind = profile.PathKindMCPConfigFiles
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}

	paths, err := reg.CollectPaths(args[0], kind)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func runProfilesRefresh(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Discovered %d profiles\n", reg.Refresh())
	return nil
}

func runProfilesWatch(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	hr, err := profile.NewHotReloader(reg, profile.HotReloadConfig{
		DebounceMs: config.Watch.DebounceMs,
		Logger:     log.Logger().Named("watch"),
		OnReload: func(eventType, filePath string, profiles int) {
			fmt.Fprintf(out, "%s %s (%d profiles)\n", eventType, filePath, profiles)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watched, err := hr.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %d directories (%d profiles). Press Ctrl+C to stop.\n", watched, reg.Count())

	<-ctx.Done()
	return hr.Stop()
}

// decodeDocument parses a single profile document.
func decodeDocument(data []byte) (profile.Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", profile.ErrMalformedSource, err.Error())
	}
	m, ok := profile.Normalize(raw).(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: profile must be a mapping", profile.ErrMalformedSource)
	}
	return profile.Document(m), nil
}

func writeDocument(out io.Writer, doc profile.Document, format string) error {
	switch format {
	case "json":
		return writeJSON(out, doc)
	case "yaml", "":
		data, err := profile.MarshalDocument(doc)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("unknown output format %q (must be 'yaml' or 'json')", format)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// descriptionWidth returns how many description characters fit on the
// terminal, or 0 for no limit when out is not a terminal.
func descriptionWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 80 {
		return 40
	}
	return width - 50
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
