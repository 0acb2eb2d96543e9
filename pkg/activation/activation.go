// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package activation turns a profile reference into everything a session
// needs to start: the resolved profile, its rendered system prompt with
// context files applied, the variable values and the MCP config handoff file.
package activation

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/teradata-labs/aris/pkg/mcpconfig"
	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
)

// ErrMissingVariables is returned when required variables have neither a
// value nor a default.
var ErrMissingVariables = errors.New("missing required variables")

// MissingVariablesError lists the variables that still need values.
type MissingVariablesError struct {
	Profile   string
	Variables []profile.TemplateVariable
}

func (e *MissingVariablesError) Error() string {
	names := make([]string, len(e.Variables))
	for i, v := range e.Variables {
		names[i] = v.Name
	}
	return fmt.Sprintf("%s for profile %s: %s", ErrMissingVariables, e.Profile, strings.Join(names, ", "))
}

func (e *MissingVariablesError) Unwrap() error {
	return ErrMissingVariables
}

// Config configures an Activator.
type Config struct {
	Registry *profile.Registry
	Loader   *mcpconfig.Loader // Defaults to a loader over Registry
	Logger   *zap.Logger

	// ContextDir receives context reference files. Defaults to the loader's
	// handoff directory.
	ContextDir string

	// ContextSizeThreshold is the auto mode cutoff in bytes. Defaults to
	// DefaultContextSizeThreshold.
	ContextSizeThreshold int64
}

// Activator activates profiles.
type Activator struct {
	registry   *profile.Registry
	loader     *mcpconfig.Loader
	contextDir string
	threshold  int64
	logger     *zap.Logger
}

// New creates an Activator.
func New(config Config) (*Activator, error) {
	if config.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Loader == nil {
		config.Loader = mcpconfig.NewLoader(mcpconfig.LoaderConfig{
			Profiles: config.Registry,
			Logger:   config.Logger,
		})
	}
	if config.ContextDir == "" {
		config.ContextDir = config.Loader.TempDir()
	}
	if config.ContextSizeThreshold <= 0 {
		config.ContextSizeThreshold = DefaultContextSizeThreshold
	}
	return &Activator{
		registry:   config.Registry,
		loader:     config.Loader,
		contextDir: config.ContextDir,
		threshold:  config.ContextSizeThreshold,
		logger:     config.Logger,
	}, nil
}

// Options control a single activation.
type Options struct {
	// Variables are values supplied by the caller.
	Variables map[string]string

	// WorkspaceVariables are injected into the profile before variables are
	// computed and take precedence over Variables.
	WorkspaceVariables map[string]string

	// Workspace is the session's working directory. It provides the
	// workspace and workspace_name variables, which WorkspaceVariables
	// override, and is described in the system prompt when it differs from
	// the current directory.
	Workspace string

	// WriteMCPConfig writes the merged MCP config to a handoff file.
	WriteMCPConfig bool

	// SessionID names the context reference file. A random ID is used when
	// empty.
	SessionID string
}

// Activation is an activated profile.
type Activation struct {
	Reference     string
	Profile       profile.Document
	SystemPrompt  string
	Variables     map[string]string
	MCPConfig     mcpconfig.Config // nil when the profile references no config files
	MCPConfigPath string           // set only when Options.WriteMCPConfig is true
	Requirements  mcpconfig.Requirements
	Workspace     string // absolute workspace path, when one was given

	ContextMode     string   // embedded or referenced; empty without context files
	ContextFiles    []string // resolved context_files
	ContextFilePath string   // reference file, referenced mode only
}

// Activate resolves ref and prepares it for a session. Required variables
// without a value or default fail with *MissingVariablesError.
func (a *Activator) Activate(ref string, opts Options) (*Activation, error) {
	var workspace string
	if opts.Workspace != "" {
		derived, err := WorkspaceVariables(opts.Workspace)
		if err != nil {
			return nil, err
		}
		workspace = derived[VarWorkspace]
		for k, v := range opts.WorkspaceVariables {
			derived[k] = v
		}
		opts.WorkspaceVariables = derived
	}

	doc, err := a.registry.Get(ref, profile.GetOptions{
		Resolve:            true,
		WorkspaceVariables: opts.WorkspaceVariables,
	})
	if err != nil {
		return nil, err
	}

	values, err := collectVariables(doc.Name(), a.registry.Variables(doc), opts)
	if err != nil {
		return nil, err
	}

	act := &Activation{
		Reference:    ref,
		Profile:      doc,
		SystemPrompt: Render(a.registry.SystemPrompt(doc), values),
		Variables:    values,
		Requirements: mcpconfig.Analyze(a.registry, ref, a.logger),
		Workspace:    workspace,
	}

	if err := a.applyContext(act, opts.SessionID); err != nil {
		return nil, err
	}
	if workspace != "" {
		act.SystemPrompt += workspacePrompt(workspace)
	}

	if opts.WriteMCPConfig {
		cfg, path, err := a.loader.WriteTempConfig(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to write mcp config for %s: %w", ref, err)
		}
		act.MCPConfig, act.MCPConfigPath = cfg, path
	} else {
		act.MCPConfig, _ = a.loader.Build(doc)
	}

	a.logger.Info("Activated profile",
		zap.String("profile", ref),
		zap.Int("variables", len(values)),
		zap.String("context_mode", act.ContextMode),
		zap.Strings("servers", act.MCPConfig.ServerNames()),
		zap.String("mcp_config", act.MCPConfigPath))
	return act, nil
}

// applyContext adds the profile's context files to the system prompt,
// embedded inline or through a reference file depending on context_mode.
func (a *Activator) applyContext(act *Activation, sessionID string) error {
	files, err := a.registry.CollectPaths(act.Reference, profile.PathKindContextFiles)
	if err != nil {
		return fmt.Errorf("failed to collect context files for %s: %w", act.Reference, err)
	}
	if len(files) == 0 {
		return nil
	}

	mode := profile.ContextModeAuto
	if p, err := act.Profile.Profile(); err == nil {
		mode = p.EffectiveContextMode()
	} else {
		a.logger.Warn("Failed to read context mode, using auto",
			zap.String("profile", act.Reference),
			zap.Error(err))
	}

	act.ContextFiles = files
	act.ContextMode = ContextMode(mode, files, a.threshold, a.logger)

	if act.ContextMode == profile.ContextModeEmbedded {
		act.SystemPrompt += "\n\nReference materials:\n" + EmbedContext(files, a.logger)
		return nil
	}

	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	path, err := WriteContextFile(a.contextDir, sessionID, files, a.logger)
	if err != nil {
		return fmt.Errorf("failed to write context file for %s: %w", act.Reference, err)
	}
	act.ContextFilePath = path
	act.SystemPrompt += "\n\n" + readInstruction(path)
	return nil
}

// collectVariables fills declared variables from the supplied values, then
// their defaults. Workspace values override everything.
func collectVariables(name string, declared []profile.TemplateVariable, opts Options) (map[string]string, error) {
	values := make(map[string]string, len(declared))
	var missing []profile.TemplateVariable
	for _, v := range declared {
		if value, ok := opts.Variables[v.Name]; ok && value != "" {
			values[v.Name] = value
			continue
		}
		if v.Default != nil {
			values[v.Name] = *v.Default
			continue
		}
		if v.Required {
			missing = append(missing, v)
		}
	}

	// Undeclared values are kept; they may still be referenced by the prompt.
	for k, v := range opts.Variables {
		if _, ok := values[k]; !ok && v != "" {
			values[k] = v
		}
	}
	for k, v := range opts.WorkspaceVariables {
		values[k] = v
	}

	if len(missing) > 0 {
		var unresolved []profile.TemplateVariable
		for _, v := range missing {
			if _, ok := values[v.Name]; !ok {
				unresolved = append(unresolved, v)
			}
		}
		if len(unresolved) > 0 {
			sort.Slice(unresolved, func(i, j int) bool { return unresolved[i].Name < unresolved[j].Name })
			return nil, &MissingVariablesError{Profile: name, Variables: unresolved}
		}
	}
	return values, nil
}

var renderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Render replaces {{name}} with values[name]. Unknown names are left as is.
func Render(text string, values map[string]string) string {
	return renderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := renderPattern.FindStringSubmatch(match)[1]
		if value, ok := values[name]; ok {
			return value
		}
		return match
	})
}
