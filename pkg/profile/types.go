// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package profile discovers, validates, and resolves hierarchical agent
// profiles. A profile is a YAML document describing a system prompt, a tool
// allowlist, context files and MCP server config fragments. Profiles may
// extend one or more parents; the resolved profile is the parents folded
// together in order with the child merged on top.
package profile

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known profile keys.
const (
	KeyProfileName      = "profile_name"
	KeyExtends          = "extends"
	KeyDescription      = "description"
	KeyVersion          = "version"
	KeyAuthor           = "author"
	KeySystemPrompt     = "system_prompt"
	KeySystemPromptFile = "system_prompt_file"
	KeyTools            = "tools"
	KeyContextFiles     = "context_files"
	KeyContextMode      = "context_mode"
	KeyMCPConfigFiles   = "mcp_config_files"
	KeyVariables        = "variables"
	KeyWelcomeMessage   = "welcome_message"
	KeyTags             = "tags"
)

// Context modes accepted in context_mode.
const (
	ContextModeEmbedded   = "embedded"
	ContextModeReferenced = "referenced"
	ContextModeAuto       = "auto"
)

// Profile errors
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrFileNotFound       = errors.New("file not found")
	ErrCircularDependency = errors.New("circular dependency detected in profile inheritance")
	ErrMalformedSource    = errors.New("malformed profile source")
	ErrInvalidProfile     = errors.New("invalid profile")
)

// CircularDependencyError reports an inheritance cycle. Chain holds the
// profile names in resolution order, ending with the name that closed the cycle.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(e.Chain, " -> "))
}

func (e *CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

// Document is a profile as decoded from YAML. Keys the engine does not know
// about are carried through merges untouched.
type Document map[string]interface{}

// Name returns profile_name, or "" when absent.
func (d Document) Name() string {
	return d.String(KeyProfileName)
}

// String returns the string value stored under key, or "".
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Has reports whether key is present with a non-nil value.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Extends returns the parent references in declaration order. A single
// string is treated as a one-element list.
func (d Document) Extends() []string {
	return stringList(d[KeyExtends])
}

// StringList returns the string elements of the list stored under key.
// Non-string elements are skipped; a bare string yields a one-element list.
func (d Document) StringList(key string) []string {
	return stringList(d[key])
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(deepCopyMap(d))
}

// Profile decodes the document into its typed view.
func (d Document) Profile() (*Profile, error) {
	data, err := yaml.Marshal(map[string]interface{}(d))
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSource, err.Error())
	}
	// variables is a declaration list on disk but becomes a mapping once
	// workspace values are injected, so it is decoded by hand.
	p.Variables = DeclaredVariables(d)
	delete(p.Extra, KeyVariables)
	return &p, nil
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// NameList is a YAML field that accepts either a single name or a list of names.
type NameList []string

// UnmarshalYAML accepts a scalar or a sequence.
func (n *NameList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "" {
			*n = nil
			return nil
		}
		*n = NameList{value.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*n = names
		return nil
	}
	return fmt.Errorf("extends must be a string or a list of strings (line %d)", value.Line)
}

// Profile is the typed view of a profile document. Unknown keys land in Extra.
type Profile struct {
	Name             string                 `yaml:"profile_name"`
	Extends          NameList               `yaml:"extends,omitempty"`
	Description      string                 `yaml:"description,omitempty"`
	Version          string                 `yaml:"version,omitempty"`
	Author           string                 `yaml:"author,omitempty"`
	SystemPrompt     string                 `yaml:"system_prompt,omitempty"`
	SystemPromptFile string                 `yaml:"system_prompt_file,omitempty"`
	Tools            []string               `yaml:"tools,omitempty"`
	ContextFiles     []string               `yaml:"context_files,omitempty"`
	ContextMode      string                 `yaml:"context_mode,omitempty"`
	MCPConfigFiles   []string               `yaml:"mcp_config_files,omitempty"`
	Variables        []TemplateVariable     `yaml:"-"`
	WelcomeMessage   string                 `yaml:"welcome_message,omitempty"`
	Tags             []string               `yaml:"tags,omitempty"`
	Extra            map[string]interface{} `yaml:",inline"`
}

// EffectiveContextMode returns the context mode, defaulting to auto.
func (p *Profile) EffectiveContextMode() string {
	if p.ContextMode == "" {
		return ContextModeAuto
	}
	return p.ContextMode
}

// TemplateVariable is a value the user supplies when activating a profile.
type TemplateVariable struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Required    bool    `yaml:"required" json:"required"`
	Default     *string `yaml:"default,omitempty" json:"default,omitempty"`
}

// UnmarshalYAML defaults Required to true.
func (v *TemplateVariable) UnmarshalYAML(value *yaml.Node) error {
	type rawVariable TemplateVariable
	raw := rawVariable{Required: true}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*v = TemplateVariable(raw)
	return nil
}

// DeclaredVariables returns the variables declared in the document's
// variables list. Entries without a name are skipped.
func DeclaredVariables(doc Document) []TemplateVariable {
	items, ok := doc[KeyVariables].([]interface{})
	if !ok {
		return nil
	}
	vars := make([]TemplateVariable, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			continue
		}
		tv := TemplateVariable{Name: name, Required: true}
		tv.Description, _ = m["description"].(string)
		if req, ok := m["required"].(bool); ok {
			tv.Required = req
		}
		if def, ok := m["default"]; ok && def != nil {
			s := fmt.Sprint(def)
			tv.Default = &s
		}
		vars = append(vars, tv)
	}
	return vars
}

// Location identifies which root a profile was discovered in.
type Location string

const (
	LocationPackage Location = "package"
	LocationProject Location = "project"
	LocationUser    Location = "user"
)

// RegistryEntry is the index record for one discovered profile.
type RegistryEntry struct {
	Reference   string   `json:"reference" yaml:"reference"`
	Path        string   `json:"path" yaml:"path"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Location    Location `json:"location" yaml:"location"`
	Root        string   `json:"root" yaml:"root"`
}
