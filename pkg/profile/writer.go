// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrProfileExists is returned by Create when the target file exists and
// overwriting was not requested.
var ErrProfileExists = errors.New("profile file already exists")

// literalThreshold is the length above which prompt-like fields are written
// as literal blocks even without newlines.
const literalThreshold = 80

// keyOrder is the order well-known keys are written in. Other keys follow
// in alphabetical order.
var keyOrder = []string{
	KeyProfileName,
	KeyDescription,
	KeyVersion,
	KeyAuthor,
	KeyExtends,
	KeySystemPrompt,
	KeySystemPromptFile,
	KeyTools,
	KeyContextFiles,
	KeyContextMode,
	KeyMCPConfigFiles,
	KeyVariables,
	KeyWelcomeMessage,
	KeyTags,
}

var literalKeys = map[string]bool{
	KeySystemPrompt:   true,
	KeyWelcomeMessage: true,
}

// CreateOptions controls where Create writes a profile.
type CreateOptions struct {
	// Path overrides the default location under the user root.
	Path string
	// Overwrite replaces an existing file.
	Overwrite bool
}

// Create validates doc, writes it as YAML and refreshes the registry. By
// default the file goes to <user root>/<profile_name>.yaml; a nested name
// such as "team/reviewer" is written to team/reviewer.yaml with
// profile_name "reviewer", so that it is indexed under the requested
// reference. It returns the path written.
func (r *Registry) Create(doc Document, opts CreateOptions) (string, error) {
	doc = doc.Clone()
	name := doc.Name()

	path := opts.Path
	if path == "" {
		if r.roots.User == "" {
			return "", fmt.Errorf("no user profiles directory configured")
		}
		parts := strings.Split(name, "/")
		if len(parts) > 1 {
			doc[KeyProfileName] = parts[len(parts)-1]
		}
		path = filepath.Join(append([]string{r.roots.User}, parts...)...) + ".yaml"
	}

	if err := ValidateProfile(doc); err != nil {
		r.logger.Error("Validation error for new profile", zap.String("profile", name), zap.Error(err))
		return "", err
	}

	if !opts.Overwrite && exists(path) {
		return "", fmt.Errorf("%w: %s", ErrProfileExists, path)
	}

	data, err := MarshalDocument(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write profile: %w", err)
	}

	r.Refresh()

	r.logger.Info("Created profile", zap.String("profile", name), zap.String("file", path))
	return path, nil
}

// MarshalDocument encodes doc as YAML with well-known keys first. Long or
// multi-line system_prompt and welcome_message values use literal block style.
func MarshalDocument(doc Document) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	for _, key := range orderedKeys(doc) {
		value, err := valueNode(key, doc[key])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return buf.Bytes(), nil
}

func orderedKeys(doc Document) []string {
	keys := make([]string, 0, len(doc))
	known := make(map[string]bool, len(keyOrder))
	for _, key := range keyOrder {
		known[key] = true
		if _, ok := doc[key]; ok {
			keys = append(keys, key)
		}
	}

	var rest []string
	for key := range doc {
		if !known[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func valueNode(key string, value interface{}) (*yaml.Node, error) {
	if s, ok := value.(string); ok && literalKeys[key] && (strings.Contains(s, "\n") || len(s) > literalThreshold) {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s, Style: yaml.LiteralStyle}, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	return node, nil
}
