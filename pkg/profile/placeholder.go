// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Reserved placeholders
const (
	ParentPromptPlaceholder = "{{parent_system_prompt}}"
	parentRefPrefix         = "parent:"
	parentPromptVariable    = "parent_system_prompt"
)

var (
	parentRefPattern = regexp.MustCompile(`\{\{parent:(.*?)\}\}`)
	variablePattern  = regexp.MustCompile(`\{\{(.*?)\}\}`)
)

// promptSource supplies resolved profiles and prompt file contents to the
// placeholder engine. The chain is the in-progress resolution path.
type promptSource interface {
	resolveRef(ref string, chain []string) (Document, error)
	promptFileContent(doc Document) (string, bool)
}

// PlaceholderEngine expands parent-content placeholders in system prompts.
type PlaceholderEngine struct {
	source promptSource
	logger *zap.Logger
}

func newPlaceholderEngine(source promptSource, logger *zap.Logger) *PlaceholderEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlaceholderEngine{source: source, logger: logger}
}

// Expand replaces {{parent_system_prompt}} with the prompts of parentRefs
// joined by a blank line, then each {{parent:<name>}} with that profile's
// prompt. Placeholders with no content are removed. Only inheritance cycles
// are reported as errors.
func (e *PlaceholderEngine) Expand(systemPrompt string, parentRefs []string, child Document, chain []string) (string, error) {
	if systemPrompt == "" {
		return systemPrompt, nil
	}

	if strings.Contains(systemPrompt, ParentPromptPlaceholder) {
		var prompts []string
		for _, ref := range parentRefs {
			content, ok, err := e.promptOf(ref, chain)
			if err != nil {
				return "", err
			}
			if ok {
				prompts = append(prompts, content)
			}
		}
		systemPrompt = strings.ReplaceAll(systemPrompt, ParentPromptPlaceholder, strings.Join(prompts, "\n\n"))
	}

	seen := make(map[string]bool)
	for _, match := range parentRefPattern.FindAllStringSubmatch(systemPrompt, -1) {
		name := match[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		content, ok, err := e.promptOf(name, chain)
		if err != nil {
			return "", err
		}
		if !ok {
			e.logger.Debug("Removing unresolved parent placeholder",
				zap.String("profile", child.Name()),
				zap.String("parent", name))
		}
		systemPrompt = strings.ReplaceAll(systemPrompt, "{{"+parentRefPrefix+name+"}}", content)
	}

	return systemPrompt, nil
}

// promptOf returns the system prompt of ref, falling back to the content of
// its system_prompt_file.
func (e *PlaceholderEngine) promptOf(ref string, chain []string) (string, bool, error) {
	doc, err := e.source.resolveRef(ref, chain)
	if err != nil {
		if errors.Is(err, ErrCircularDependency) {
			return "", false, err
		}
		return "", false, nil
	}
	if doc.Has(KeySystemPrompt) {
		return doc.String(KeySystemPrompt), true, nil
	}
	if doc.Has(KeySystemPromptFile) {
		content, ok := e.source.promptFileContent(doc)
		if ok && content != "" {
			return content, true, nil
		}
	}
	return "", false, nil
}

// ExtractVariables scans text for {{name}} tokens and appends a required
// variable for every name not already declared. Reserved parent placeholders
// are skipped. Order follows first appearance in text.
func ExtractVariables(text string, declared []TemplateVariable) []TemplateVariable {
	if text == "" {
		return declared
	}

	known := make(map[string]bool, len(declared))
	for _, v := range declared {
		known[v.Name] = true
	}

	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if name == parentPromptVariable || strings.HasPrefix(name, parentRefPrefix) {
			continue
		}
		if known[name] {
			continue
		}
		known[name] = true
		declared = append(declared, TemplateVariable{
			Name:        name,
			Description: "Value for " + name,
			Required:    true,
		})
	}
	return declared
}
