// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memorySource resolves profiles from an in-memory map.
type memorySource struct {
	docs     map[string]Document
	files    map[string]string
	resolver *InheritanceResolver
}

func newMemorySource(t *testing.T, docs map[string]Document) *memorySource {
	src := &memorySource{docs: docs, files: map[string]string{}}
	src.resolver = newInheritanceResolver(src, zaptest.NewLogger(t))
	return src
}

func (m *memorySource) resolveRef(ref string, chain []string) (Document, error) {
	doc, ok := m.docs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, ref)
	}
	return m.resolver.Resolve(ref, doc, chain)
}

func (m *memorySource) promptFileContent(doc Document) (string, bool) {
	content, ok := m.files[doc.String(KeySystemPromptFile)]
	return content, ok
}

func TestInheritanceResolver_NoParents(t *testing.T) {
	src := newMemorySource(t, nil)
	doc := Document{"profile_name": "solo", "tools": []interface{}{"a"}}

	resolved, err := src.resolver.Resolve("", doc, nil)
	require.NoError(t, err)
	assert.Equal(t, doc, resolved)

	resolved["tools"] = append(resolved["tools"].([]interface{}), "b")
	assert.Equal(t, []interface{}{"a"}, doc["tools"], "input must not be mutated")
}

func TestInheritanceResolver_OrderAndOverride(t *testing.T) {
	src := newMemorySource(t, map[string]Document{
		"first":  {"profile_name": "first", "context_mode": "embedded", "tools": []interface{}{"x"}},
		"second": {"profile_name": "second", "context_mode": "referenced", "tools": []interface{}{"y", "x"}},
	})
	child := Document{
		"profile_name": "child",
		"extends":      []interface{}{"first", "second"},
		"tools":        []interface{}{"z"},
	}

	resolved, err := src.resolver.Resolve("child", child, nil)
	require.NoError(t, err)
	assert.Equal(t, "referenced", resolved["context_mode"], "later parent wins")
	assert.Equal(t, []interface{}{"x", "y", "z"}, resolved["tools"])
	assert.Equal(t, "child", resolved.Name())
}

func TestInheritanceResolver_ChainNotModified(t *testing.T) {
	src := newMemorySource(t, map[string]Document{
		"parent": {"profile_name": "parent", "system_prompt": "P"},
	})
	chain := make([]string, 1, 4)
	chain[0] = "outer"

	_, err := src.resolver.Resolve("child", Document{"profile_name": "child", "extends": "parent"}, chain)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer"}, chain)
	assert.Equal(t, []string{"outer", ""}, chain[:2], "backing array untouched")
}

func TestInheritanceResolver_CycleInCallerChain(t *testing.T) {
	src := newMemorySource(t, nil)

	_, err := src.resolver.Resolve("", Document{"profile_name": "loop"}, []string{"top", "loop"})
	var cycle *CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"top", "loop", "loop"}, cycle.Chain)
}

func TestInheritanceResolver_ParentPromptFromFile(t *testing.T) {
	src := newMemorySource(t, map[string]Document{
		"filed": {"profile_name": "filed", "system_prompt_file": "prompts/filed.md"},
	})
	src.files["prompts/filed.md"] = "FROM FILE"

	resolved, err := src.resolver.Resolve("child", Document{
		"profile_name":  "child",
		"extends":       "filed",
		"system_prompt": "{{parent_system_prompt}} + {{parent:ghost}}.",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "FROM FILE + .", resolved["system_prompt"])
}
