// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Path kinds accepted by CollectPaths.
const (
	PathKindContextFiles   = KeyContextFiles
	PathKindMCPConfigFiles = KeyMCPConfigFiles
)

// ErrInvalidPathKind is returned by CollectPaths for unknown kinds.
var ErrInvalidPathKind = errors.New("invalid path kind")

// RegistryConfig configures the profile registry
type RegistryConfig struct {
	Roots  Roots
	Cache  *Cache      // Defaults to a fresh cache
	Logger *zap.Logger // Defaults to a no-op logger
}

// Registry indexes the profiles found under the package, project and user
// roots and serves resolved copies of them. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	roots    Roots
	entries  map[string]RegistryEntry
	cache    *Cache
	paths    *PathResolver
	resolver *InheritanceResolver
	logger   *zap.Logger
}

// GetOptions controls how Get builds the returned document.
type GetOptions struct {
	// Resolve flattens the extends chain.
	Resolve bool
	// WorkspaceVariables are merged into the variables mapping, overriding
	// values already present.
	WorkspaceVariables map[string]string
}

// NewRegistry creates a registry and runs the initial discovery. The user
// root is created when missing.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Cache == nil {
		config.Cache = NewCache()
	}

	if config.Roots.User != "" {
		if err := os.MkdirAll(config.Roots.User, 0755); err != nil {
			return nil, fmt.Errorf("failed to create user profiles directory: %w", err)
		}
	}

	r := &Registry{
		roots:   config.Roots,
		entries: make(map[string]RegistryEntry),
		cache:   config.Cache,
		paths:   NewPathResolver(config.Roots, config.Logger),
		logger:  config.Logger,
	}
	r.resolver = newInheritanceResolver(r, config.Logger)

	r.Refresh()
	return r, nil
}

// Roots returns the directories the registry scans.
func (r *Registry) Roots() Roots {
	return r.roots
}

// Paths returns the resolver used for file references.
func (r *Registry) Paths() *PathResolver {
	return r.paths
}

// Refresh rescans every root, replaces the index and clears all caches.
// It returns the number of profiles found.
func (r *Registry) Refresh() int {
	entries := r.Discover()

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	resolved, raw, files := r.cache.Len()
	hits, misses := r.cache.Stats()
	r.cache.Invalidate()

	r.logger.Debug("Refreshed profile registry",
		zap.Int("profiles", len(entries)),
		zap.Int("dropped_resolved", resolved),
		zap.Int("dropped_raw", raw),
		zap.Int("dropped_files", files),
		zap.Uint64("cache_hits", hits),
		zap.Uint64("cache_misses", misses))
	return len(entries)
}

// Discover scans the roots, lowest priority first, and returns the index of
// every profile found. A profile in a later root replaces one with the same
// reference from an earlier root. Unreadable or invalid files are logged
// and skipped. Discover does not touch the registry's current index.
func (r *Registry) Discover() map[string]RegistryEntry {
	entries := make(map[string]RegistryEntry)

	for _, root := range r.roots.discoveryOrder() {
		if root.dir == "" || !exists(root.dir) {
			continue
		}

		err := filepath.WalkDir(root.dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				r.logger.Warn("Failed to access path during discovery",
					zap.String("path", path),
					zap.Error(err))
				return nil
			}
			if d.IsDir() || !isYAMLFile(path) {
				return nil
			}

			entry, err := r.loadEntry(root, path)
			if err != nil {
				r.logger.Warn("Skipping profile", zap.String("file", path), zap.Error(err))
				return nil
			}
			entries[entry.Reference] = entry
			r.logger.Debug("Discovered profile",
				zap.String("reference", entry.Reference),
				zap.String("file", path))
			return nil
		})
		if err != nil {
			r.logger.Error("Failed to scan profile root", zap.String("root", root.dir), zap.Error(err))
		}
	}

	r.logger.Info("Discovered profiles", zap.Int("count", len(entries)))
	return entries
}

func (r *Registry) loadEntry(root rootDir, path string) (RegistryEntry, error) {
	doc, err := readDocument(path)
	if err != nil {
		return RegistryEntry{}, err
	}

	name := doc.Name()
	if name == "" {
		return RegistryEntry{}, fmt.Errorf("%w: missing profile_name", ErrMalformedSource)
	}

	rel, err := filepath.Rel(root.dir, filepath.Dir(path))
	if err != nil {
		return RegistryEntry{}, fmt.Errorf("failed to compute reference: %w", err)
	}
	ref := name
	if rel != "." {
		ref = filepath.ToSlash(rel) + "/" + name
	}

	return RegistryEntry{
		Reference:   ref,
		Path:        path,
		Name:        name,
		Description: doc.String(KeyDescription),
		Tags:        doc.StringList(KeyTags),
		Location:    root.location,
		Root:        root.dir,
	}, nil
}

// readDocument parses a profile file into a string-keyed document.
func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return parseDocument(data)
}

func parseDocument(data []byte) (Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedSource, err.Error())
	}
	m, ok := normalizeValue(raw).(map[string]interface{})
	if !ok || len(m) == 0 {
		return nil, fmt.Errorf("%w: profile must be a non-empty mapping", ErrMalformedSource)
	}
	return Document(m), nil
}

func isYAMLFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// Get returns the profile registered under ref. The returned document is a
// copy the caller owns. Validation problems are logged but do not prevent
// the profile from loading.
func (r *Registry) Get(ref string, opts GetOptions) (Document, error) {
	var (
		doc Document
		err error
	)
	if opts.Resolve {
		doc, err = r.resolveRef(ref, nil)
	} else {
		doc, err = r.load(ref, false, nil)
	}
	if err != nil {
		return nil, err
	}

	if len(opts.WorkspaceVariables) > 0 {
		doc = injectWorkspaceVariables(doc, opts.WorkspaceVariables)
		r.logger.Debug("Injected workspace variables",
			zap.String("profile", ref),
			zap.Int("count", len(opts.WorkspaceVariables)))
	}
	return doc, nil
}

// resolveRef returns the resolved profile for ref, continuing the
// resolution chain of the caller.
func (r *Registry) resolveRef(ref string, chain []string) (Document, error) {
	return r.load(ref, true, chain)
}

func (r *Registry) load(ref string, resolve bool, chain []string) (Document, error) {
	gen := r.cache.Generation()
	if doc, ok := r.cache.Resolved(ref, resolve); ok {
		return doc, nil
	}

	entry, ok := r.Entry(ref)
	if !ok {
		r.logger.Warn("Profile not found", zap.String("profile", ref))
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, ref)
	}

	doc, ok := r.cache.Raw(entry.Path)
	if !ok {
		var err error
		doc, err = readDocument(entry.Path)
		if err != nil {
			r.logger.Error("Failed to load profile",
				zap.String("profile", ref),
				zap.String("file", entry.Path),
				zap.Error(err))
			return nil, err
		}
		r.cache.PutRaw(gen, entry.Path, doc)
	}

	if violations := Validate(doc); len(violations) > 0 {
		r.logger.Error("Profile validation error",
			zap.String("profile", ref),
			zap.Error(&ValidationError{Profile: doc.Name(), Violations: violations}))
	}

	if resolve && len(doc.Extends()) > 0 {
		resolved, err := r.resolver.Resolve(ref, doc, chain)
		if err != nil {
			return nil, err
		}
		doc = resolved
	}

	r.cache.PutResolved(gen, ref, resolve, doc)
	return doc, nil
}

// injectWorkspaceVariables merges vars into the document's variables. A
// mapping gets the values as keys. A declaration list gets the values as
// defaults of matching declarations, with new optional declarations
// appended for the rest.
func injectWorkspaceVariables(doc Document, vars map[string]string) Document {
	doc = doc.Clone()

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	switch existing := doc[KeyVariables].(type) {
	case []interface{}:
		matched := make(map[string]bool)
		for _, item := range existing {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			if value, ok := vars[name]; ok {
				m["default"] = value
				m["required"] = false
				matched[name] = true
			}
		}
		for _, name := range names {
			if matched[name] {
				continue
			}
			existing = append(existing, map[string]interface{}{
				"name":        name,
				"description": "Workspace variable " + name,
				"required":    false,
				"default":     vars[name],
			})
		}
		doc[KeyVariables] = existing
	case map[string]interface{}:
		for _, name := range names {
			existing[name] = vars[name]
		}
	default:
		m := make(map[string]interface{}, len(vars))
		for _, name := range names {
			m[name] = vars[name]
		}
		doc[KeyVariables] = m
	}
	return doc
}

// Entry returns the index record for ref.
func (r *Registry) Entry(ref string) (RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[ref]
	return entry, ok
}

// Count returns the number of indexed profiles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns every indexed profile sorted by reference.
func (r *Registry) List() []RegistryEntry {
	r.mu.RLock()
	list := make([]RegistryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		list = append(list, entry)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].Reference < list[j].Reference
	})
	return list
}

// References returns every indexed reference, sorted.
func (r *Registry) References() []string {
	list := r.List()
	refs := make([]string, len(list))
	for i, entry := range list {
		refs[i] = entry.Reference
	}
	return refs
}

// LocateByName finds the entry for a profile by its profile_name. The first
// reference, in sorted order, that equals name or ends with "/"+name wins.
func (r *Registry) LocateByName(name string) (RegistryEntry, bool) {
	if name == "" {
		return RegistryEntry{}, false
	}
	if entry, ok := r.Entry(name); ok {
		return entry, true
	}
	for _, entry := range r.List() {
		if strings.HasSuffix(entry.Reference, "/"+name) {
			return entry, true
		}
	}
	return RegistryEntry{}, false
}

// ProfilePath returns the file a document was loaded from, if it is indexed.
func (r *Registry) ProfilePath(doc Document) string {
	if entry, ok := r.LocateByName(doc.Name()); ok {
		return entry.Path
	}
	return ""
}

// LoadFileContent reads a file referenced by a profile. The path is
// resolved with the registry's PathResolver; successful reads are cached
// until the next Refresh.
func (r *Registry) LoadFileContent(path, relativeTo string) (string, bool) {
	gen := r.cache.Generation()
	if content, ok := r.cache.File(path, relativeTo); ok {
		return content, true
	}

	resolved, ok := r.paths.Resolve(path, relativeTo)
	if !ok {
		r.logger.Warn("File not found", zap.String("file", path))
		return "", false
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		r.logger.Error("Failed to read file", zap.String("file", resolved), zap.Error(err))
		return "", false
	}

	content := string(data)
	r.cache.PutFile(gen, path, relativeTo, content)
	return content, true
}

// promptFileContent loads doc's system_prompt_file, relative to the
// profile's own file when it is indexed.
func (r *Registry) promptFileContent(doc Document) (string, bool) {
	file := doc.String(KeySystemPromptFile)
	if file == "" {
		return "", false
	}
	return r.LoadFileContent(file, r.ProfilePath(doc))
}

// SystemPrompt returns doc's system prompt, or the content of its
// system_prompt_file when no prompt is inlined.
func (r *Registry) SystemPrompt(doc Document) string {
	if prompt := doc.String(KeySystemPrompt); prompt != "" {
		return prompt
	}
	content, _ := r.promptFileContent(doc)
	return content
}

// Variables returns the declared variables of doc followed by any
// {{name}} tokens found in its system prompt and prompt file.
func (r *Registry) Variables(doc Document) []TemplateVariable {
	vars := DeclaredVariables(doc)
	vars = ExtractVariables(doc.String(KeySystemPrompt), vars)
	if content, ok := r.promptFileContent(doc); ok {
		vars = ExtractVariables(content, vars)
	}
	return vars
}

// MergeProfiles resolves base and each overlay and merges the overlays on
// top of base in order.
func (r *Registry) MergeProfiles(base string, overlays ...string) (Document, error) {
	merged, err := r.Get(base, GetOptions{Resolve: true})
	if err != nil {
		return nil, fmt.Errorf("base profile: %w", err)
	}
	for _, ref := range overlays {
		overlay, err := r.Get(ref, GetOptions{Resolve: true})
		if err != nil {
			return nil, fmt.Errorf("overlay profile: %w", err)
		}
		merged = Merge(merged, overlay)
	}
	return merged, nil
}

// CollectPaths resolves the context_files or mcp_config_files entries of
// the resolved profile ref to absolute paths. Entries that cannot be found
// are logged and skipped.
func (r *Registry) CollectPaths(ref, kind string) ([]string, error) {
	if kind != PathKindContextFiles && kind != PathKindMCPConfigFiles {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPathKind, kind)
	}

	doc, err := r.Get(ref, GetOptions{Resolve: true})
	if err != nil {
		return nil, err
	}

	profilePath := r.ProfilePath(doc)
	var resolved []string
	for _, p := range doc.StringList(kind) {
		abs, ok := r.paths.Resolve(p, profilePath)
		if !ok {
			r.logger.Warn("File not found for profile",
				zap.String("profile", ref),
				zap.String("file", p))
			continue
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}

// InheritanceChain returns ref followed by the parents it directly extends.
func (r *Registry) InheritanceChain(ref string) []string {
	chain := []string{ref}
	doc, err := r.Get(ref, GetOptions{})
	if err != nil {
		return chain
	}
	return append(chain, doc.Extends()...)
}
