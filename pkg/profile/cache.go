// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"fmt"
	"sync"
)

// Cache holds resolved profiles, raw profile documents and referenced file
// contents for one registry. Entries live until Invalidate; there is no TTL
// because profiles only change through Refresh.
//
// Documents are copied on the way in and on the way out, so callers may
// mutate what they receive.
//
// Every Invalidate starts a new generation. Puts carry the generation the
// caller observed before loading, and puts from an older generation are
// dropped, so a load racing with Invalidate cannot leave stale entries.
//
// Example:
//
//	cache := profile.NewCache()
//	reg, _ := profile.NewRegistry(profile.RegistryConfig{Roots: roots, Cache: cache})
//	_, _ = reg.Get("base/coder", profile.GetOptions{Resolve: true})
//	hits, misses := cache.Stats()
//
// Writers follow the same pattern as the registry:
//
//	gen := cache.Generation()
//	doc := load()
//	cache.PutRaw(gen, path, doc)
type Cache struct {
	mu       sync.RWMutex
	resolved map[string]Document // reference:resolve -> document
	raw      map[string]Document // file path -> document
	files    map[string]string   // path:relativeTo -> content
	gen      uint64

	// Metrics
	hits   uint64
	misses uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		resolved: make(map[string]Document),
		raw:      make(map[string]Document),
		files:    make(map[string]string),
	}
}

// Resolved returns a copy of the cached document for ref.
func (c *Cache) Resolved(ref string, resolve bool) (Document, bool) {
	return c.getDoc(bucketResolved, resolvedKey(ref, resolve))
}

// PutResolved stores a copy of doc for ref unless gen is stale.
func (c *Cache) PutResolved(gen uint64, ref string, resolve bool, doc Document) bool {
	return c.putDoc(gen, bucketResolved, resolvedKey(ref, resolve), doc)
}

// Raw returns a copy of the cached raw document loaded from path.
func (c *Cache) Raw(path string) (Document, bool) {
	return c.getDoc(bucketRaw, path)
}

// PutRaw stores a copy of the raw document loaded from path unless gen is stale.
func (c *Cache) PutRaw(gen uint64, path string, doc Document) bool {
	return c.putDoc(gen, bucketRaw, path, doc)
}

// File returns cached file content.
func (c *Cache) File(path, relativeTo string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	content, ok := c.files[fileKey(path, relativeTo)]
	c.record(ok)
	return content, ok
}

// PutFile caches file content unless gen is stale. Only successful reads
// should be stored.
func (c *Cache) PutFile(gen uint64, path, relativeTo, content string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.files[fileKey(path, relativeTo)] = content
	return true
}

// Generation returns the current generation. Read it before loading
// anything that will be put.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Invalidate clears every entry and starts a new generation.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.resolved = make(map[string]Document)
	c.raw = make(map[string]Document)
	c.files = make(map[string]string)
}

// Len returns the number of cached resolved documents, raw documents and files.
func (c *Cache) Len() (resolved, raw, files int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.resolved), len(c.raw), len(c.files)
}

// Stats returns cache hit/miss statistics.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

type bucket int

const (
	bucketResolved bucket = iota
	bucketRaw
)

// docs returns the map for b. Caller holds mu.
func (c *Cache) docs(b bucket) map[string]Document {
	if b == bucketRaw {
		return c.raw
	}
	return c.resolved
}

func (c *Cache) getDoc(b bucket, key string) (Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs(b)[key]
	c.record(ok)
	if !ok {
		return nil, false
	}
	return doc.Clone(), true
}

func (c *Cache) putDoc(gen uint64, b bucket, key string, doc Document) bool {
	clone := doc.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.docs(b)[key] = clone
	return true
}

// record updates hit/miss counters. Caller holds mu.
func (c *Cache) record(hit bool) {
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

func resolvedKey(ref string, resolve bool) string {
	return fmt.Sprintf("%s:%t", ref, resolve)
}

func fileKey(path, relativeTo string) string {
	return path + "\x00" + relativeTo
}
