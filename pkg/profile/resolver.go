// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"errors"

	"go.uber.org/zap"
)

// InheritanceResolver flattens a profile's extends chain into one document.
type InheritanceResolver struct {
	source       promptSource
	placeholders *PlaceholderEngine
	logger       *zap.Logger
}

func newInheritanceResolver(source promptSource, logger *zap.Logger) *InheritanceResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InheritanceResolver{
		source:       source,
		placeholders: newPlaceholderEngine(source, logger),
		logger:       logger,
	}
}

// Resolve merges every parent of doc, in extends order, and then doc itself.
// ref identifies doc in the resolution chain; it falls back to profile_name.
// chain lists the references already being resolved by the caller and is
// never modified. A reference that reappears yields a
// *CircularDependencyError. Missing parents are logged and skipped.
func (r *InheritanceResolver) Resolve(ref string, doc Document, chain []string) (Document, error) {
	if ref == "" {
		ref = doc.Name()
	}

	for _, seen := range chain {
		if seen == ref {
			cycle := make([]string, 0, len(chain)+1)
			cycle = append(cycle, chain...)
			return nil, &CircularDependencyError{Chain: append(cycle, ref)}
		}
	}

	extends := doc.Extends()
	if len(extends) == 0 {
		return doc.Clone(), nil
	}

	next := make([]string, 0, len(chain)+1)
	next = append(next, chain...)
	next = append(next, ref)

	resolved := Document{}
	for _, parentRef := range extends {
		parent, err := r.source.resolveRef(parentRef, next)
		if err != nil {
			if errors.Is(err, ErrCircularDependency) {
				return nil, err
			}
			r.logger.Warn("Parent profile not found",
				zap.String("profile", ref),
				zap.String("parent", parentRef),
				zap.Error(err))
			continue
		}
		resolved = Merge(resolved, parent)
	}
	resolved = Merge(resolved, doc)

	if prompt, ok := resolved[KeySystemPrompt].(string); ok {
		expanded, err := r.placeholders.Expand(prompt, extends, doc, next)
		if err != nil {
			return nil, err
		}
		resolved[KeySystemPrompt] = expanded
	}

	return resolved, nil
}
