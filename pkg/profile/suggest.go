// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"github.com/sahilm/fuzzy"
)

const maxSuggestions = 3

// Suggest returns up to three indexed references that fuzzily match ref,
// best match first. Used for "did you mean" hints on unknown references.
func (r *Registry) Suggest(ref string) []string {
	if ref == "" {
		return nil
	}
	refs := r.References()
	matches := fuzzy.Find(ref, refs)

	suggestions := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if m.Str == ref {
			continue
		}
		suggestions = append(suggestions, m.Str)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}
