// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"fmt"
	"reflect"
)

// List merge directives. When the first element of an overlay list is one of
// these markers the list is merged with the corresponding strategy and the
// marker itself is dropped.
const (
	ReplaceDirective = "!REPLACE"
	PrependDirective = "!PREPEND"
)

type listDirective int

const (
	directiveAppend listDirective = iota
	directiveReplace
	directivePrepend
)

// decodeDirective splits an overlay list into its directive and the items
// that follow it.
func decodeDirective(list []interface{}) (listDirective, []interface{}) {
	if len(list) == 0 {
		return directiveAppend, list
	}
	if s, ok := list[0].(string); ok {
		switch s {
		case ReplaceDirective:
			return directiveReplace, list[1:]
		case PrependDirective:
			return directivePrepend, list[1:]
		}
	}
	return directiveAppend, list
}

// Merge combines overlay on top of base and returns a new document. Neither
// input is modified and the result shares no mutable values with them.
//
//   - profile_name and extends always take the overlay value
//   - keys missing from base are copied from overlay
//   - lists merge according to their directive, appending without
//     duplicates by default; an empty overlay list keeps base
//   - mappings merge recursively
//   - anything else is replaced by the overlay value
func Merge(base, overlay Document) Document {
	return Document(mergeMaps(base, overlay))
}

func mergeMaps(base, overlay map[string]interface{}) map[string]interface{} {
	result := deepCopyMap(base)
	if result == nil {
		result = make(map[string]interface{}, len(overlay))
	}

	for key, value := range overlay {
		if key == KeyProfileName || key == KeyExtends {
			result[key] = deepCopyValue(value)
			continue
		}

		existing, ok := result[key]
		if !ok {
			result[key] = deepCopyValue(value)
			continue
		}

		switch ov := value.(type) {
		case []interface{}:
			if bv, isList := existing.([]interface{}); isList {
				result[key] = mergeLists(bv, ov)
				continue
			}
		case map[string]interface{}:
			if bv, isMap := existing.(map[string]interface{}); isMap {
				result[key] = mergeMaps(bv, ov)
				continue
			}
		}
		result[key] = deepCopyValue(value)
	}

	return result
}

// mergeLists merges overlay into base. base is already owned by the caller.
func mergeLists(base, overlay []interface{}) []interface{} {
	directive, items := decodeDirective(overlay)

	switch directive {
	case directiveReplace:
		return deepCopyList(items)
	case directivePrepend:
		return appendUnique(deepCopyList(items), base)
	}

	if len(overlay) == 0 {
		return base
	}
	return appendUnique(base, overlay)
}

// appendUnique appends each item of extra to list unless an equal value is
// already present, preserving the order of both.
func appendUnique(list, extra []interface{}) []interface{} {
	for _, item := range extra {
		if !containsValue(list, item) {
			list = append(list, deepCopyValue(item))
		}
	}
	return list
}

func containsValue(list []interface{}, v interface{}) bool {
	for _, item := range list {
		if valuesEqual(item, v) {
			return true
		}
	}
	return false
}

// valuesEqual compares YAML/JSON values. Integers decoded by different
// codecs (int from YAML, float64 from JSON) compare by numeric value.
func valuesEqual(a, b interface{}) bool {
	if na, ok := toFloat(a); ok {
		if nb, ok := toFloat(b); ok {
			return na == nb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyList(l []interface{}) []interface{} {
	if l == nil {
		return nil
	}
	out := make([]interface{}, len(l))
	for i, v := range l {
		out[i] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case Document:
		return Document(deepCopyMap(t))
	case []interface{}:
		return deepCopyList(t)
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// MergeTrees merges overlay into base where later values win at every level.
// Unlike Merge, lists are replaced rather than combined. Used for MCP
// config fragments.
func MergeTrees(base, overlay map[string]interface{}) map[string]interface{} {
	result := deepCopyMap(base)
	if result == nil {
		result = make(map[string]interface{}, len(overlay))
	}
	for key, value := range overlay {
		if bv, ok := result[key].(map[string]interface{}); ok {
			if ov, ok := value.(map[string]interface{}); ok {
				result[key] = MergeTrees(bv, ov)
				continue
			}
		}
		result[key] = deepCopyValue(value)
	}
	return result
}

// normalizeValue converts decoded YAML into string-keyed maps all the way
// down. yaml.v3 yields map[string]interface{} for string keys but falls back
// to map[interface{}]interface{} for mixed keys.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, item := range t {
			t[k] = normalizeValue(item)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []interface{}:
		for i, item := range t {
			t[i] = normalizeValue(item)
		}
		return t
	}
	return v
}

// Normalize converts a decoded YAML tree to string-keyed maps in place.
func Normalize(v interface{}) interface{} {
	return normalizeValue(v)
}
