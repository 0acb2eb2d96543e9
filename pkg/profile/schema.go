// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package profile

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// profileSchema describes the structure of a profile document. Rules that
// span several fields are checked in Validate.
const profileSchema = `{
  "type": "object",
  "required": ["profile_name"],
  "properties": {
    "profile_name": {"type": "string", "minLength": 1},
    "extends": {
      "type": ["string", "array", "null"],
      "items": {"type": "string"}
    },
    "description": {"type": ["string", "null"]},
    "version": {"type": ["string", "number", "null"]},
    "author": {"type": ["string", "null"]},
    "system_prompt": {"type": ["string", "null"]},
    "system_prompt_file": {"type": ["string", "null"]},
    "tools": {"type": ["array", "null"], "items": {"type": "string"}},
    "context_files": {"type": ["array", "null"], "items": {"type": "string"}},
    "context_mode": {"type": "string", "enum": ["embedded", "referenced", "auto"]},
    "mcp_config_files": {"type": ["array", "null"], "items": {"type": "string"}},
    "variables": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["name", "description"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "required": {"type": "boolean"},
          "default": {"type": ["string", "number", "boolean", "null"]}
        }
      }
    },
    "welcome_message": {"type": ["string", "null"]},
    "tags": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

var profileSchemaLoader = gojsonschema.NewStringLoader(profileSchema)

// Violation is one problem found while validating a profile.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// ValidationError carries every violation found in a profile.
type ValidationError struct {
	Profile    string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidProfile, e.Profile, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidProfile
}

// Validate checks doc against the profile schema and returns every
// violation found. It never modifies doc.
func Validate(doc Document) []Violation {
	var violations []Violation

	result, err := gojsonschema.Validate(profileSchemaLoader, gojsonschema.NewGoLoader(map[string]interface{}(doc)))
	if err != nil {
		return []Violation{{Message: fmt.Sprintf("schema validation failed: %v", err)}}
	}
	for _, re := range result.Errors() {
		field := re.Field()
		if field == "(root)" {
			field = ""
		}
		violations = append(violations, Violation{Field: field, Message: re.Description()})
	}

	if !truthy(doc[KeyExtends]) && !truthy(doc[KeySystemPrompt]) && !truthy(doc[KeySystemPromptFile]) {
		violations = append(violations, Violation{
			Message: "either 'system_prompt', 'system_prompt_file', or 'extends' must be provided",
		})
	}

	return violations
}

// ValidateProfile returns a *ValidationError when doc has violations.
func ValidateProfile(doc Document) error {
	if violations := Validate(doc); len(violations) > 0 {
		return &ValidationError{Profile: doc.Name(), Violations: violations}
	}
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	return true
}
