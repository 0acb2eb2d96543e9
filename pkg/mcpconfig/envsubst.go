// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package mcpconfig

import (
	"os"
	"regexp"

	"go.uber.org/zap"
)

// envPattern matches ${NAME} and ${NAME:-default}. Bare $NAME is left alone.
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-(.*?))?\}`)

// EnvSubstitutor replaces environment references in configuration values.
type EnvSubstitutor struct {
	lookup func(string) (string, bool)
	logger *zap.Logger
}

// NewEnvSubstitutor creates a substitutor reading the process environment.
func NewEnvSubstitutor(logger *zap.Logger) *EnvSubstitutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnvSubstitutor{lookup: os.LookupEnv, logger: logger}
}

// WithLookup replaces the environment lookup.
func (s *EnvSubstitutor) WithLookup(lookup func(string) (string, bool)) *EnvSubstitutor {
	s.lookup = lookup
	return s
}

// Substitute returns a copy of cfg with every string value expanded.
// cfg itself is not modified.
func (s *EnvSubstitutor) Substitute(cfg Config) Config {
	out, _ := s.value(map[string]interface{}(cfg)).(map[string]interface{})
	return Config(out)
}

// String expands the references in text. A set variable wins even when
// empty; otherwise a non-empty default is used; otherwise the reference
// becomes "" and a warning is logged.
func (s *EnvSubstitutor) String(text string) string {
	return envPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[2]

		if value, ok := s.lookup(name); ok {
			return value
		}
		if def != "" {
			return def
		}
		s.logger.Warn("Environment variable not found and no default provided",
			zap.String("variable", name))
		return ""
	})
}

func (s *EnvSubstitutor) value(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = s.value(item)
		}
		return out
	case Config:
		return s.value(map[string]interface{}(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = s.value(item)
		}
		return out
	case string:
		return s.String(t)
	}
	return v
}
