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
// Package mcpconfig builds the MCP server configuration for a resolved
// profile by merging the config fragments it references.
package mcpconfig

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ServersKey is the top-level key holding server definitions.
const ServersKey = "mcpServers"

// Transports understood by ServerConfig.Validate.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// Config is a merged MCP configuration tree shaped {"mcpServers": {...}}.
// Keys other than mcpServers are preserved as found in the fragments.
type Config map[string]interface{}

// NewConfig returns an empty configuration.
func NewConfig() Config {
	return Config{ServersKey: map[string]interface{}{}}
}

// Servers returns the server definitions keyed by name.
func (c Config) Servers() map[string]interface{} {
	servers, _ := c[ServersKey].(map[string]interface{})
	return servers
}

// ServerNames returns the configured server names, sorted.
func (c Config) ServerNames() []string {
	servers := c.Servers()
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server decodes the named server definition.
func (c Config) Server(name string) (ServerConfig, error) {
	raw, ok := c.Servers()[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("server %s not configured", name)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("server %s: %w", name, err)
	}
	var server ServerConfig
	if err := json.Unmarshal(data, &server); err != nil {
		return ServerConfig{}, fmt.Errorf("server %s: %w", name, err)
	}
	return server, nil
}

// Validate checks every server definition.
func (c Config) Validate() error {
	var problems []string
	for _, name := range c.ServerNames() {
		server, err := c.Server(name)
		if err == nil {
			err = server.Validate()
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("server %s: %v", name, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid mcp config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ServerConfig is the typed view of one server definition.
type ServerConfig struct {
	// Type is the transport ("stdio", "sse" or "http"); empty means stdio
	Type string `json:"type,omitempty"`

	// Command is the executable to run for stdio transport
	Command string `json:"command,omitempty"`

	// Args are the command-line arguments for the command
	Args []string `json:"args,omitempty"`

	// Env are environment variables to set for the subprocess
	Env map[string]string `json:"env,omitempty"`

	// URL is the server URL (for SSE and HTTP transport)
	URL string `json:"url,omitempty"`

	// Headers are sent with every HTTP request
	Headers map[string]string `json:"headers,omitempty"`
}

// Transport returns the effective transport.
func (s ServerConfig) Transport() string {
	if s.Type == "" {
		return TransportStdio
	}
	return s.Type
}

// Validate checks the server configuration for errors.
func (s ServerConfig) Validate() error {
	switch s.Transport() {
	case TransportStdio:
		if s.Command == "" {
			return fmt.Errorf("command required for stdio transport")
		}
	case TransportHTTP, TransportSSE:
		if s.URL == "" {
			return fmt.Errorf("url required for http/sse transport")
		}
	default:
		return fmt.Errorf("invalid transport: %s (must be 'stdio', 'http', or 'sse')", s.Type)
	}
	return nil
}

// ServerSummary names a server and its declared type.
type ServerSummary struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Summaries lists every server with its type, "unknown" when undeclared.
func (c Config) Summaries() []ServerSummary {
	servers := c.Servers()
	summaries := make([]ServerSummary, 0, len(servers))
	for _, name := range c.ServerNames() {
		serverType := "unknown"
		if def, ok := servers[name].(map[string]interface{}); ok {
			if t, ok := def["type"].(string); ok && t != "" {
				serverType = t
			}
		}
		summaries = append(summaries, ServerSummary{Name: name, Type: serverType})
	}
	return summaries
}

// RequiredServers returns the servers named by tools shaped
// mcp__<server>__<tool>, sorted and without duplicates.
func RequiredServers(tools []string) []string {
	seen := make(map[string]bool)
	var servers []string
	for _, tool := range tools {
		if !strings.HasPrefix(tool, "mcp__") {
			continue
		}
		parts := strings.Split(tool, "__")
		if len(parts) < 3 || parts[1] == "" {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			servers = append(servers, parts[1])
		}
	}
	sort.Strings(servers)
	return servers
}

// MissingServers returns the servers required by tools that cfg does not define.
func MissingServers(cfg Config, tools []string) []string {
	servers := cfg.Servers()
	var missing []string
	for _, name := range RequiredServers(tools) {
		if _, ok := servers[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
