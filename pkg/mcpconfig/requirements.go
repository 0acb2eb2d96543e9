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
	"errors"
	"sort"
	"time"

	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
)

// Config references that mark a dependency on a companion server.
const (
	ProfileServerConfig  = "configs/profile_mcp_server.json"
	WorkflowServerConfig = "configs/workflow_orchestrator.mcp-servers.json"
)

// ProfileSource resolves profiles. *profile.Registry implements it.
type ProfileSource interface {
	Get(ref string, opts profile.GetOptions) (profile.Document, error)
	InheritanceChain(ref string) []string
}

// Requirements reports which companion servers a profile depends on.
type Requirements struct {
	Profile          string        `json:"profile"`
	NeedsProfile     bool          `json:"needs_profile_server"`
	NeedsWorkflow    bool          `json:"needs_workflow_server"`
	ConfigFiles      []string      `json:"config_files"`
	InheritanceChain []string      `json:"inheritance_chain"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Analyze inspects the resolved profile's mcp_config_files. An unknown
// profile needs nothing; any other failure assumes every companion server
// is needed.
func Analyze(source ProfileSource, ref string, logger *zap.Logger) Requirements {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	req := Requirements{Profile: ref}

	doc, err := source.Get(ref, profile.GetOptions{Resolve: true})
	if err != nil {
		if errors.Is(err, profile.ErrProfileNotFound) {
			logger.Warn("Profile not found, assuming no MCP requirements", zap.String("profile", ref))
		} else {
			logger.Warn("Failed to analyze MCP requirements", zap.String("profile", ref), zap.Error(err))
			req.NeedsProfile = true
			req.NeedsWorkflow = true
		}
		req.Elapsed = time.Since(start)
		return req
	}

	seen := make(map[string]bool)
	for _, file := range doc.StringList(profile.KeyMCPConfigFiles) {
		if seen[file] {
			continue
		}
		seen[file] = true
		req.ConfigFiles = append(req.ConfigFiles, file)
	}
	sort.Strings(req.ConfigFiles)

	req.NeedsProfile = seen[ProfileServerConfig]
	req.NeedsWorkflow = seen[WorkflowServerConfig]
	req.InheritanceChain = source.InheritanceChain(ref)
	req.Elapsed = time.Since(start)

	logger.Debug("Analyzed MCP requirements",
		zap.String("profile", ref),
		zap.Bool("profile_server", req.NeedsProfile),
		zap.Bool("workflow_server", req.NeedsWorkflow),
		zap.Duration("elapsed", req.Elapsed))
	return req
}

// ShouldStartProfileServer reports whether the profile companion server
// should start. disabled is the operator's explicit opt-out.
func (r Requirements) ShouldStartProfileServer(disabled bool) bool {
	return !disabled && r.NeedsProfile
}

// ShouldStartWorkflowServer reports whether the workflow companion server
// should start.
func (r Requirements) ShouldStartWorkflowServer(disabled bool) bool {
	return !disabled && r.NeedsWorkflow
}
