// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package activation

import (
	"fmt"
	"os"
	"path/filepath"
)

// Variables derived from the workspace directory.
const (
	VarWorkspace     = "workspace"
	VarWorkspaceName = "workspace_name"
)

const workspaceSection = `

## Workspace Information
Your workspace directory is: %s
Use this workspace for reading previous work and saving your outputs.
When referencing files, you can use relative paths from your workspace.
`

// WorkspaceVariables returns the workspace variables for dir: its absolute
// path and its base name. dir must be an existing directory.
func WorkspaceVariables(dir string) (map[string]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid workspace: %s is not a directory", abs)
	}
	return map[string]string{
		VarWorkspace:     abs,
		VarWorkspaceName: filepath.Base(abs),
	}, nil
}

// workspacePrompt returns the prompt section describing workspace, or ""
// when the workspace is the current working directory.
func workspacePrompt(workspace string) string {
	if cwd, err := os.Getwd(); err == nil && cwd == workspace {
		return ""
	}
	return fmt.Sprintf(workspaceSection, workspace)
}
