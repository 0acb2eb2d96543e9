// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package activation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/teradata-labs/aris/pkg/profile"
	"go.uber.org/zap"
)

// DefaultContextSizeThreshold is the total context file size above which
// auto mode switches from embedding to a reference file.
const DefaultContextSizeThreshold int64 = 10 * 1024

const (
	contextFilePrefix = "context_"
	contextFileSuffix = ".md"
)

var (
	contextTagPattern = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	sessionIDPattern  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// ContextMode picks embedded or referenced for mode. Auto compares the total
// size of files against threshold; any other unknown mode is referenced.
func ContextMode(mode string, files []string, threshold int64, logger *zap.Logger) string {
	switch mode {
	case profile.ContextModeEmbedded:
		return profile.ContextModeEmbedded
	case profile.ContextModeAuto, "":
		size := ContextSize(files, logger)
		if size > threshold {
			return profile.ContextModeReferenced
		}
		return profile.ContextModeEmbedded
	}
	return profile.ContextModeReferenced
}

// ContextSize returns the combined size of files in bytes. Files that
// cannot be read count as empty.
func ContextSize(files []string, logger *zap.Logger) int64 {
	if logger == nil {
		logger = zap.NewNop()
	}
	var total int64
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			logger.Warn("Failed to size context file", zap.String("file", file), zap.Error(err))
			continue
		}
		total += info.Size()
	}
	return total
}

// EmbedContext returns the content of files wrapped in <context_<name>> tags,
// ready to be appended to a system prompt. A file that cannot be read is
// replaced by a <context_error> block.
func EmbedContext(files []string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	var b strings.Builder
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Error("Failed to embed context file", zap.String("file", file), zap.Error(err))
			fmt.Fprintf(&b, "\n\n<context_error>\nFailed to include %s: %v\n</context_error>\n\n", file, err)
			continue
		}
		tag := contextTag(file)
		fmt.Fprintf(&b, "\n\n<context_%s>\n%s\n</context_%s>\n\n", tag, data, tag)
	}
	return b.String()
}

// WriteContextFile combines files into one markdown reference file in dir and
// returns its path. The name is context_<session>_<hash8>.md, where the hash
// covers each file's path, size and modification time, so an unchanged set
// of files reuses the existing reference file.
func WriteContextFile(dir, sessionID string, files []string, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create context directory: %w", err)
	}

	name := fmt.Sprintf("%s%s_%s%s", contextFilePrefix, sessionIDPattern.ReplaceAllString(sessionID, ""), contextHash(files)[:8], contextFileSuffix)
	path := filepath.Join(dir, name)
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := os.Stat(path); err == nil {
		logger.Debug("Reusing context file", zap.String("file", path))
		return path, nil
	}

	var b strings.Builder
	b.WriteString("# ARIS Context Reference\n\n")
	b.WriteString("This file contains reference materials assembled for this session.\n\n")
	for _, file := range files {
		heading := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Error("Failed to include context file", zap.String("file", file), zap.Error(err))
			fmt.Fprintf(&b, "\n\n## ERROR: Failed to include %s\n\nError: %v\n\n", file, err)
			continue
		}
		fmt.Fprintf(&b, "\n\n## %s\n\n%s\n\n---\n\n", heading, data)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return "", fmt.Errorf("failed to write context file: %w", err)
	}
	logger.Info("Created context reference file",
		zap.String("file", path),
		zap.Int("sources", len(files)))
	return path, nil
}

// CleanupContextFiles removes context reference files in dir older than
// maxAge and returns how many were removed. A missing dir is not an error.
func CleanupContextFiles(dir string, maxAge time.Duration, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read context directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, contextFilePrefix) || !strings.HasSuffix(name, contextFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			logger.Warn("Failed to remove old context file", zap.String("file", path), zap.Error(err))
			continue
		}
		logger.Debug("Removed old context file", zap.String("file", path))
		removed++
	}
	return removed, nil
}

// readInstruction tells the agent to read the reference file first.
func readInstruction(path string) string {
	return fmt.Sprintf(`
IMPORTANT: At the beginning of this session, you MUST read the reference file at:
%s

This file contains essential context and documentation required for this conversation.
Use the Read tool to access this file before responding to any user query.
`, path)
}

func contextTag(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return contextTagPattern.ReplaceAllString(name, "_")
}

func contextHash(files []string) string {
	parts := make([]string, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%d", file, info.ModTime().UnixNano(), info.Size()))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}
