// Package disk reports filesystem usage and reclaims space: apt and
// journal cleanup, large/old file discovery and duplicate detection.
package disk

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/shell"
	"github.com/forgecli/forge/internal/term"
)

// Tools performs disk operations that need elevated access.
type Tools struct {
	runner shell.Runner
}

func NewTools() *Tools {
	return &Tools{runner: shell.Runner{Sudo: true}}
}

// DirEntry is one row of a directory usage analysis.
type DirEntry struct {
	Path   string
	SizeMB float64
}

// AnalyzeDir returns the immediate children of path sorted by size.
func (t *Tools) AnalyzeDir(ctx context.Context, path string) ([]DirEntry, error) {
	res := t.runner.Run(ctx, "du", "-x", "-B1", "--max-depth=1", path)
	if !res.Ok() && res.Stdout == "" {
		return nil, fmt.Errorf("du failed: %s", res.Stderr)
	}
	return ParseDU(res.Stdout, path), nil
}

// ParseDU parses `du -B1 --max-depth=1` output, dropping the total row.
func ParseDU(output, root string) []DirEntry {
	var entries []DirEntry
	for _, line := range strings.Split(output, "\n") {
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		size, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}
		path := strings.TrimSpace(fields[1])
		if path == root {
			continue
		}
		entries = append(entries, DirEntry{Path: path, SizeMB: size / (1024 * 1024)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SizeMB > entries[j].SizeMB })
	return entries
}

// CleanupStep is one reclaim action offered to the user.
type CleanupStep struct {
	Name    string
	Command []string
	Deep    bool // only offered in deep cleanup
}

// CleanupSteps lists the reclaim actions in execution order.
func CleanupSteps() []CleanupStep {
	return []CleanupStep{
		{Name: "Clean apt package cache", Command: []string{"apt-get", "clean"}},
		{Name: "Remove unused packages", Command: []string{"apt-get", "autoremove", "-y"}},
		{Name: "Vacuum journal to 100M", Command: []string{"journalctl", "--vacuum-size=100M"}},
		{Name: "Remove rotated logs", Command: []string{"find", "/var/log", "-name", "*.gz", "-type", "f", "-delete"}},
		{Name: "Clear old temp files", Command: []string{"find", "/tmp", "-type", "f", "-atime", "+10", "-delete"}, Deep: true},
		{Name: "Prune docker images and build cache", Command: []string{"docker", "system", "prune", "-af"}, Deep: true},
	}
}

// RunCleanup executes the selected steps with spinner feedback, and is
// tolerant of missing tools (docker absent, etc).
func (t *Tools) RunCleanup(ctx context.Context, deep bool) error {
	var steps []term.Step
	for _, c := range CleanupSteps() {
		if c.Deep && !deep {
			continue
		}
		cmd := c.Command
		steps = append(steps, term.Step{
			Name: c.Name,
			Run: func() (string, error) {
				if !shell.CommandExists(cmd[0]) {
					return "skipped: not installed", nil
				}
				res := t.runner.Run(ctx, cmd[0], cmd[1:]...)
				if !res.Ok() {
					return "", fmt.Errorf("%s", res.Stderr)
				}
				return "", nil
			},
		})
	}
	return term.RunSteps(steps)
}

// FileEntry is one file found by the large/old file scans.
type FileEntry struct {
	Path   string
	SizeMB float64
}

// LargeFiles finds files over minMB under root.
func (t *Tools) LargeFiles(ctx context.Context, root string, minMB int, limit int) ([]FileEntry, error) {
	res := t.runner.Run(ctx, "find", root, "-xdev", "-type", "f",
		"-size", fmt.Sprintf("+%dM", minMB), "-printf", "%s\t%p\n")
	if !res.Ok() && res.Stdout == "" {
		return nil, fmt.Errorf("find failed: %s", res.Stderr)
	}
	entries := ParseFindSizes(res.Stdout)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ParseFindSizes parses `find -printf "%s\t%p\n"` output, largest
// first.
func ParseFindSizes(output string) []FileEntry {
	var entries []FileEntry
	for _, line := range strings.Split(output, "\n") {
		size, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		bytes, err := strconv.ParseFloat(size, 64)
		if err != nil {
			continue
		}
		entries = append(entries, FileEntry{Path: path, SizeMB: bytes / (1024 * 1024)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].SizeMB > entries[j].SizeMB })
	return entries
}

// OldFiles finds files not modified within days under root.
func (t *Tools) OldFiles(ctx context.Context, root string, days, limit int) ([]string, error) {
	res := t.runner.Run(ctx, "find", root, "-xdev", "-type", "f",
		"-mtime", fmt.Sprintf("+%d", days))
	if !res.Ok() && res.Stdout == "" {
		return nil, fmt.Errorf("find failed: %s", res.Stderr)
	}
	if res.Stdout == "" {
		return nil, nil
	}
	files := strings.Split(res.Stdout, "\n")
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// DuplicateGroups runs fdupes and returns groups of identical files.
func (t *Tools) DuplicateGroups(ctx context.Context, root string) ([][]string, error) {
	if !shell.CommandExists("fdupes") {
		return nil, fmt.Errorf("fdupes is not installed (apt install fdupes)")
	}
	res := t.runner.Run(ctx, "fdupes", "-r", root)
	if !res.Ok() {
		return nil, fmt.Errorf("fdupes failed: %s", res.Stderr)
	}
	return ParseFdupes(res.Stdout), nil
}

// ParseFdupes splits fdupes output into groups separated by blank
// lines.
func ParseFdupes(output string) [][]string {
	var groups [][]string
	var cur []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(cur) > 1 {
				groups = append(groups, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 1 {
		groups = append(groups, cur)
	}
	return groups
}
