package security

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Baseline maps file paths to sha256 checksums for integrity checks.
type Baseline struct {
	Directory string            `json:"directory"`
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"`
}

// BaselineDiff is the result of comparing live files to a baseline.
type BaselineDiff struct {
	New      []string
	Deleted  []string
	Modified []string
}

// Clean reports whether nothing changed.
func (d BaselineDiff) Clean() bool {
	return len(d.New) == 0 && len(d.Deleted) == 0 && len(d.Modified) == 0
}

const baselineFile = "file_baseline.json"

// ParseChecksums reads sha256sum output into a path→checksum map.
func ParseChecksums(output string) map[string]string {
	files := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		sum, path, ok := strings.Cut(line, "  ")
		if !ok || sum == "" || path == "" {
			continue
		}
		files[strings.TrimSpace(path)] = sum
	}
	return files
}

// DiffBaseline compares current checksums against a baseline.
func DiffBaseline(baseline, current map[string]string) BaselineDiff {
	var diff BaselineDiff
	for path, sum := range current {
		old, ok := baseline[path]
		if !ok {
			diff.New = append(diff.New, path)
		} else if old != sum {
			diff.Modified = append(diff.Modified, path)
		}
	}
	for path := range baseline {
		if _, ok := current[path]; !ok {
			diff.Deleted = append(diff.Deleted, path)
		}
	}
	sort.Strings(diff.New)
	sort.Strings(diff.Deleted)
	sort.Strings(diff.Modified)
	return diff
}

func (s *Scanner) checksums(ctx context.Context, dir string) map[string]string {
	out := s.runner.Output(ctx, "sh", "-c",
		"find "+dir+" -type f -exec sha256sum {} + 2>/dev/null")
	return ParseChecksums(out)
}

// GenerateBaseline checksums every file under dir and saves the result.
func (s *Scanner) GenerateBaseline(ctx context.Context, dir string) (Baseline, error) {
	b := Baseline{
		Directory: dir,
		CreatedAt: time.Now(),
		Files:     s.checksums(ctx, dir),
	}
	if err := os.MkdirAll(s.ReportDir, 0o755); err != nil {
		return b, err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return b, err
	}
	return b, os.WriteFile(filepath.Join(s.ReportDir, baselineFile), data, 0o644)
}

// LoadBaseline reads the saved baseline, if any.
func (s *Scanner) LoadBaseline() (Baseline, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.ReportDir, baselineFile))
	if os.IsNotExist(err) {
		return Baseline{}, false, nil
	}
	if err != nil {
		return Baseline{}, false, err
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return Baseline{}, false, err
	}
	return b, true, nil
}

// CheckBaseline re-checksums the baselined directory and diffs it.
func (s *Scanner) CheckBaseline(ctx context.Context, b Baseline) BaselineDiff {
	return DiffBaseline(b.Files, s.checksums(ctx, b.Directory))
}
