// Package security wraps ClamAV scanning, report persistence, and a
// checksum-based file integrity baseline.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

// QuickScanPaths covers the usual drop locations for malware.
var QuickScanPaths = []string{"/tmp", "/var/tmp", "/dev/shm", "/var/www"}

// fullScanExcludes keeps a full scan off pseudo-filesystems and the
// signature database itself.
var fullScanExcludes = []string{"/proc", "/sys", "/dev", "/run", "/var/lib/clamav"}

// Scanner runs clamscan and keeps reports under the data dir.
type Scanner struct {
	ReportDir string
	runner    shell.Runner
}

func NewScanner(reportDir string) *Scanner {
	return &Scanner{ReportDir: reportDir, runner: shell.Runner{Sudo: true}}
}

// Installed reports whether clamscan is on PATH.
func (s *Scanner) Installed() bool {
	return shell.CommandExists("clamscan")
}

// Status describes the ClamAV install, its services, and the database.
type Status struct {
	Installed       bool
	Version         string
	FreshclamActive bool
	DaemonActive    bool
	Databases       []DatabaseInfo
}

// DatabaseInfo is one signature database as reported by sigtool.
type DatabaseInfo struct {
	Name       string
	Version    string
	Signatures string
	BuildTime  string
}

var clamDatabases = []string{
	"/var/lib/clamav/main.cvd",
	"/var/lib/clamav/main.cld",
	"/var/lib/clamav/daily.cvd",
	"/var/lib/clamav/daily.cld",
	"/var/lib/clamav/bytecode.cvd",
	"/var/lib/clamav/bytecode.cld",
}

// Status gathers the current ClamAV state.
func (s *Scanner) Status(ctx context.Context) Status {
	st := Status{Installed: s.Installed()}
	if !st.Installed {
		return st
	}
	plain := shell.Runner{}
	st.Version = strings.TrimSpace(plain.Output(ctx, "clamscan", "--version"))
	st.FreshclamActive = plain.Run(ctx, "systemctl", "is-active", "--quiet", "clamav-freshclam").Ok()
	st.DaemonActive = plain.Run(ctx, "systemctl", "is-active", "--quiet", "clamav-daemon").Ok()
	for _, db := range clamDatabases {
		if _, err := os.Stat(db); err != nil {
			continue
		}
		out := plain.Output(ctx, "sigtool", "--info", db)
		if out == "" {
			continue
		}
		info := ParseSigtoolInfo(out)
		info.Name = filepath.Base(db)
		st.Databases = append(st.Databases, info)
	}
	return st
}

// ParseSigtoolInfo extracts version, signature count, and build time
// from sigtool --info output.
func ParseSigtoolInfo(output string) DatabaseInfo {
	var info DatabaseInfo
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Version:"):
			info.Version = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
		case strings.HasPrefix(line, "Signatures:"):
			info.Signatures = strings.TrimSpace(strings.TrimPrefix(line, "Signatures:"))
		case strings.HasPrefix(line, "Build time:"):
			info.BuildTime = strings.TrimSpace(strings.TrimPrefix(line, "Build time:"))
		}
	}
	return info
}

// ScanResult holds parsed clamscan output.
type ScanResult struct {
	FilesScanned int
	Infected     int
	DataScanned  string
	InfectedList []string
}

var statNumberRe = regexp.MustCompile(`(\d+)`)

// ParseClamscanOutput reads the summary block and FOUND lines from a
// clamscan run.
func ParseClamscanOutput(output string) ScanResult {
	var res ScanResult
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "FOUND"):
			if idx := strings.Index(line, ":"); idx > 0 {
				res.InfectedList = append(res.InfectedList, line[:idx])
			}
		case strings.HasPrefix(line, "Infected files:"):
			if m := statNumberRe.FindString(line); m != "" {
				res.Infected, _ = strconv.Atoi(m)
			}
		case strings.HasPrefix(line, "Scanned files:"):
			if m := statNumberRe.FindString(line); m != "" {
				res.FilesScanned, _ = strconv.Atoi(m)
			}
		case strings.HasPrefix(line, "Data scanned:"):
			res.DataScanned = strings.TrimSpace(line[strings.LastIndex(line, ":")+1:])
		}
	}
	return res
}

// Scan runs clamscan over paths and persists a report. kind is one of
// quick, directory, web, full.
func (s *Scanner) Scan(ctx context.Context, kind string, paths []string, extraArgs ...string) (models.ScanReport, error) {
	if !s.Installed() {
		return models.ScanReport{}, fmt.Errorf("clamscan is not installed")
	}
	args := []string{"-r", "--infected"}
	if kind == "full" {
		for _, d := range fullScanExcludes {
			args = append(args, "--exclude-dir="+d)
		}
	}
	args = append(args, extraArgs...)
	args = append(args, paths...)

	start := time.Now()
	res := s.runner.Run(ctx, "clamscan", args...)
	// clamscan exits 1 when threats are found; only 2 is a real error.
	if res.Code == 2 {
		return models.ScanReport{}, fmt.Errorf("clamscan failed: %s", res.Stderr)
	}
	parsed := ParseClamscanOutput(res.Stdout)

	report := models.ScanReport{
		ID:        uuid.NewString()[:8],
		Kind:      "clamav",
		Target:    strings.Join(paths, ", "),
		StartedAt: start,
		Duration:  time.Since(start).Round(time.Second).String(),
		Scanned:   parsed.FilesScanned,
		Infected:  parsed.Infected,
		Findings:  parsed.InfectedList,
	}
	if err := s.saveReport(report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Scanner) saveReport(report models.ScanReport) error {
	if err := os.MkdirAll(s.ReportDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("scan_%s_%s.json", report.StartedAt.Format("20060102_150405"), report.ID)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.ReportDir, name), data, 0o644)
}

// Reports loads saved scan reports, newest first.
func (s *Scanner) Reports() ([]models.ScanReport, error) {
	entries, err := os.ReadDir(s.ReportDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var reports []models.ScanReport
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "scan_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.ReportDir, e.Name()))
		if err != nil {
			continue
		}
		var r models.ScanReport
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].StartedAt.After(reports[j].StartedAt) })
	return reports, nil
}

// PruneReports deletes reports older than the cutoff and returns how
// many were removed.
func (s *Scanner) PruneReports(olderThan time.Duration) (int, error) {
	reports, err := s.Reports()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-olderThan)
	deleted := 0
	entries, _ := os.ReadDir(s.ReportDir)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "scan_") {
			continue
		}
		for _, r := range reports {
			if strings.Contains(e.Name(), r.ID) && r.StartedAt.Before(cutoff) {
				if err := os.Remove(filepath.Join(s.ReportDir, e.Name())); err == nil {
					deleted++
				}
			}
		}
	}
	return deleted, nil
}

// UpdateDatabase runs freshclam, pausing the service around the call
// since it holds a lock on the database directory.
func (s *Scanner) UpdateDatabase(ctx context.Context) error {
	s.runner.Run(ctx, "systemctl", "stop", "clamav-freshclam")
	res := s.runner.Run(ctx, "freshclam")
	s.runner.Run(ctx, "systemctl", "start", "clamav-freshclam")
	if !res.Ok() {
		return fmt.Errorf("freshclam: %s", res.Stderr)
	}
	return nil
}

// ScanSchedule is a cron-able scan preset.
type ScanSchedule struct {
	Name     string
	Schedule string
	Command  string
}

// ScanSchedules returns the offered scan presets, using clamdscan
// when the daemon client is available.
func ScanSchedules() []ScanSchedule {
	cmd := "clamscan"
	if shell.CommandExists("clamdscan") {
		cmd = "clamdscan"
	}
	return []ScanSchedule{
		{
			Name:     "Daily web scan (3 AM)",
			Schedule: "0 3 * * *",
			Command:  cmd + " -r --infected /var/www 2>&1 | logger -t clamav-scan",
		},
		{
			Name:     "Weekly full scan (Sunday 2 AM)",
			Schedule: "0 2 * * 0",
			Command:  cmd + " -r --infected --exclude-dir=/proc --exclude-dir=/sys / 2>&1 | logger -t clamav-scan",
		},
		{
			Name:     "Hourly temp directory scan",
			Schedule: "0 * * * *",
			Command:  cmd + " -r --infected /tmp /var/tmp 2>&1 | logger -t clamav-scan",
		},
	}
}
