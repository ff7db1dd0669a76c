// Package cve scans system packages and application dependency trees
// for known vulnerabilities using the auditing tools each ecosystem
// ships (ubuntu-security-status, npm audit, composer audit, pip-audit).
package cve

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/shell"
)

// Vulnerability is one finding from any scanner.
type Vulnerability struct {
	Type        string   `json:"type"` // system, nodejs, php, python
	Project     string   `json:"project,omitempty"`
	Path        string   `json:"path,omitempty"`
	Package     string   `json:"package"`
	Version     string   `json:"version,omitempty"`
	CVEs        []string `json:"cves,omitempty"`
	Severity    string   `json:"severity"`
	Description string   `json:"description,omitempty"`
}

// Project is an application with a dependency manifest.
type Project struct {
	Name      string
	Path      string
	File      string
	Ecosystem string
}

// DependencyFiles maps manifest names to their ecosystem.
var DependencyFiles = map[string]string{
	"package.json":      "nodejs",
	"package-lock.json": "nodejs",
	"composer.json":     "php",
	"composer.lock":     "php",
	"requirements.txt":  "python",
	"Pipfile.lock":      "python",
	"Gemfile.lock":      "ruby",
	"go.mod":            "go",
	"Cargo.lock":        "rust",
}

// DefaultScanDirs is where application code usually lives.
var DefaultScanDirs = []string{"/var/www", "/home"}

var cveRe = regexp.MustCompile(`CVE-\d{4}-\d+`)

// ExtractCVEs pulls CVE identifiers out of free text.
func ExtractCVEs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range cveRe.FindAllString(text, -1) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ParseSecurityStatus reads ubuntu-security-status output lines that
// mention CVEs.
func ParseSecurityStatus(output string) []Vulnerability {
	var vulns []Vulnerability
	for _, line := range strings.Split(output, "\n") {
		cves := ExtractCVEs(line)
		if len(cves) == 0 {
			continue
		}
		fields := strings.Fields(line)
		pkg := "unknown"
		if len(fields) > 0 {
			pkg = fields[0]
		}
		vulns = append(vulns, Vulnerability{
			Type:        "system",
			Package:     pkg,
			CVEs:        cves,
			Severity:    "unknown",
			Description: strings.TrimSpace(line),
		})
	}
	return vulns
}

// ParseUpgradable reads apt list --upgradable output. The first line
// is the "Listing..." header.
func ParseUpgradable(output string) []Vulnerability {
	var vulns []Vulnerability
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasPrefix(line, "Listing")) {
			continue
		}
		pkg, _, ok := strings.Cut(line, "/")
		if !ok {
			continue
		}
		severity := "update-available"
		if strings.Contains(strings.ToLower(line), "security") {
			severity = "security"
		}
		vulns = append(vulns, Vulnerability{
			Type:        "system",
			Package:     pkg,
			Severity:    severity,
			Description: line,
		})
	}
	return vulns
}

// npm audit --json structures, reduced to what we read.
type npmAudit struct {
	Vulnerabilities map[string]struct {
		Severity string            `json:"severity"`
		Range    string            `json:"range"`
		Via      []json.RawMessage `json:"via"`
	} `json:"vulnerabilities"`
}

// ParseNpmAudit reads npm audit --json output.
func ParseNpmAudit(data []byte, project, path string) ([]Vulnerability, error) {
	var audit npmAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, err
	}
	var vulns []Vulnerability
	for pkg, info := range audit.Vulnerabilities {
		var cves []string
		for _, raw := range info.Via {
			var via struct {
				CVE string `json:"cve"`
			}
			// via entries are either advisory objects or bare strings
			if err := json.Unmarshal(raw, &via); err == nil && via.CVE != "" {
				cves = append(cves, via.CVE)
			}
		}
		vulns = append(vulns, Vulnerability{
			Type:     "nodejs",
			Project:  project,
			Path:     path,
			Package:  pkg,
			Version:  info.Range,
			CVEs:     cves,
			Severity: info.Severity,
		})
	}
	sort.Slice(vulns, func(i, j int) bool { return vulns[i].Package < vulns[j].Package })
	return vulns, nil
}

type composerAudit struct {
	Advisories map[string][]struct {
		CVE              string `json:"cve"`
		Severity         string `json:"severity"`
		Title            string `json:"title"`
		AffectedVersions string `json:"affectedVersions"`
	} `json:"advisories"`
}

// ParseComposerAudit reads composer audit --format=json output.
func ParseComposerAudit(data []byte, project, path string) ([]Vulnerability, error) {
	var audit composerAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, err
	}
	var vulns []Vulnerability
	for pkg, advisories := range audit.Advisories {
		for _, adv := range advisories {
			var cves []string
			if adv.CVE != "" {
				cves = []string{adv.CVE}
			}
			vulns = append(vulns, Vulnerability{
				Type:        "php",
				Project:     project,
				Path:        path,
				Package:     pkg,
				Version:     adv.AffectedVersions,
				CVEs:        cves,
				Severity:    adv.Severity,
				Description: adv.Title,
			})
		}
	}
	sort.Slice(vulns, func(i, j int) bool { return vulns[i].Package < vulns[j].Package })
	return vulns, nil
}

type pipAudit struct {
	Dependencies []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Vulns   []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
		} `json:"vulns"`
	} `json:"dependencies"`
}

// ParsePipAudit reads pip-audit --format=json output.
func ParsePipAudit(data []byte, project, path string) ([]Vulnerability, error) {
	var audit pipAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, err
	}
	var vulns []Vulnerability
	for _, dep := range audit.Dependencies {
		for _, v := range dep.Vulns {
			desc := v.Description
			if len(desc) > 100 {
				desc = desc[:100]
			}
			vulns = append(vulns, Vulnerability{
				Type:        "python",
				Project:     project,
				Path:        path,
				Package:     dep.Name,
				Version:     dep.Version,
				CVEs:        []string{v.ID},
				Severity:    "unknown",
				Description: desc,
			})
		}
	}
	return vulns, nil
}

// FindProjects walks dirs looking for dependency manifests. Vendor and
// node_modules trees are skipped so one app counts once.
func FindProjects(dirs []string) []Project {
	seen := make(map[string]bool)
	var projects []Project
	for _, dir := range dirs {
		filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				switch d.Name() {
				case "node_modules", "vendor", ".git":
					return filepath.SkipDir
				}
				return nil
			}
			eco, ok := DependencyFiles[d.Name()]
			if !ok {
				return nil
			}
			projectDir := filepath.Dir(path)
			key := projectDir + "/" + eco
			if seen[key] {
				return nil
			}
			seen[key] = true
			projects = append(projects, Project{
				Name:      filepath.Base(projectDir),
				Path:      projectDir,
				File:      d.Name(),
				Ecosystem: eco,
			})
			return nil
		})
	}
	return projects
}

// Scanner runs the scans and persists results under the data dir.
type Scanner struct {
	DataDir string
	runner  shell.Runner
}

func NewScanner(dataDir string) *Scanner {
	return &Scanner{DataDir: dataDir, runner: shell.Runner{Sudo: true}}
}

// System scans installed packages.
func (s *Scanner) System(ctx context.Context) []Vulnerability {
	var vulns []Vulnerability
	plain := shell.Runner{}
	if shell.CommandExists("ubuntu-security-status") {
		out := plain.Output(ctx, "ubuntu-security-status", "--unavailable")
		vulns = append(vulns, ParseSecurityStatus(out)...)
	}
	s.runner.Run(ctx, "apt-get", "update", "-q")
	out := plain.Output(ctx, "apt", "list", "--upgradable")
	vulns = append(vulns, ParseUpgradable(out)...)
	vulns = append(vulns, s.unattendedUpgrades(ctx)...)
	return vulns
}

func (s *Scanner) unattendedUpgrades(ctx context.Context) []Vulnerability {
	const log = "/var/log/unattended-upgrades/unattended-upgrades.log"
	if _, err := os.Stat(log); err != nil {
		return nil
	}
	out := s.runner.Output(ctx, "sh", "-c", "grep -i 'CVE-' "+log+" | tail -20")
	var vulns []Vulnerability
	for _, line := range strings.Split(out, "\n") {
		cves := ExtractCVEs(line)
		if len(cves) == 0 {
			continue
		}
		desc := strings.TrimSpace(line)
		if len(desc) > 100 {
			desc = desc[:100]
		}
		vulns = append(vulns, Vulnerability{
			Type:        "system",
			Package:     "unattended-upgrade",
			CVEs:        cves,
			Severity:    "logged",
			Description: desc,
		})
	}
	return vulns
}

// Applications audits every discovered project with its ecosystem's
// tool. Ecosystems without an installed auditor are reported as
// needs-audit.
func (s *Scanner) Applications(ctx context.Context, dirs []string) []Vulnerability {
	var all []Vulnerability
	plain := shell.Runner{}
	for _, p := range FindProjects(dirs) {
		switch p.Ecosystem {
		case "nodejs":
			if p.File != "package-lock.json" || !shell.CommandExists("npm") {
				continue
			}
			// audit tools exit non-zero when findings exist, read stdout anyway
			res := plain.RunShell(ctx, "cd '"+p.Path+"' && npm audit --json")
			if vulns, err := ParseNpmAudit([]byte(res.Stdout), p.Name, p.Path); err == nil {
				all = append(all, vulns...)
			}
		case "php":
			if p.File != "composer.lock" || !shell.CommandExists("composer") {
				continue
			}
			res := plain.RunShell(ctx, "cd '"+p.Path+"' && composer audit --format=json")
			if vulns, err := ParseComposerAudit([]byte(res.Stdout), p.Name, p.Path); err == nil {
				all = append(all, vulns...)
			}
		case "python":
			if p.File != "requirements.txt" || !shell.CommandExists("pip-audit") {
				continue
			}
			res := plain.Run(ctx, "pip-audit", "-r", filepath.Join(p.Path, p.File), "--format=json")
			if vulns, err := ParsePipAudit([]byte(res.Stdout), p.Name, p.Path); err == nil {
				all = append(all, vulns...)
			}
		}
	}
	return all
}

// FullResult is a system plus application scan.
type FullResult struct {
	Type         string          `json:"type"`
	Timestamp    time.Time       `json:"timestamp"`
	System       []Vulnerability `json:"system,omitempty"`
	Applications []Vulnerability `json:"applications,omitempty"`
}

// Total counts all findings.
func (r FullResult) Total() int { return len(r.System) + len(r.Applications) }

// Full runs both scans and saves the result.
func (s *Scanner) Full(ctx context.Context) (FullResult, error) {
	result := FullResult{
		Type:         "full",
		Timestamp:    time.Now(),
		System:       s.System(ctx),
		Applications: s.Applications(ctx, DefaultScanDirs),
	}
	return result, s.Save(result)
}

// Save writes a timestamped scan file plus a latest_<type>.json copy.
func (s *Scanner) Save(result FullResult) error {
	dir := filepath.Join(s.DataDir, "scans")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	name := "scan_" + result.Type + "_" + result.Timestamp.Format("20060102_150405") + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "latest_"+result.Type+".json"), data, 0o644)
}

// Latest loads the most recent scan of the given type.
func (s *Scanner) Latest(kind string) (FullResult, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.DataDir, "scans", "latest_"+kind+".json"))
	if os.IsNotExist(err) {
		return FullResult{}, false, nil
	}
	if err != nil {
		return FullResult{}, false, err
	}
	var result FullResult
	if err := json.Unmarshal(data, &result); err != nil {
		return FullResult{}, false, err
	}
	return result, true, nil
}

// History lists past scans, newest first.
func (s *Scanner) History() ([]FullResult, error) {
	dir := filepath.Join(s.DataDir, "scans")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var results []FullResult
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "scan_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var r FullResult
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Timestamp.After(results[j].Timestamp) })
	return results, nil
}

// LastUpdate reads when the tooling databases were refreshed.
func (s *Scanner) LastUpdate() (time.Time, bool) {
	data, err := os.ReadFile(filepath.Join(s.DataDir, "last_update"))
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UpdateDatabases refreshes apt lists and makes sure the per-ecosystem
// audit tools are present.
func (s *Scanner) UpdateDatabases(ctx context.Context) error {
	s.runner.Run(ctx, "apt-get", "update", "-q")
	if !shell.CommandExists("ubuntu-security-status") {
		s.runner.Run(ctx, "apt-get", "install", "-y", "update-manager-core")
	}
	plain := shell.Runner{}
	if shell.CommandExists("pip3") && !plain.Run(ctx, "pip3", "show", "pip-audit").Ok() {
		plain.Run(ctx, "pip3", "install", "pip-audit", "--quiet")
	}
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format(time.RFC3339)
	return os.WriteFile(filepath.Join(s.DataDir, "last_update"), []byte(stamp+"\n"), 0o644)
}
