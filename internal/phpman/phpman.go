// Package phpman manages PHP versions, extensions, php.ini values and
// PHP-FPM pool sizing.
package phpman

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/shell"
)

// Versions supported by the ondrej PPA, newest first.
var Versions = []string{"8.5", "8.4", "8.3", "8.2", "8.1", "8.0", "7.4"}

// ExtensionBundles map a use case to the extensions it needs beyond
// the defaults.
var ExtensionBundles = map[string][]string{
	"laravel":   {"mbstring", "xml", "bcmath", "curl", "zip", "gd", "redis", "intl"},
	"wordpress": {"mysql", "gd", "curl", "mbstring", "xml", "zip", "imagick"},
	"api":       {"mbstring", "curl", "redis", "opcache", "pgsql"},
	"dev":       {"xdebug", "mbstring", "curl", "sqlite3"},
}

// RecommendedINI are production php.ini values the auditor also checks.
var RecommendedINI = map[string]string{
	"expose_php":                 "Off",
	"display_errors":             "Off",
	"log_errors":                 "On",
	"memory_limit":               "256M",
	"upload_max_filesize":        "64M",
	"post_max_size":              "64M",
	"max_execution_time":         "60",
	"opcache.enable":             "1",
	"opcache.memory_consumption": "128",
}

// Manager drives php/dpkg/update-alternatives.
type Manager struct {
	runner shell.Runner
}

func NewManager() *Manager {
	return &Manager{runner: shell.Runner{Sudo: true}}
}

// InstalledVersions returns PHP versions present according to dpkg.
func (m *Manager) InstalledVersions(ctx context.Context) []string {
	out := shell.Runner{}.Output(ctx, "sh", "-c", "dpkg -l 'php*' 2>/dev/null | grep '^ii'")
	return ParseInstalledVersions(out)
}

var phpPkgRe = regexp.MustCompile(`^ii\s+php(\d+\.\d+)\s`)

// ParseInstalledVersions extracts version numbers from dpkg -l output,
// newest first.
func ParseInstalledVersions(output string) []string {
	seen := map[string]bool{}
	var versions []string
	for _, line := range strings.Split(output, "\n") {
		if m := phpPkgRe.FindStringSubmatch(line); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			versions = append(versions, m[1])
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions
}

// DefaultVersion returns the version behind the plain `php` binary.
func (m *Manager) DefaultVersion(ctx context.Context) string {
	out := shell.Runner{}.Output(ctx, "php", "-v")
	if mm := regexp.MustCompile(`PHP (\d+\.\d+)`).FindStringSubmatch(out); mm != nil {
		return mm[1]
	}
	return ""
}

// Extensions lists loaded modules for a version.
func (m *Manager) Extensions(ctx context.Context, version string) []string {
	out := shell.Runner{}.Output(ctx, "php"+version, "-m")
	var exts []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "[") {
			exts = append(exts, line)
		}
	}
	return exts
}

// InstallExtensions apt-installs extensions for a version and restarts
// its FPM pool.
func (m *Manager) InstallExtensions(ctx context.Context, version string, exts []string) error {
	pkgs := make([]string, 0, len(exts))
	for _, e := range exts {
		pkgs = append(pkgs, fmt.Sprintf("php%s-%s", version, e))
	}
	res := m.runner.Run(ctx, "apt-get", append([]string{"install", "-y"}, pkgs...)...)
	if !res.Ok() {
		return fmt.Errorf("extension install failed: %s", res.Stderr)
	}
	if res := m.runner.Run(ctx, "systemctl", "restart", fmt.Sprintf("php%s-fpm", version)); !res.Ok() {
		return fmt.Errorf("fpm restart failed: %s", res.Stderr)
	}
	return nil
}

// SwitchDefault points the php/phar alternatives at a version.
func (m *Manager) SwitchDefault(ctx context.Context, version string) error {
	for _, alt := range []struct{ name, path string }{
		{"php", "/usr/bin/php" + version},
		{"phar", "/usr/bin/phar" + version},
		{"phar.phar", "/usr/bin/phar.phar" + version},
	} {
		res := m.runner.Run(ctx, "update-alternatives", "--set", alt.name, alt.path)
		if !res.Ok() {
			return fmt.Errorf("update-alternatives %s failed: %s", alt.name, res.Stderr)
		}
	}
	return nil
}

// ServerSpecs are the inputs to pool sizing.
type ServerSpecs struct {
	TotalMemMB int
	CPUCount   int
}

// DetectSpecs reads /proc/meminfo and nproc.
func DetectSpecs(ctx context.Context) (ServerSpecs, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return ServerSpecs{}, fmt.Errorf("failed to read /proc/meminfo: %w", err)
	}
	mem, ok := ParseMemTotalMB(string(data))
	if !ok {
		return ServerSpecs{}, fmt.Errorf("unexpected /proc/meminfo format")
	}
	specs := ServerSpecs{TotalMemMB: mem, CPUCount: 1}
	if n, err := strconv.Atoi(strings.TrimSpace(shell.Runner{}.Output(ctx, "nproc"))); err == nil && n > 0 {
		specs.CPUCount = n
	}
	return specs, nil
}

// ParseMemTotalMB extracts MemTotal from /proc/meminfo content.
func ParseMemTotalMB(content string) (int, bool) {
	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, false
		}
		return kb / 1024, true
	}
	return 0, false
}

// PoolSettings are the FPM www pool knobs forge tunes.
type PoolSettings struct {
	MaxChildren     int
	StartServers    int
	MinSpareServers int
	MaxSpareServers int
}

// CalculatePoolSettings sizes the pool from available memory, assuming
// avgProcessMB per worker and leaving 25% headroom for the rest of the
// system. Results never drop below the FPM minimums.
func CalculatePoolSettings(specs ServerSpecs, avgProcessMB int) PoolSettings {
	if avgProcessMB <= 0 {
		avgProcessMB = 50
	}
	available := specs.TotalMemMB * 75 / 100
	maxChildren := available / avgProcessMB
	if maxChildren < 2 {
		maxChildren = 2
	}
	start := maxChildren / 4
	if start < 1 {
		start = 1
	}
	minSpare := start / 2
	if minSpare < 1 {
		minSpare = 1
	}
	maxSpare := start * 2
	if maxSpare >= maxChildren {
		maxSpare = maxChildren - 1
	}
	if maxSpare < minSpare {
		maxSpare = minSpare
	}
	return PoolSettings{
		MaxChildren:     maxChildren,
		StartServers:    start,
		MinSpareServers: minSpare,
		MaxSpareServers: maxSpare,
	}
}

// ApplyPoolSettings edits the www pool config via sed and restarts FPM.
func (m *Manager) ApplyPoolSettings(ctx context.Context, version string, p PoolSettings) error {
	conf := fmt.Sprintf("/etc/php/%s/fpm/pool.d/www.conf", version)
	edits := map[string]int{
		"pm.max_children":      p.MaxChildren,
		"pm.start_servers":     p.StartServers,
		"pm.min_spare_servers": p.MinSpareServers,
		"pm.max_spare_servers": p.MaxSpareServers,
	}
	for key, value := range edits {
		expr := fmt.Sprintf("s/^;*\\s*%s\\s*=.*/%s = %d/", regexp.QuoteMeta(key), key, value)
		if res := m.runner.Run(ctx, "sed", "-i", expr, conf); !res.Ok() {
			return fmt.Errorf("failed to set %s: %s", key, res.Stderr)
		}
	}
	if res := m.runner.Run(ctx, "systemctl", "restart", fmt.Sprintf("php%s-fpm", version)); !res.Ok() {
		return fmt.Errorf("fpm restart failed: %s", res.Stderr)
	}
	return nil
}

// GetINI reads one php.ini value for a version's FPM config.
func (m *Manager) GetINI(ctx context.Context, version, key string) string {
	out := shell.Runner{}.Output(ctx, "php"+version, "-r", fmt.Sprintf("echo ini_get('%s');", key))
	return strings.TrimSpace(out)
}

// SetINI updates one php.ini value in the FPM config via sed.
func (m *Manager) SetINI(ctx context.Context, version, key, value string) error {
	ini := fmt.Sprintf("/etc/php/%s/fpm/php.ini", version)
	expr := fmt.Sprintf("s|^;*\\s*%s\\s*=.*|%s = %s|", regexp.QuoteMeta(key), key, value)
	if res := m.runner.Run(ctx, "sed", "-i", expr, ini); !res.Ok() {
		return fmt.Errorf("failed to set %s: %s", key, res.Stderr)
	}
	return nil
}
