// Package nginx generates vhost configurations and manages the
// sites-available / sites-enabled layout.
package nginx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/shell"
)

// Manager performs vhost file operations. Writes go through a temp
// file plus sudo mv so the tool can run unprivileged.
type Manager struct {
	SitesAvailable string
	SitesEnabled   string
	LogDir         string
	runner         shell.Runner
}

// NewManager creates a vhost manager for the given nginx directories.
func NewManager(sitesAvailable, sitesEnabled, logDir string) *Manager {
	return &Manager{
		SitesAvailable: sitesAvailable,
		SitesEnabled:   sitesEnabled,
		LogDir:         logDir,
		runner:         shell.Runner{Sudo: true},
	}
}

// ConfigPath returns the sites-available path for a domain.
func (m *Manager) ConfigPath(domain string) string {
	return filepath.Join(m.SitesAvailable, domain)
}

func (m *Manager) enabledPath(domain string) string {
	return filepath.Join(m.SitesEnabled, domain)
}

// WriteVhost writes a vhost config via a temp file and privileged move.
func (m *Manager) WriteVhost(ctx context.Context, domain, content string) error {
	tmp, err := os.CreateTemp("", "forge-vhost-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	if res := m.runner.Run(ctx, "mv", tmpPath, m.ConfigPath(domain)); !res.Ok() {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to install vhost config: %s", res.Stderr)
	}
	if res := m.runner.Run(ctx, "chmod", "644", m.ConfigPath(domain)); !res.Ok() {
		return fmt.Errorf("failed to set vhost permissions: %s", res.Stderr)
	}
	return nil
}

// ReadVhost returns the vhost config contents for a domain.
func (m *Manager) ReadVhost(ctx context.Context, domain string) (string, error) {
	if data, err := os.ReadFile(m.ConfigPath(domain)); err == nil {
		return string(data), nil
	}
	res := m.runner.Run(ctx, "cat", m.ConfigPath(domain))
	if !res.Ok() {
		return "", fmt.Errorf("failed to read vhost config for %s: %s", domain, res.Stderr)
	}
	return res.Stdout, nil
}

// Enable symlinks a vhost into sites-enabled.
func (m *Manager) Enable(ctx context.Context, domain string) error {
	if _, err := os.Lstat(m.enabledPath(domain)); err == nil {
		return nil // already enabled
	}
	if res := m.runner.Run(ctx, "ln", "-s", m.ConfigPath(domain), m.enabledPath(domain)); !res.Ok() {
		return fmt.Errorf("failed to enable site %s: %s", domain, res.Stderr)
	}
	return nil
}

// Disable removes the sites-enabled symlink.
func (m *Manager) Disable(ctx context.Context, domain string) error {
	if res := m.runner.Run(ctx, "rm", "-f", m.enabledPath(domain)); !res.Ok() {
		return fmt.Errorf("failed to disable site %s: %s", domain, res.Stderr)
	}
	return nil
}

// IsEnabled reports whether the sites-enabled symlink exists.
func (m *Manager) IsEnabled(domain string) bool {
	_, err := os.Lstat(m.enabledPath(domain))
	return err == nil
}

// Remove deletes both the symlink and the config file.
func (m *Manager) Remove(ctx context.Context, domain string) error {
	if err := m.Disable(ctx, domain); err != nil {
		return err
	}
	if res := m.runner.Run(ctx, "rm", "-f", m.ConfigPath(domain)); !res.Ok() {
		return fmt.Errorf("failed to remove vhost config for %s: %s", domain, res.Stderr)
	}
	return nil
}

// ListVhosts returns domains with configs in sites-available, skipping
// the distribution default.
func (m *Manager) ListVhosts() ([]string, error) {
	entries, err := os.ReadDir(m.SitesAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites-available: %w", err)
	}
	var domains []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == "default" {
			continue
		}
		domains = append(domains, e.Name())
	}
	sort.Strings(domains)
	return domains, nil
}

// Test runs nginx -t and returns its combined diagnostics on failure.
func (m *Manager) Test(ctx context.Context) error {
	res := m.runner.Run(ctx, "nginx", "-t")
	if !res.Ok() {
		return fmt.Errorf("nginx config test failed: %s", res.Stderr)
	}
	return nil
}

// Reload asks systemd to reload nginx.
func (m *Manager) Reload(ctx context.Context) error {
	res := m.runner.Run(ctx, "systemctl", "reload", "nginx")
	if !res.Ok() {
		return fmt.Errorf("failed to reload nginx: %s", res.Stderr)
	}
	return nil
}

// TestAndReload validates the config, then reloads. Callers roll back
// their own changes when Test fails.
func (m *Manager) TestAndReload(ctx context.Context) error {
	if err := m.Test(ctx); err != nil {
		return err
	}
	return m.Reload(ctx)
}

var (
	proxyPassRe   = regexp.MustCompile(`proxy_pass\s+http://127\.0\.0\.1:(\d+)`)
	fastcgiPassRe = regexp.MustCompile(`fastcgi_pass\s+\S+php(\d+\.\d+)-fpm`)
	rootRe        = regexp.MustCompile(`(?m)^\s*root\s+([^;]+);`)
)

// SiteDetails are facts recovered from an existing vhost config.
type SiteDetails struct {
	Type         string
	Port         int
	DocumentRoot string
	PHPVersion   string
	SSL          bool
}

// DetectSite infers the site type and settings from config contents.
// Proxied sites are told apart by path hints; an unknown proxy target
// is reported as nextjs.
func DetectSite(content string) SiteDetails {
	d := SiteDetails{Type: "static"}
	d.SSL = strings.Contains(content, "ssl_certificate")

	if m := proxyPassRe.FindStringSubmatch(content); m != nil {
		d.Port, _ = strconv.Atoi(m[1])
		if strings.Contains(content, "/_nuxt") || strings.Contains(content, "nuxt") {
			d.Type = "nuxt"
		} else {
			d.Type = "nextjs"
		}
		return d
	}
	if m := fastcgiPassRe.FindStringSubmatch(content); m != nil {
		d.Type = "php"
		d.PHPVersion = m[1]
	}
	if m := rootRe.FindStringSubmatch(content); m != nil {
		root := strings.TrimSpace(m[1])
		if root != "/var/www/_letsencrypt" {
			d.DocumentRoot = root
		}
	}
	return d
}
