// Package auditor checks nginx vhosts, PHP settings, services, and
// host security against a set of production baselines and can apply
// the safe fixes automatically.
package auditor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/shell"
)

// Severity ranks an issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is one finding from an audit.
type Issue struct {
	Category    string // Nginx, PHP, Services, Security
	Type        string
	Target      string // site name, PHP version, service name
	Description string
	Severity    Severity
	Fixable     bool

	// fix context
	configPath string
	directive  string
	setting    string
	value      string
}

// SecurityHeader is an nginx header the audit expects on every site.
type SecurityHeader struct {
	Name        string
	Directive   string
	Description string
	Severity    Severity
}

// SecurityHeaders lists the headers every vhost should send.
var SecurityHeaders = []SecurityHeader{
	{"X-Frame-Options", `add_header X-Frame-Options "SAMEORIGIN" always;`, "Prevents clickjacking attacks", SeverityHigh},
	{"X-Content-Type-Options", `add_header X-Content-Type-Options "nosniff" always;`, "Prevents MIME-type sniffing", SeverityHigh},
	{"X-XSS-Protection", `add_header X-XSS-Protection "1; mode=block" always;`, "Enables XSS filtering", SeverityMedium},
	{"Referrer-Policy", `add_header Referrer-Policy "strict-origin-when-cross-origin" always;`, "Controls referrer information", SeverityMedium},
	{"Permissions-Policy", `add_header Permissions-Policy "geolocation=(), microphone=(), camera=()" always;`, "Controls browser features", SeverityLow},
}

// Optimization is an nginx tuning directive the audit looks for.
type Optimization struct {
	Name        string
	Check       string
	Directive   string
	Description string
	Severity    Severity
}

// Optimizations lists nginx tuning the audit recommends.
var Optimizations = []Optimization{
	{"gzip", "gzip on", "gzip on;\n    gzip_vary on;\n    gzip_proxied any;\n    gzip_comp_level 6;", "gzip compression", SeverityMedium},
	{"client_max_body_size", "client_max_body_size", "client_max_body_size 100M;", "large file uploads", SeverityLow},
	{"proxy_buffers", "proxy_buffer_size", "proxy_buffer_size 128k;\n    proxy_buffers 4 256k;", "proxy buffering", SeverityLow},
	{"timeouts", "proxy_read_timeout", "proxy_connect_timeout 60s;\n    proxy_send_timeout 60s;\n    proxy_read_timeout 60s;", "timeout settings", SeverityLow},
}

// PHPSetting is a php.ini value with a production floor.
type PHPSetting struct {
	Name        string
	Min         string
	Recommended string
	Description string
	Severity    Severity
}

// PHPSettings lists the php.ini values the audit enforces.
var PHPSettings = []PHPSetting{
	{"memory_limit", "256M", "512M", "PHP memory limit", SeverityMedium},
	{"upload_max_filesize", "10M", "100M", "Maximum upload file size", SeverityLow},
	{"post_max_size", "10M", "100M", "Maximum POST data size", SeverityLow},
	{"max_execution_time", "60", "300", "Maximum script execution time", SeverityLow},
	{"max_input_vars", "1000", "3000", "Maximum input variables", SeverityLow},
	{"opcache.enable", "1", "1", "OPcache", SeverityHigh},
	{"opcache.memory_consumption", "64", "256", "OPcache memory", SeverityMedium},
	{"expose_php", "Off", "Off", "Hide PHP version", SeverityMedium},
	{"display_errors", "Off", "Off", "Hide errors in production", SeverityHigh},
}

// ParsePHPValue converts a php.ini value with size units to a number.
// On/Off map to 1/0. Returns false when the value is not comparable.
func ParsePHPValue(value string) (int64, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	switch v {
	case "ON", "1", "TRUE":
		return 1, true
	case "OFF", "0", "FALSE", "NONE", "":
		return 0, true
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(v, "G"):
		mult, v = 1<<30, v[:len(v)-1]
	case strings.HasSuffix(v, "M"):
		mult, v = 1<<20, v[:len(v)-1]
	case strings.HasSuffix(v, "K"):
		mult, v = 1<<10, v[:len(v)-1]
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n * mult, true
}

// Auditor runs the checks and fixes.
type Auditor struct {
	SitesAvailable string
	SitesEnabled   string
	runner         shell.Runner
}

func New(sitesAvailable, sitesEnabled string) *Auditor {
	return &Auditor{
		SitesAvailable: sitesAvailable,
		SitesEnabled:   sitesEnabled,
		runner:         shell.Runner{Sudo: true},
	}
}

// AuditVhostContent checks one vhost file's content. Pure so it is
// testable without nginx installed.
func AuditVhostContent(site, configPath, content string) []Issue {
	var issues []Issue
	lower := strings.ToLower(content)
	for _, h := range SecurityHeaders {
		if strings.Contains(lower, strings.ToLower(h.Name)) {
			continue
		}
		issues = append(issues, Issue{
			Category:    "Nginx",
			Type:        "nginx_header",
			Target:      site,
			Description: fmt.Sprintf("Missing %s header (%s)", h.Name, h.Description),
			Severity:    h.Severity,
			Fixable:     true,
			configPath:  configPath,
			directive:   h.Directive,
		})
	}
	for _, opt := range Optimizations {
		if strings.Contains(lower, strings.ToLower(opt.Check)) {
			continue
		}
		issues = append(issues, Issue{
			Category:    "Nginx",
			Type:        "nginx_optimization",
			Target:      site,
			Description: "Missing " + opt.Description,
			Severity:    opt.Severity,
			Fixable:     true,
			configPath:  configPath,
			directive:   opt.Directive,
		})
	}
	if strings.Contains(content, "listen 443") && !strings.Contains(lower, "ssl_certificate") {
		issues = append(issues, Issue{
			Category:    "Nginx",
			Type:        "nginx_ssl",
			Target:      site,
			Description: "SSL listener without certificate configured",
			Severity:    SeverityHigh,
			Fixable:     false,
			configPath:  configPath,
		})
	}
	return issues
}

// Nginx audits every enabled site.
func (a *Auditor) Nginx(ctx context.Context) []Issue {
	entries, err := os.ReadDir(a.SitesEnabled)
	if err != nil {
		return nil
	}
	var issues []Issue
	for _, e := range entries {
		if e.Name() == "default" {
			continue
		}
		path := filepath.Join(a.SitesAvailable, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			path = filepath.Join(a.SitesEnabled, e.Name())
			if content, err = os.ReadFile(path); err != nil {
				out := a.runner.Output(ctx, "cat", path)
				if out == "" {
					continue
				}
				content = []byte(out)
			}
		}
		issues = append(issues, AuditVhostContent(e.Name(), path, string(content))...)
	}
	return issues
}

// PHP audits every installed PHP version's live settings.
func (a *Auditor) PHP(ctx context.Context, versions []string) []Issue {
	var issues []Issue
	plain := shell.Runner{}
	for _, version := range versions {
		for _, s := range PHPSettings {
			out := plain.Output(ctx, "php"+version, "-r", fmt.Sprintf("echo ini_get(%q);", s.Name))
			current := strings.TrimSpace(out)
			if issue, bad := comparePHPSetting(version, s, current); bad {
				issues = append(issues, issue)
			}
		}
	}
	return issues
}

func comparePHPSetting(version string, s PHPSetting, current string) (Issue, bool) {
	curN, curOK := ParsePHPValue(current)
	minN, minOK := ParsePHPValue(s.Min)
	bad := false
	if curOK && minOK && curN < minN {
		bad = true
	}
	// boolean settings must match exactly
	rec := strings.ToLower(s.Recommended)
	if rec == "on" || rec == "off" || rec == "1" || rec == "0" {
		if !strings.EqualFold(current, s.Recommended) && current != s.Recommended {
			bad = true
		}
	}
	if !bad {
		return Issue{}, false
	}
	shown := current
	if shown == "" {
		shown = "(empty)"
	}
	return Issue{
		Category:    "PHP",
		Type:        "php_setting",
		Target:      version,
		Description: fmt.Sprintf("%s: %s (recommended: %s)", s.Description, shown, s.Recommended),
		Severity:    s.Severity,
		Fixable:     true,
		setting:     s.Name,
		value:       s.Recommended,
	}, true
}

var criticalServices = []struct{ Unit, Description string }{
	{"nginx", "Web server"},
	{"cron", "Scheduled tasks"},
	{"ssh", "SSH access"},
}

var bootServices = []struct{ Unit, Description string }{
	{"nginx", "Web server"},
	{"mysql", "MySQL database"},
	{"postgresql", "PostgreSQL database"},
	{"redis-server", "Redis cache"},
}

// Services checks critical units are running and enabled on boot.
func (a *Auditor) Services(ctx context.Context) []Issue {
	var issues []Issue
	plain := shell.Runner{}
	exists := func(unit string) bool {
		out := plain.Output(ctx, "systemctl", "list-unit-files", unit+".service")
		return strings.Contains(out, unit)
	}
	for _, svc := range criticalServices {
		if !exists(svc.Unit) {
			continue
		}
		if !plain.Run(ctx, "systemctl", "is-active", "--quiet", svc.Unit).Ok() {
			issues = append(issues, Issue{
				Category:    "Services",
				Type:        "service_not_running",
				Target:      svc.Unit,
				Description: svc.Description + " is not running",
				Severity:    SeverityHigh,
				Fixable:     true,
			})
		}
	}
	for _, svc := range bootServices {
		if !exists(svc.Unit) {
			continue
		}
		state := strings.TrimSpace(plain.Output(ctx, "systemctl", "is-enabled", svc.Unit))
		if state != "enabled" {
			issues = append(issues, Issue{
				Category:    "Services",
				Type:        "service_not_enabled",
				Target:      svc.Unit,
				Description: svc.Description + " not enabled on boot",
				Severity:    SeverityMedium,
				Fixable:     true,
			})
		}
	}
	return issues
}

// Security checks firewall, fail2ban, and sshd posture.
func (a *Auditor) Security(ctx context.Context) []Issue {
	var issues []Issue
	ufw := a.runner.Run(ctx, "ufw", "status")
	switch {
	case ufw.Code == 127:
		issues = append(issues, Issue{
			Category: "Security", Type: "security_firewall_missing",
			Description: "UFW firewall is not installed",
			Severity:    SeverityHigh, Fixable: true,
		})
	case strings.Contains(strings.ToLower(ufw.Stdout), "inactive"):
		issues = append(issues, Issue{
			Category: "Security", Type: "security_firewall",
			Description: "UFW firewall is inactive",
			Severity:    SeverityHigh, Fixable: true,
		})
	}

	plain := shell.Runner{}
	if !plain.Run(ctx, "systemctl", "is-active", "--quiet", "fail2ban").Ok() {
		if !shell.CommandExists("fail2ban-server") {
			issues = append(issues, Issue{
				Category: "Security", Type: "security_fail2ban_missing",
				Description: "Fail2ban is not installed",
				Severity:    SeverityHigh, Fixable: true,
			})
		} else {
			issues = append(issues, Issue{
				Category: "Security", Type: "security_fail2ban",
				Description: "Fail2ban is not running",
				Severity:    SeverityHigh, Fixable: true,
			})
		}
	}

	sshd := a.runner.Output(ctx, "grep", "^PermitRootLogin", "/etc/ssh/sshd_config")
	if strings.Contains(strings.ToLower(sshd), "yes") {
		issues = append(issues, Issue{
			Category: "Security", Type: "security_ssh_root",
			Description: "SSH root login is enabled",
			Severity:    SeverityHigh, Fixable: true,
		})
	}
	pw := a.runner.Output(ctx, "grep", "^PasswordAuthentication", "/etc/ssh/sshd_config")
	if strings.Contains(strings.ToLower(pw), "yes") {
		issues = append(issues, Issue{
			Category: "Security", Type: "security_ssh_password",
			Description: "SSH password authentication enabled",
			Severity:    SeverityMedium, Fixable: false,
		})
	}
	return issues
}

// All runs every audit.
func (a *Auditor) All(ctx context.Context, phpVersions []string) []Issue {
	var issues []Issue
	issues = append(issues, a.Nginx(ctx)...)
	issues = append(issues, a.PHP(ctx, phpVersions)...)
	issues = append(issues, a.Services(ctx)...)
	issues = append(issues, a.Security(ctx)...)
	return issues
}

// Fixable filters to issues Fix can handle.
func Fixable(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Fixable {
			out = append(out, i)
		}
	}
	return out
}
