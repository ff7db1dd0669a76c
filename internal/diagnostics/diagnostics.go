// Package diagnostics runs health checks against the web stack and
// offers guided fixes for the HTTP errors users actually hit.
package diagnostics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

// ErrorGuide explains one HTTP error: what usually causes it and what
// to try.
type ErrorGuide struct {
	Code   int
	Name   string
	Causes []string
	Fixes  []string
}

// Guides covers the errors the diagnostics menu explains.
var Guides = []ErrorGuide{
	{
		Code: 403, Name: "Forbidden",
		Causes: []string{
			"Document root not readable by www-data",
			"Missing index file with autoindex off",
			"deny rule matching the request path",
		},
		Fixes: []string{
			"chown -R www-data:www-data <docroot>",
			"Check index directive matches an existing file",
			"Review location blocks in the vhost config",
		},
	},
	{
		Code: 404, Name: "Not Found",
		Causes: []string{
			"Wrong root directive in the vhost",
			"Missing rewrite for front-controller apps",
			"Deploy did not copy the expected files",
		},
		Fixes: []string{
			"Verify the root path exists and holds the app",
			"PHP apps need try_files ... /index.php?$query_string",
			"Compare deployed files against the expected layout",
		},
	},
	{
		Code: 419, Name: "Page Expired",
		Causes: []string{
			"CSRF token mismatch (Laravel)",
			"Session or cache store unavailable",
			"Wrong SESSION_DOMAIN behind a proxy",
		},
		Fixes: []string{
			"Check that redis/database sessions are reachable",
			"php artisan config:clear && php artisan cache:clear",
			"Set SESSION_DOMAIN and TRUSTED_PROXIES for the proxy",
		},
	},
	{
		Code: 500, Name: "Internal Server Error",
		Causes: []string{
			"Application exception or syntax error",
			"Wrong file permissions on storage directories",
			"Misconfigured .env or missing dependency",
		},
		Fixes: []string{
			"Check the site error log for the stack trace",
			"chmod -R 775 storage bootstrap/cache (Laravel)",
			"Re-run composer install / npm run build",
		},
	},
	{
		Code: 502, Name: "Bad Gateway",
		Causes: []string{
			"PHP-FPM or the app process is not running",
			"Wrong fastcgi_pass socket path or proxy port",
			"App crashed under load (OOM kill)",
		},
		Fixes: []string{
			"systemctl restart php8.3-fpm (or the app's service)",
			"Check the socket path in the vhost matches the FPM pool",
			"Check dmesg for OOM kills and raise memory limits",
		},
	},
	{
		Code: 504, Name: "Gateway Timeout",
		Causes: []string{
			"Upstream takes longer than proxy_read_timeout",
			"Slow database queries blocking requests",
			"FPM pool exhausted, requests queue forever",
		},
		Fixes: []string{
			"Raise proxy_read_timeout / fastcgi_read_timeout",
			"Profile slow queries (slow query log)",
			"Raise pm.max_children or optimize worker usage",
		},
	},
}

// GuideFor returns the guide for a status code.
func GuideFor(code int) (ErrorGuide, bool) {
	for _, g := range Guides {
		if g.Code == code {
			return g, true
		}
	}
	return ErrorGuide{}, false
}

// Runner performs the live checks.
type Runner struct {
	runner shell.Runner
}

func NewRunner() *Runner {
	return &Runner{runner: shell.Runner{Sudo: true}}
}

// NginxConfig validates the nginx configuration.
func (r *Runner) NginxConfig(ctx context.Context) models.HealthCheck {
	res := r.runner.Run(ctx, "nginx", "-t")
	if res.Code == 127 {
		return models.HealthCheck{Name: "Nginx config", Detail: "nginx is not installed"}
	}
	if !res.Ok() {
		return models.HealthCheck{Name: "Nginx config", Detail: res.Stderr}
	}
	return models.HealthCheck{Name: "Nginx config", OK: true, Detail: "syntax ok"}
}

// PHPFPM checks every installed FPM version is up and has workers.
func (r *Runner) PHPFPM(ctx context.Context, versions []string) []models.HealthCheck {
	var checks []models.HealthCheck
	plain := shell.Runner{}
	for _, v := range versions {
		unit := fmt.Sprintf("php%s-fpm", v)
		if res := plain.Run(ctx, "systemctl", "is-active", "--quiet", unit); !res.Ok() {
			checks = append(checks, models.HealthCheck{Name: unit, Detail: "not running"})
			continue
		}
		workers := strings.TrimSpace(plain.Output(ctx, "pgrep", "-c", "-f", unit))
		checks = append(checks, models.HealthCheck{Name: unit, OK: true, Detail: workers + " processes"})
	}
	if res := plain.Run(ctx, "id", "www-data"); !res.Ok() {
		checks = append(checks, models.HealthCheck{Name: "www-data user", Detail: "missing"})
	} else {
		checks = append(checks, models.HealthCheck{Name: "www-data user", OK: true, Detail: "present"})
	}
	return checks
}

// Permissions verifies ownership and mode of a directory.
func (r *Runner) Permissions(ctx context.Context, path, wantOwner string) models.HealthCheck {
	owner := strings.TrimSpace(r.runner.Output(ctx, "stat", "-c", "%U:%G", path))
	mode := strings.TrimSpace(r.runner.Output(ctx, "stat", "-c", "%a", path))
	if owner == "" {
		return models.HealthCheck{Name: path, Detail: "not found"}
	}
	ok := owner == wantOwner
	return models.HealthCheck{
		Name:   path,
		OK:     ok,
		Detail: fmt.Sprintf("%s mode %s", owner, mode),
	}
}

// PortConflict reports which process owns a port, and flags the
// classic apache2-grabbed-port-80 situation.
func (r *Runner) PortConflict(ctx context.Context, port int) models.HealthCheck {
	name := fmt.Sprintf("port %d", port)
	pids := strings.Fields(r.runner.Output(ctx, "lsof", "-i", fmt.Sprintf(":%d", port), "-sTCP:LISTEN", "-t"))
	if len(pids) == 0 {
		return models.HealthCheck{Name: name, OK: true, Detail: "free"}
	}
	var owners []string
	for _, pid := range pids {
		if comm := strings.TrimSpace(shell.Runner{}.Output(ctx, "ps", "-p", pid, "-o", "comm=")); comm != "" {
			owners = append(owners, comm+" (pid "+pid+")")
		}
	}
	detail := strings.Join(owners, ", ")
	plain := shell.Runner{}
	apacheUp := plain.Run(ctx, "systemctl", "is-active", "--quiet", "apache2").Ok()
	nginxUp := plain.Run(ctx, "systemctl", "is-active", "--quiet", "nginx").Ok()
	if port == 80 && apacheUp && nginxUp {
		detail += "; apache2 and nginx are both active and will fight over this port"
	}
	return models.HealthCheck{Name: name, OK: false, Detail: detail}
}

// Fix is an auto-remediation the user can pick. Dangerous fixes get an
// extra confirmation in the menu.
type Fix struct {
	Name      string
	Command   []string
	Dangerous bool
}

// Fixes lists the remediations offered by the auto-fix screen.
func Fixes(phpVersion string) []Fix {
	if phpVersion == "" {
		phpVersion = "8.3"
	}
	return []Fix{
		{Name: "Restart Nginx", Command: []string{"systemctl", "restart", "nginx"}},
		{Name: "Restart PHP-FPM " + phpVersion, Command: []string{"systemctl", "restart", "php" + phpVersion + "-fpm"}},
		{Name: "Validate nginx config", Command: []string{"nginx", "-t"}},
		{Name: "Reset /var/www ownership to www-data", Command: []string{"chown", "-R", "www-data:www-data", "/var/www"}, Dangerous: true},
		{Name: "Clear nginx cache", Command: []string{"sh", "-c", "rm -rf /var/cache/nginx/*"}, Dangerous: true},
	}
}

// Apply runs one fix.
func (r *Runner) Apply(ctx context.Context, f Fix) error {
	res := r.runner.Run(ctx, f.Command[0], f.Command[1:]...)
	if !res.Ok() {
		return fmt.Errorf("%s failed: %s", f.Name, res.Stderr)
	}
	return nil
}

// ParseGuideCode turns menu input like "502" into a code.
func ParseGuideCode(input string) (int, error) {
	code, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("not a status code: %q", input)
	}
	return code, nil
}
