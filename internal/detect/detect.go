// Package detect probes the host for installed server software,
// reporting version and running state for the status screen.
package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

var (
	nginxVersionRe = regexp.MustCompile(`nginx/(\d+\.\d+\.\d+)`)
	phpVersionRe   = regexp.MustCompile(`PHP (\d+\.\d+\.\d+)`)
	pgVersionRe    = regexp.MustCompile(`(\d+\.\d+)`)
	genericVerRe   = regexp.MustCompile(`(\d+\.\d+(\.\d+)?)`)
)

func isActive(ctx context.Context, unit string) bool {
	res := shell.Runner{}.Run(ctx, "systemctl", "is-active", "--quiet", unit)
	return res.Ok()
}

// Nginx probes for nginx. The version banner goes to stderr.
func Nginx(ctx context.Context) models.Detection {
	d := models.Detection{Name: "Nginx"}
	if !shell.CommandExists("nginx") {
		return d
	}
	d.Installed = true
	res := shell.Runner{}.Run(ctx, "nginx", "-v")
	d.Version = ParseNginxVersion(res.Stderr + res.Stdout)
	d.Running = isActive(ctx, "nginx")
	return d
}

// ParseNginxVersion extracts the version from `nginx -v` output.
func ParseNginxVersion(output string) string {
	if m := nginxVersionRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// PHP probes the default php binary and counts loaded extensions.
func PHP(ctx context.Context) models.Detection {
	d := models.Detection{Name: "PHP"}
	if !shell.CommandExists("php") {
		return d
	}
	d.Installed = true
	r := shell.Runner{}
	d.Version = ParsePHPVersion(r.Output(ctx, "php", "-v"))
	if mods := r.Output(ctx, "php", "-m"); mods != "" {
		count := 0
		for _, line := range strings.Split(mods, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "[") {
				count++
			}
		}
		d.Details = fmt.Sprintf("%d extensions", count)
	}
	if d.Version != "" {
		major := strings.Join(strings.SplitN(d.Version, ".", 3)[:2], ".")
		d.Running = isActive(ctx, "php"+major+"-fpm")
	}
	return d
}

// ParsePHPVersion extracts the version from `php -v` output.
func ParsePHPVersion(output string) string {
	if m := phpVersionRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// Node probes for node, noting an NVM-managed install.
func Node(ctx context.Context) models.Detection {
	d := models.Detection{Name: "Node.js"}
	if !shell.CommandExists("node") {
		return d
	}
	d.Installed = true
	d.Running = true // no daemon; installed means usable
	out := shell.Runner{}.Output(ctx, "node", "-v")
	d.Version = strings.TrimPrefix(strings.TrimSpace(out), "v")
	if path := (shell.Runner{}).Output(ctx, "sh", "-c", "command -v node"); strings.Contains(path, ".nvm") {
		d.Details = "via NVM"
	}
	return d
}

// PM2 probes for pm2 and counts managed processes.
func PM2(ctx context.Context) models.Detection {
	d := models.Detection{Name: "PM2"}
	if !shell.CommandExists("pm2") {
		return d
	}
	d.Installed = true
	r := shell.Runner{}
	if m := genericVerRe.FindStringSubmatch(r.Output(ctx, "pm2", "--version")); m != nil {
		d.Version = m[1]
	}
	if jlist := r.Output(ctx, "pm2", "jlist"); jlist != "" {
		n := CountPM2Processes(jlist)
		d.Running = n > 0
		d.Details = fmt.Sprintf("%d processes", n)
	}
	return d
}

// CountPM2Processes counts entries in `pm2 jlist` JSON without
// decoding the full process description.
func CountPM2Processes(jlist string) int {
	jlist = strings.TrimSpace(jlist)
	if jlist == "" || jlist == "[]" {
		return 0
	}
	depth, count := 0, 0
	for _, c := range jlist {
		switch c {
		case '{':
			if depth == 1 {
				count++
			}
			depth++
		case '}':
			depth--
		case '[':
			if depth == 0 {
				depth = 1
			}
		}
	}
	return count
}

// Redis probes for redis, checking both unit names in use on Ubuntu.
func Redis(ctx context.Context) models.Detection {
	d := models.Detection{Name: "Redis"}
	if !shell.CommandExists("redis-cli") {
		return d
	}
	d.Installed = true
	if m := genericVerRe.FindStringSubmatch(shell.Runner{}.Output(ctx, "redis-cli", "--version")); m != nil {
		d.Version = m[1]
	}
	d.Running = isActive(ctx, "redis-server") || isActive(ctx, "redis")
	return d
}

// Certbot probes for certbot.
func Certbot(ctx context.Context) models.Detection {
	d := models.Detection{Name: "Certbot"}
	if !shell.CommandExists("certbot") {
		return d
	}
	d.Installed = true
	d.Running = true
	if m := genericVerRe.FindStringSubmatch(shell.Runner{}.Output(ctx, "certbot", "--version")); m != nil {
		d.Version = m[1]
	}
	return d
}

// MySQL probes for mysql or mariadb, reporting which brand answered.
func MySQL(ctx context.Context) models.Detection {
	d := models.Detection{Name: "MySQL"}
	if !shell.CommandExists("mysql") {
		return d
	}
	d.Installed = true
	out := shell.Runner{}.Output(ctx, "mysql", "--version")
	d.Version, d.Details = ParseMySQLVersion(out)
	if d.Details == "MariaDB" {
		d.Name = "MariaDB"
		d.Running = isActive(ctx, "mariadb") || isActive(ctx, "mysql")
	} else {
		d.Running = isActive(ctx, "mysql")
	}
	return d
}

// ParseMySQLVersion extracts version and brand from `mysql --version`.
func ParseMySQLVersion(output string) (version, brand string) {
	if strings.Contains(output, "MariaDB") {
		brand = "MariaDB"
	} else if output != "" {
		brand = "MySQL"
	}
	if m := genericVerRe.FindStringSubmatch(output); m != nil {
		version = m[1]
	}
	return version, brand
}

// PostgreSQL probes for psql.
func PostgreSQL(ctx context.Context) models.Detection {
	d := models.Detection{Name: "PostgreSQL"}
	if !shell.CommandExists("psql") {
		return d
	}
	d.Installed = true
	if m := pgVersionRe.FindStringSubmatch(shell.Runner{}.Output(ctx, "psql", "--version")); m != nil {
		d.Version = m[1]
	}
	d.Running = isActive(ctx, "postgresql")
	return d
}

// Composer probes for composer.
func Composer(ctx context.Context) models.Detection {
	d := models.Detection{Name: "Composer"}
	if !shell.CommandExists("composer") {
		return d
	}
	d.Installed = true
	d.Running = true
	if m := genericVerRe.FindStringSubmatch(shell.Runner{}.Output(ctx, "composer", "--version")); m != nil {
		d.Version = m[1]
	}
	return d
}

// All runs every detector in display order.
func All(ctx context.Context) []models.Detection {
	return []models.Detection{
		Nginx(ctx),
		PHP(ctx),
		Node(ctx),
		PM2(ctx),
		MySQL(ctx),
		PostgreSQL(ctx),
		Redis(ctx),
		Certbot(ctx),
		Composer(ctx),
	}
}
