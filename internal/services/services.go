// Package services manages systemd units: status dashboards,
// start/stop/restart/reload, boot enablement, logs and discovery.
package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

// Category groups related units for the dashboard.
type Category struct {
	Name     string
	Units    []string
	Critical bool
}

// Catalog lists the units forge knows how to manage, in display order.
func Catalog() []Category {
	return []Category{
		{Name: "Web Servers", Units: []string{"nginx", "apache2", "caddy"}, Critical: true},
		{Name: "PHP-FPM", Units: []string{
			"php8.5-fpm", "php8.4-fpm", "php8.3-fpm", "php8.2-fpm",
			"php8.1-fpm", "php8.0-fpm", "php7.4-fpm",
		}, Critical: true},
		{Name: "Databases", Units: []string{"mysql", "mariadb", "postgresql", "mongod"}, Critical: true},
		{Name: "Cache", Units: []string{"redis-server", "memcached"}},
		{Name: "Queue Workers", Units: []string{"supervisor", "rabbitmq-server", "beanstalkd"}},
		{Name: "Mail", Units: []string{"postfix", "dovecot"}},
		{Name: "Monitoring", Units: []string{"prometheus", "grafana-server", "node_exporter"}},
		{Name: "Security", Units: []string{"ufw", "fail2ban", "clamav-daemon", "clamav-freshclam"}},
		{Name: "SSL", Units: []string{"certbot.timer"}},
		{Name: "System", Units: []string{"cron", "ssh", "rsyslog", "systemd-timesyncd"}},
		{Name: "Containers", Units: []string{"docker", "containerd"}},
	}
}

// Manager wraps systemctl and journalctl.
type Manager struct {
	runner shell.Runner
}

func NewManager() *Manager {
	return &Manager{runner: shell.Runner{Sudo: true}}
}

// Installed reports whether a unit file exists for the service.
func (m *Manager) Installed(ctx context.Context, unit string) bool {
	name := unit
	if !strings.Contains(name, ".") {
		name += ".service"
	}
	res := shell.Runner{}.Run(ctx, "systemctl", "list-unit-files", name)
	return res.Ok() && strings.Contains(res.Stdout, name)
}

// Status returns the live state of one unit.
func (m *Manager) Status(ctx context.Context, unit string) models.ServiceStatus {
	r := shell.Runner{}
	st := models.ServiceStatus{Name: unit}
	st.Active = strings.TrimSpace(r.Run(ctx, "systemctl", "is-active", unit).Stdout)
	st.Enabled = strings.TrimSpace(r.Run(ctx, "systemctl", "is-enabled", unit).Stdout)
	st.SubState = strings.TrimSpace(r.Output(ctx, "systemctl", "show", unit, "--property=SubState", "--value"))

	if mem := r.Output(ctx, "systemctl", "show", unit, "--property=MemoryCurrent", "--value"); mem != "" {
		st.MemoryMB = ParseMemoryMB(mem)
	}
	if ts := r.Output(ctx, "systemctl", "show", unit, "--property=ActiveEnterTimestamp", "--value"); ts != "" {
		st.Uptime = UptimeFromTimestamp(ts, time.Now())
	}
	return st
}

// ParseMemoryMB converts systemd's MemoryCurrent (bytes, or
// "[not set]") to megabytes.
func ParseMemoryMB(value string) float64 {
	value = strings.TrimSpace(value)
	bytes, err := strconv.ParseUint(value, 10, 64)
	if err != nil || bytes == (1<<64-1) {
		return 0
	}
	return float64(bytes) / (1024 * 1024)
}

// UptimeFromTimestamp turns an ActiveEnterTimestamp value
// ("Tue 2026-08-25 10:00:00 UTC") into a short "2d 3h" style string.
func UptimeFromTimestamp(value string, now time.Time) string {
	value = strings.TrimSpace(value)
	if value == "" || value == "n/a" {
		return ""
	}
	fields := strings.Fields(value)
	// strip weekday prefix and timezone suffix
	if len(fields) >= 3 {
		value = fields[1] + " " + fields[2]
	}
	t, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		return ""
	}
	d := now.Sub(t)
	if d < 0 {
		return ""
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

// Start/Stop/Restart/Reload drive unit state via systemctl.
func (m *Manager) Start(ctx context.Context, unit string) error   { return m.ctl(ctx, "start", unit) }
func (m *Manager) Stop(ctx context.Context, unit string) error    { return m.ctl(ctx, "stop", unit) }
func (m *Manager) Restart(ctx context.Context, unit string) error { return m.ctl(ctx, "restart", unit) }

// Reload reloads the unit, falling back to restart for units that do
// not support reload.
func (m *Manager) Reload(ctx context.Context, unit string) error {
	if err := m.ctl(ctx, "reload", unit); err != nil {
		return m.ctl(ctx, "restart", unit)
	}
	return nil
}

func (m *Manager) Enable(ctx context.Context, unit string) error  { return m.ctl(ctx, "enable", unit) }
func (m *Manager) Disable(ctx context.Context, unit string) error { return m.ctl(ctx, "disable", unit) }

func (m *Manager) ctl(ctx context.Context, verb, unit string) error {
	res := m.runner.Run(ctx, "systemctl", verb, unit)
	if !res.Ok() {
		return fmt.Errorf("systemctl %s %s failed: %s", verb, unit, res.Stderr)
	}
	return nil
}

// InstalledUnits filters the catalog down to units present on this
// host, keeping category order.
func (m *Manager) InstalledUnits(ctx context.Context) []Category {
	var out []Category
	for _, cat := range Catalog() {
		present := Category{Name: cat.Name, Critical: cat.Critical}
		for _, unit := range cat.Units {
			if m.Installed(ctx, unit) {
				present.Units = append(present.Units, unit)
			}
		}
		if len(present.Units) > 0 {
			out = append(out, present)
		}
	}
	return out
}

// CriticalDown lists critical units that are installed but not active.
func (m *Manager) CriticalDown(ctx context.Context) []string {
	var down []string
	for _, cat := range m.InstalledUnits(ctx) {
		if !cat.Critical {
			continue
		}
		for _, unit := range cat.Units {
			if st := m.Status(ctx, unit); st.Active != "active" {
				down = append(down, unit)
			}
		}
	}
	return down
}

// Logs fetches recent journal lines for a unit.
func (m *Manager) Logs(ctx context.Context, unit string, lines int, since string) (string, error) {
	args := []string{"-u", unit, "--no-pager"}
	if since != "" {
		args = append(args, "--since", since)
	} else {
		args = append(args, "-n", strconv.Itoa(lines))
	}
	res := m.runner.Run(ctx, "journalctl", args...)
	if !res.Ok() {
		return "", fmt.Errorf("journalctl failed: %s", res.Stderr)
	}
	return res.Stdout, nil
}

// FollowLogs streams journal lines until ctx is cancelled.
func (m *Manager) FollowLogs(ctx context.Context, unit string, fn func(line string)) error {
	return m.runner.Stream(ctx, fn, "journalctl", "-u", unit, "-f", "--no-pager")
}

// Details returns the properties shown on the unit detail screen.
func (m *Manager) Details(ctx context.Context, unit string) map[string]string {
	props := []string{
		"Description", "LoadState", "ActiveState", "SubState", "MainPID",
		"ExecMainStartTimestamp", "MemoryCurrent", "TasksCurrent", "Restart", "RestartUSec",
	}
	out := shell.Runner{}.Output(ctx, "systemctl", "show", unit,
		"--property="+strings.Join(props, ","))
	return ParseProperties(out)
}

// ParseProperties parses `systemctl show` key=value output.
func ParseProperties(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		if key, value, ok := strings.Cut(line, "="); ok {
			props[key] = value
		}
	}
	return props
}

// Find searches all known units for a name fragment.
func (m *Manager) Find(ctx context.Context, query string) []string {
	out := shell.Runner{}.Output(ctx, "systemctl", "list-units", "--type=service", "--all", "--no-legend", "--no-pager")
	return FilterUnits(out, query)
}

// FilterUnits extracts unit names matching query from
// `systemctl list-units` output.
func FilterUnits(output, query string) []string {
	query = strings.ToLower(query)
	var matches []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimLeft(line, "● "))
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if strings.HasSuffix(name, ".service") && strings.Contains(strings.ToLower(name), query) {
			matches = append(matches, strings.TrimSuffix(name, ".service"))
		}
		if len(matches) >= 30 {
			break
		}
	}
	return matches
}
