// Package cron reads and edits the user crontab and explains schedules
// in plain language.
package cron

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/forgecli/forge/internal/shell"
)

// Entry is one crontab line split into schedule and command.
type Entry struct {
	Schedule string
	Command  string
	Comment  bool
}

// Line reassembles the crontab line.
func (e Entry) Line() string {
	if e.Comment {
		return e.Command
	}
	return e.Schedule + " " + e.Command
}

// Schedules are the presets offered when adding a job.
var Schedules = []struct {
	Label string
	Spec  string
}{
	{"Every minute", "* * * * *"},
	{"Every 5 minutes", "*/5 * * * *"},
	{"Every 15 minutes", "*/15 * * * *"},
	{"Hourly", "0 * * * *"},
	{"Daily at midnight", "0 0 * * *"},
	{"Daily at 3am", "0 3 * * *"},
	{"Weekly (Sunday midnight)", "0 0 * * 0"},
	{"Monthly (1st, midnight)", "0 0 1 * *"},
}

// Manager edits crontabs via the crontab binary.
type Manager struct {
	runner shell.Runner
}

func NewManager() *Manager { return &Manager{} }

// List returns the current user's crontab entries.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	res := m.runner.Run(ctx, "crontab", "-l")
	if res.Code == 1 && strings.Contains(res.Stderr, "no crontab") {
		return nil, nil
	}
	if !res.Ok() {
		return nil, fmt.Errorf("crontab -l failed: %s", res.Stderr)
	}
	return ParseCrontab(res.Stdout), nil
}

// ParseCrontab splits crontab text into entries; comments and blank
// lines are preserved as comment entries.
func ParseCrontab(content string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		fields := strings.Fields(trimmed)
		// comments and VAR=value lines pass through untouched
		if strings.HasPrefix(trimmed, "#") ||
			(strings.Contains(fields[0], "=") && !strings.HasPrefix(trimmed, "*")) {
			entries = append(entries, Entry{Command: line, Comment: true})
			continue
		}
		if strings.HasPrefix(trimmed, "@") {
			if len(fields) < 2 {
				entries = append(entries, Entry{Command: line, Comment: true})
				continue
			}
			entries = append(entries, Entry{Schedule: fields[0], Command: strings.Join(fields[1:], " ")})
			continue
		}
		if len(fields) < 6 {
			entries = append(entries, Entry{Command: line, Comment: true})
			continue
		}
		entries = append(entries, Entry{
			Schedule: strings.Join(fields[:5], " "),
			Command:  strings.Join(fields[5:], " "),
		})
	}
	return entries
}

// write replaces the whole crontab.
func (m *Manager) write(ctx context.Context, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	tmp, err := os.CreateTemp("", "forge-crontab-*")
	if err != nil {
		return fmt.Errorf("failed to create temp crontab: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp crontab: %w", err)
	}
	tmp.Close()

	res := m.runner.Run(ctx, "crontab", tmp.Name())
	if !res.Ok() {
		return fmt.Errorf("crontab install failed: %s", res.Stderr)
	}
	return nil
}

// Add appends a job unless an identical command is already scheduled.
func (m *Manager) Add(ctx context.Context, schedule, command string) error {
	entries, err := m.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Comment && e.Command == command {
			return fmt.Errorf("a job with that command already exists")
		}
	}
	entries = append(entries, Entry{Schedule: schedule, Command: command})
	return m.write(ctx, entries)
}

// Remove deletes the job whose command matches exactly.
func (m *Manager) Remove(ctx context.Context, command string) error {
	entries, err := m.List(ctx)
	if err != nil {
		return err
	}
	var kept []Entry
	removed := false
	for _, e := range entries {
		if !e.Comment && e.Command == command {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return fmt.Errorf("no job found with that command")
	}
	return m.write(ctx, kept)
}

// Describe renders a five-field cron schedule in plain language.
// Unrecognized patterns are returned as-is.
func Describe(schedule string) string {
	switch schedule {
	case "@reboot":
		return "At every reboot"
	case "@daily", "@midnight":
		return "Daily at midnight"
	case "@hourly":
		return "Every hour"
	case "@weekly":
		return "Weekly on Sunday at midnight"
	case "@monthly":
		return "Monthly on the 1st at midnight"
	case "@yearly", "@annually":
		return "Yearly on Jan 1 at midnight"
	}

	fields := strings.Fields(schedule)
	if len(fields) != 5 {
		return schedule
	}
	min, hour, dom, mon, dow := fields[0], fields[1], fields[2], fields[3], fields[4]

	if min == "*" && hour == "*" && dom == "*" && mon == "*" && dow == "*" {
		return "Every minute"
	}
	if strings.HasPrefix(min, "*/") && hour == "*" && dom == "*" && mon == "*" && dow == "*" {
		return fmt.Sprintf("Every %s minutes", strings.TrimPrefix(min, "*/"))
	}
	if min != "*" && hour == "*" && dom == "*" && mon == "*" && dow == "*" {
		return fmt.Sprintf("Hourly at minute %s", min)
	}
	if min != "*" && hour != "*" && dom == "*" && mon == "*" && dow == "*" {
		return fmt.Sprintf("Daily at %s:%s", hour, pad(min))
	}
	if min != "*" && hour != "*" && dom == "*" && mon == "*" && dow != "*" {
		return fmt.Sprintf("Weekly on %s at %s:%s", dayName(dow), hour, pad(min))
	}
	if min != "*" && hour != "*" && dom != "*" && mon == "*" && dow == "*" {
		return fmt.Sprintf("Monthly on day %s at %s:%s", dom, hour, pad(min))
	}
	return schedule
}

func pad(min string) string {
	if len(min) == 1 {
		return "0" + min
	}
	return min
}

func dayName(dow string) string {
	names := map[string]string{
		"0": "Sunday", "1": "Monday", "2": "Tuesday", "3": "Wednesday",
		"4": "Thursday", "5": "Friday", "6": "Saturday", "7": "Sunday",
	}
	if n, ok := names[dow]; ok {
		return n
	}
	return dow
}

// Preset is a ready-made job for common maintenance work.
type Preset struct {
	Label    string
	Schedule string
	Command  string
}

// Presets are offered in the add-job flow alongside free-form entry.
func Presets(binPath string) []Preset {
	if binPath == "" {
		binPath = "forge"
	}
	return []Preset{
		{"Collect metrics & evaluate alerts (every 5 min)", "*/5 * * * *", binPath + " collect"},
		{"Renew certificates (daily, certbot)", "0 3 * * *", "certbot renew --quiet --deploy-hook 'systemctl reload nginx'"},
		{"Clean apt cache & unused packages (weekly)", "0 4 * * 0", "apt-get clean && apt-get autoremove -y"},
		{"Back up /var/www (daily tarball)", "0 2 * * *", "tar czf /var/backups/www-$(date +\\%F).tar.gz /var/www"},
	}
}

// RenewalStatus reports how certbot renewals are scheduled on this
// host, if at all.
func RenewalStatus(ctx context.Context) string {
	r := shell.Runner{}
	if res := r.Run(ctx, "systemctl", "is-active", "--quiet", "certbot.timer"); res.Ok() {
		return "certbot.timer (systemd) handles renewals"
	}
	if _, err := os.Stat("/etc/cron.d/certbot"); err == nil {
		return "/etc/cron.d/certbot handles renewals"
	}
	return ""
}
