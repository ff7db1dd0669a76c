package cron

import (
	"strings"
	"testing"
)

func TestParseCrontab(t *testing.T) {
	content := `# m h dom mon dow command
MAILTO=admin@example.com
0 3 * * * /usr/local/bin/backup.sh
*/5 * * * * /usr/bin/forge collect
@reboot /usr/bin/pm2 resurrect
`
	entries := ParseCrontab(content)
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	if !entries[0].Comment || !entries[1].Comment {
		t.Error("comment/env lines should be marked as comments")
	}
	if entries[2].Schedule != "0 3 * * *" || entries[2].Command != "/usr/local/bin/backup.sh" {
		t.Errorf("entry = %+v", entries[2])
	}
	if entries[3].Schedule != "*/5 * * * *" {
		t.Errorf("entry = %+v", entries[3])
	}
	if entries[4].Schedule != "@reboot" || entries[4].Command != "/usr/bin/pm2 resurrect" {
		t.Errorf("entry = %+v", entries[4])
	}
}

func TestParseCrontabEmpty(t *testing.T) {
	if entries := ParseCrontab(""); len(entries) != 0 {
		t.Fatalf("entries = %v", entries)
	}
}

func TestEntryLineRoundTrip(t *testing.T) {
	e := Entry{Schedule: "0 3 * * *", Command: "/bin/job"}
	if e.Line() != "0 3 * * * /bin/job" {
		t.Errorf("line = %q", e.Line())
	}
	c := Entry{Command: "# note", Comment: true}
	if c.Line() != "# note" {
		t.Errorf("line = %q", c.Line())
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"* * * * *", "Every minute"},
		{"*/15 * * * *", "Every 15 minutes"},
		{"30 * * * *", "Hourly at minute 30"},
		{"0 3 * * *", "Daily at 3:00"},
		{"15 2 * * 0", "Weekly on Sunday at 2:15"},
		{"0 0 1 * *", "Monthly on day 1 at 0:00"},
		{"@reboot", "At every reboot"},
		{"@daily", "Daily at midnight"},
		{"1 2 3 4 5", "1 2 3 4 5"}, // too specific to summarize
	}
	for _, tt := range tests {
		if got := Describe(tt.in); got != tt.want {
			t.Errorf("Describe(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPresets(t *testing.T) {
	presets := Presets("/usr/local/bin/forge")
	if len(presets) == 0 {
		t.Fatal("no presets")
	}
	if presets[0].Command != "/usr/local/bin/forge collect" {
		t.Errorf("collect preset = %q", presets[0].Command)
	}
	for _, p := range presets {
		if len(strings.Fields(p.Schedule)) != 5 {
			t.Errorf("preset %q schedule %q is not 5 fields", p.Label, p.Schedule)
		}
	}
	// Falls back to a plain binary name when the path is unknown.
	if got := Presets("")[0].Command; got != "forge collect" {
		t.Errorf("fallback command = %q", got)
	}
}
