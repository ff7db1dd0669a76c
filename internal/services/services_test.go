package services

import (
	"testing"
	"time"
)

func TestParseMemoryMB(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"104857600", 100},
		{"0", 0},
		{"[not set]", 0},
		{"", 0},
		{"18446744073709551615", 0}, // systemd's "infinity"
	}
	for _, tt := range tests {
		if got := ParseMemoryMB(tt.in); got != tt.want {
			t.Errorf("ParseMemoryMB(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUptimeFromTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want string
	}{
		{"Tue 2026-08-25 09:00:00 UTC", "2d 3h"},
		{"Thu 2026-08-27 08:30:00 UTC", "3h 30m"},
		{"Thu 2026-08-27 11:45:00 UTC", "15m"},
		{"n/a", ""},
		{"", ""},
		{"garbage value here", ""},
	}
	for _, tt := range tests {
		if got := UptimeFromTimestamp(tt.in, now); got != tt.want {
			t.Errorf("UptimeFromTimestamp(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseProperties(t *testing.T) {
	out := "Description=A high performance web server\nActiveState=active\nMainPID=815\nRestartUSec=100ms"
	props := ParseProperties(out)
	if props["Description"] != "A high performance web server" {
		t.Errorf("Description = %q", props["Description"])
	}
	if props["MainPID"] != "815" {
		t.Errorf("MainPID = %q", props["MainPID"])
	}
	if len(props) != 4 {
		t.Errorf("len = %d, want 4", len(props))
	}
}

func TestFilterUnits(t *testing.T) {
	out := `  nginx.service          loaded active running A high performance web server
  php8.3-fpm.service     loaded active running The PHP 8.3 FastCGI Process Manager
  ssh.service            loaded active running OpenBSD Secure Shell server
  cron.service           loaded active running Regular background program processing daemon`

	matches := FilterUnits(out, "php")
	if len(matches) != 1 || matches[0] != "php8.3-fpm" {
		t.Fatalf("matches = %v", matches)
	}

	if matches := FilterUnits(out, "zzz"); len(matches) != 0 {
		t.Fatalf("matches = %v, want none", matches)
	}
}

func TestCatalogHasCriticalCategories(t *testing.T) {
	var critical int
	for _, cat := range Catalog() {
		if cat.Critical {
			critical++
		}
		if len(cat.Units) == 0 {
			t.Errorf("category %q has no units", cat.Name)
		}
	}
	if critical == 0 {
		t.Error("no critical categories defined")
	}
}
