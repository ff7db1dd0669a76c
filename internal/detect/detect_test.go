package detect

import "testing"

func TestParseNginxVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"nginx version: nginx/1.24.0 (Ubuntu)", "1.24.0"},
		{"nginx version: nginx/1.18.0", "1.18.0"},
		{"not nginx output", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseNginxVersion(tt.in); got != tt.want {
			t.Errorf("ParseNginxVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePHPVersion(t *testing.T) {
	out := "PHP 8.3.6 (cli) (built: Apr 15 2024 19:21:47) (NTS)\nCopyright (c) The PHP Group"
	if got := ParsePHPVersion(out); got != "8.3.6" {
		t.Errorf("got %q, want 8.3.6", got)
	}
	if got := ParsePHPVersion("command not found"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestParseMySQLVersion(t *testing.T) {
	ver, brand := ParseMySQLVersion("mysql  Ver 15.1 Distrib 10.11.6-MariaDB, for debian-linux-gnu")
	if brand != "MariaDB" {
		t.Errorf("brand = %q, want MariaDB", brand)
	}
	if ver != "15.1" {
		t.Errorf("ver = %q, want 15.1", ver)
	}

	ver, brand = ParseMySQLVersion("mysql  Ver 8.0.36 for Linux on x86_64 (MySQL Community Server)")
	if brand != "MySQL" {
		t.Errorf("brand = %q, want MySQL", brand)
	}
	if ver != "8.0.36" {
		t.Errorf("ver = %q, want 8.0.36", ver)
	}

	if _, brand := ParseMySQLVersion(""); brand != "" {
		t.Errorf("brand = %q, want empty for no output", brand)
	}
}

func TestCountPM2Processes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"[]", 0},
		{"", 0},
		{`[{"name":"app","pm2_env":{"status":"online"}}]`, 1},
		{`[{"name":"a","env":{"x":{}}},{"name":"b"}]`, 2},
	}
	for _, tt := range tests {
		if got := CountPM2Processes(tt.in); got != tt.want {
			t.Errorf("CountPM2Processes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
