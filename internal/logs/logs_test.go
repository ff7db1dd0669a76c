package logs

import (
	"strings"
	"testing"
)

const accessLine = `203.0.113.5 - - [27/Aug/2026:10:15:32 +0000] "GET /index.php HTTP/1.1" 200 612 "-" "Mozilla/5.0"`
const errorLine404 = `198.51.100.7 - - [27/Aug/2026:10:16:01 +0000] "GET /missing HTTP/1.1" 404 162 "-" "curl/8.0"`
const errorLine502 = `198.51.100.7 - - [27/Aug/2026:10:16:05 +0000] "POST /api HTTP/1.1" 502 150 "-" "curl/8.0"`

func TestExtractStatus(t *testing.T) {
	code, ok := ExtractStatus(accessLine)
	if !ok || code != 200 {
		t.Errorf("got %d, %v", code, ok)
	}
	code, ok = ExtractStatus(errorLine502)
	if !ok || code != 502 {
		t.Errorf("got %d, %v", code, ok)
	}
	if _, ok := ExtractStatus("2026/08/27 10:00:00 [error] 815#815: *1 connect() failed"); ok {
		t.Error("error log line should not yield a status")
	}
}

func TestExtractIP(t *testing.T) {
	if ip := ExtractIP(accessLine); ip != "203.0.113.5" {
		t.Errorf("ip = %q", ip)
	}
	if ip := ExtractIP(""); ip != "" {
		t.Errorf("ip = %q, want empty", ip)
	}
}

func TestSummarize(t *testing.T) {
	lines := []string{
		accessLine,
		errorLine404, errorLine404, errorLine404,
		errorLine502,
		`203.0.113.9 - - [27/Aug/2026:10:20:00 +0000] "GET /x HTTP/1.1" 404 162 "-" "-"`,
	}
	s := Summarize(lines)
	if s.Total != 5 {
		t.Errorf("total = %d, want 5", s.Total)
	}
	if s.StatusCounts[404] != 4 || s.StatusCounts[502] != 1 {
		t.Errorf("counts = %v", s.StatusCounts)
	}
	if s.StatusCounts[200] != 0 {
		t.Error("2xx must not be counted")
	}
	if len(s.TopIPs) == 0 || s.TopIPs[0].IP != "198.51.100.7" || s.TopIPs[0].Count != 4 {
		t.Errorf("top ips = %v", s.TopIPs)
	}
	if len(s.RecentErrors) != 5 {
		t.Errorf("recent = %d, want 5", len(s.RecentErrors))
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || len(s.TopIPs) != 0 {
		t.Errorf("summary = %+v", s)
	}
}

func TestFilterLevel(t *testing.T) {
	lines := []string{
		"2026/08/27 [error] upstream timed out",
		"2026/08/27 [warn] conflicting server name",
		"2026/08/27 [crit] SSL_do_handshake failed",
		"2026/08/27 [notice] signal process started",
	}
	out := FilterLevel(lines, "error")
	if len(out) != 2 {
		t.Fatalf("out = %v, want 2 lines", out)
	}
	out = FilterLevel(lines, "warn")
	if len(out) != 3 {
		t.Fatalf("out = %v, want 3 lines", out)
	}
}

func TestColorizePreservesContent(t *testing.T) {
	out := Colorize(errorLine404)
	if !strings.Contains(out, "/missing") {
		t.Error("colorized line lost content")
	}
	plain := "plain line with no status"
	if Colorize(plain) != plain {
		t.Error("line without status should be unchanged")
	}
}

func TestStatusDescriptionsCover419(t *testing.T) {
	if _, ok := StatusDescriptions[419]; !ok {
		t.Error("419 should be described")
	}
}
