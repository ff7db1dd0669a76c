// Package logs views, searches and summarizes nginx logs with
// status-code coloring and live tailing.
package logs

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/forgecli/forge/internal/shell"
	"github.com/forgecli/forge/internal/term"
)

// StatusDescriptions explains the HTTP error codes seen most often in
// nginx logs, including Laravel's 419 CSRF response.
var StatusDescriptions = map[int]string{
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	419: "Page Expired (CSRF token mismatch)",
	429: "Too Many Requests",
	500: "Internal Server Error",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// Viewer reads nginx log files, which normally require sudo.
type Viewer struct {
	LogDir string
	runner shell.Runner
}

func NewViewer(logDir string) *Viewer {
	return &Viewer{LogDir: logDir, runner: shell.Runner{Sudo: true}}
}

// Path returns the path of a named log file in the nginx log dir.
func (v *Viewer) Path(name string) string { return filepath.Join(v.LogDir, name) }

// Tail returns the last n lines of a log file.
func (v *Viewer) Tail(ctx context.Context, name string, n int) ([]string, error) {
	res := v.runner.Run(ctx, "tail", "-n", strconv.Itoa(n), v.Path(name))
	if !res.Ok() {
		return nil, fmt.Errorf("failed to read %s: %s", name, res.Stderr)
	}
	if res.Stdout == "" {
		return nil, nil
	}
	return strings.Split(res.Stdout, "\n"), nil
}

// Follow streams appended lines until ctx is cancelled.
func (v *Viewer) Follow(ctx context.Context, name string, fn func(line string)) error {
	return v.runner.Stream(ctx, fn, "tail", "-f", "-n", "20", v.Path(name))
}

// Search greps a log case-insensitively, returning the last 100 hits.
func (v *Viewer) Search(ctx context.Context, name, pattern string) ([]string, error) {
	res := v.runner.Run(ctx, "grep", "-i", "--", pattern, v.Path(name))
	if res.Code == 1 {
		return nil, nil // no matches
	}
	if !res.Ok() {
		return nil, fmt.Errorf("search failed: %s", res.Stderr)
	}
	lines := strings.Split(res.Stdout, "\n")
	if len(lines) > 100 {
		lines = lines[len(lines)-100:]
	}
	return lines, nil
}

// accessLogRe matches the status code field of the nginx combined
// format: ... "GET / HTTP/1.1" 200 612 ...
var accessLogRe = regexp.MustCompile(`" (\d{3}) `)

// ExtractStatus pulls the HTTP status code out of an access log line.
func ExtractStatus(line string) (int, bool) {
	if m := accessLogRe.FindStringSubmatch(line); m != nil {
		code, err := strconv.Atoi(m[1])
		return code, err == nil
	}
	return 0, false
}

// ExtractIP returns the client address (first field) of an access line.
func ExtractIP(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Colorize highlights the status code of an access log line, or the
// level token of an error log line.
func Colorize(line string) string {
	if code, ok := ExtractStatus(line); ok {
		styled := term.StyleForStatus(code).Render(strconv.Itoa(code))
		return accessLogRe.ReplaceAllString(line, `" `+styled+" ")
	}
	for _, level := range []string{"[emerg]", "[alert]", "[crit]", "[error]", "[warn]", "[notice]"} {
		if strings.Contains(line, level) {
			name := strings.Trim(level, "[]")
			return strings.Replace(line, level, term.StyleForLevel(name).Render(level), 1)
		}
	}
	return line
}

// ErrorSummary aggregates 4xx/5xx traffic from access log lines.
type ErrorSummary struct {
	StatusCounts map[int]int
	TopIPs       []IPCount
	RecentErrors []string
	Total        int
}

// IPCount pairs a client address with its error hit count.
type IPCount struct {
	IP    string
	Count int
}

// Summarize builds an error report from access log lines: status
// histogram, top offending client addresses and the most recent error
// lines.
func Summarize(lines []string) ErrorSummary {
	s := ErrorSummary{StatusCounts: make(map[int]int)}
	ipCounts := make(map[string]int)
	for _, line := range lines {
		code, ok := ExtractStatus(line)
		if !ok || code < 400 {
			continue
		}
		s.Total++
		s.StatusCounts[code]++
		if ip := ExtractIP(line); ip != "" {
			ipCounts[ip]++
		}
		s.RecentErrors = append(s.RecentErrors, line)
	}
	if len(s.RecentErrors) > 5 {
		s.RecentErrors = s.RecentErrors[len(s.RecentErrors)-5:]
	}
	for ip, n := range ipCounts {
		s.TopIPs = append(s.TopIPs, IPCount{IP: ip, Count: n})
	}
	sort.Slice(s.TopIPs, func(i, j int) bool {
		if s.TopIPs[i].Count != s.TopIPs[j].Count {
			return s.TopIPs[i].Count > s.TopIPs[j].Count
		}
		return s.TopIPs[i].IP < s.TopIPs[j].IP
	})
	if len(s.TopIPs) > 10 {
		s.TopIPs = s.TopIPs[:10]
	}
	return s
}

// FilterLevel keeps error-log lines at or above a level name
// ("error" keeps error, crit, alert, emerg).
func FilterLevel(lines []string, level string) []string {
	order := []string{"emerg", "alert", "crit", "error", "warn", "notice", "info", "debug"}
	idx := len(order)
	for i, l := range order {
		if l == level {
			idx = i
			break
		}
	}
	var out []string
	for _, line := range lines {
		for i := 0; i <= idx && i < len(order); i++ {
			if strings.Contains(line, "["+order[i]+"]") {
				out = append(out, line)
				break
			}
		}
	}
	return out
}
