// Package updater checks GitHub releases for newer builds and can
// self-update git installs.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forgecli/forge/internal/shell"
)

const (
	githubRepo          = "forgecli/forge"
	githubReleasesAPI   = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
	updateCheckCacheTTL = 30 * time.Minute
)

// Version is set via -ldflags at build time.
var Version = "dev"

// GitHubRelease is the subset of the release API response we read.
type GitHubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// UpdateInfo is the result of a version check.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseNotes    string
	ReleaseURL      string
	PublishedAt     time.Time
	Warning         string
}

// Checker caches release lookups to stay under GitHub rate limits.
type Checker struct {
	currentVersion string

	mu       sync.RWMutex
	lastInfo *UpdateInfo
	lastAt   time.Time
}

func NewChecker(version string) *Checker {
	if version == "" {
		version = Version
	}
	return &Checker{currentVersion: version}
}

var versionPartRe = regexp.MustCompile(`^(\d+)`)

// CompareVersions orders two dotted version strings. Returns -1 when a
// is older, 0 when equal, 1 when newer. Pre-release suffixes after a
// number are ignored.
func CompareVersions(a, b string) int {
	pa, pb := parseVersion(a), parseVersion(b)
	for len(pa) < len(pb) {
		pa = append(pa, 0)
	}
	for len(pb) < len(pa) {
		pb = append(pb, 0)
	}
	for i := range pa {
		if pa[i] < pb[i] {
			return -1
		}
		if pa[i] > pb[i] {
			return 1
		}
	}
	return 0
}

func parseVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var parts []int
	for _, p := range strings.Split(v, ".") {
		m := versionPartRe.FindString(p)
		n := 0
		if m != "" {
			n, _ = strconv.Atoi(m)
		}
		parts = append(parts, n)
	}
	return parts
}

// Check queries the release API. Non-forced calls serve cached results
// within the TTL. Network failures degrade to a warning, never an
// error, so startup checks cannot break the CLI.
func (c *Checker) Check(ctx context.Context, force bool) *UpdateInfo {
	if !force {
		c.mu.RLock()
		cached, cachedAt := c.lastInfo, c.lastAt
		c.mu.RUnlock()
		if cached != nil && time.Since(cachedAt) < updateCheckCacheTTL {
			cp := *cached
			return &cp
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubReleasesAPI, nil)
	if err != nil {
		return c.fallback("Unable to create update-check request.")
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Forge/"+c.currentVersion)

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("update check failed", "error", err)
		return c.fallback("Unable to reach the GitHub release API right now.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("update check returned non-200", "status_code", resp.StatusCode)
		return c.fallback(fmt.Sprintf("GitHub API returned status %d.", resp.StatusCode))
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		slog.Warn("update check response parse failed", "error", err)
		return c.fallback("Failed to parse the GitHub release response.")
	}

	available := c.currentVersion != "dev" &&
		CompareVersions(c.currentVersion, release.TagName) < 0

	info := &UpdateInfo{
		CurrentVersion:  c.currentVersion,
		LatestVersion:   release.TagName,
		UpdateAvailable: available,
		ReleaseNotes:    release.Body,
		ReleaseURL:      release.HTMLURL,
		PublishedAt:     release.PublishedAt,
	}
	c.mu.Lock()
	c.lastInfo = info
	c.lastAt = time.Now().UTC()
	c.mu.Unlock()
	cp := *info
	return &cp
}

func (c *Checker) fallback(warning string) *UpdateInfo {
	c.mu.RLock()
	cached := c.lastInfo
	c.mu.RUnlock()
	if cached != nil {
		cp := *cached
		cp.Warning = warning
		return &cp
	}
	return &UpdateInfo{
		CurrentVersion: c.currentVersion,
		LatestVersion:  c.currentVersion,
		Warning:        warning,
	}
}

// SelfUpdate pulls the latest source when running from a git checkout.
// Binary installs are pointed at the release page instead.
func SelfUpdate(ctx context.Context, info *UpdateInfo) error {
	r := shell.Runner{}
	out := strings.TrimSpace(r.Output(ctx, "git", "rev-parse", "--is-inside-work-tree"))
	if out != "true" {
		return fmt.Errorf("not a git install; download the latest release from %s", info.ReleaseURL)
	}
	r.Run(ctx, "git", "stash")
	if res := r.Run(ctx, "git", "pull", "origin", "main"); !res.Ok() {
		return fmt.Errorf("git pull: %s", res.Stderr)
	}
	return nil
}
