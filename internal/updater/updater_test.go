package updater

import (
	"context"
	"testing"
	"time"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"v1.2.0", "1.2", 0},
		{"0.9", "0.10.0", -1},
		{"2.0.0-beta", "2.0.0", 0},
		{"1.10.0", "1.9.9", 1},
	}
	for _, tc := range cases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCheckerFallbackWithoutCache(t *testing.T) {
	c := NewChecker("1.0.0")
	info := c.fallback("network down")
	if info.UpdateAvailable {
		t.Error("fallback must not report an update")
	}
	if info.Warning != "network down" {
		t.Errorf("Warning = %q", info.Warning)
	}
	if info.CurrentVersion != "1.0.0" || info.LatestVersion != "1.0.0" {
		t.Errorf("versions = %q/%q", info.CurrentVersion, info.LatestVersion)
	}
}

func TestCheckerServesFreshCache(t *testing.T) {
	c := NewChecker("1.0.0")
	c.lastInfo = &UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "v2.0.0", UpdateAvailable: true}
	c.lastAt = time.Now()

	info := c.Check(context.Background(), false)
	if info.LatestVersion != "v2.0.0" || !info.UpdateAvailable {
		t.Errorf("expected cached result, got %+v", info)
	}
	// returned copy must not alias the cache
	info.Warning = "mutated"
	if c.lastInfo.Warning != "" {
		t.Error("Check returned the cached pointer instead of a copy")
	}
}

func TestDevVersionNeverUpdates(t *testing.T) {
	c := NewChecker("")
	if c.currentVersion != "dev" {
		t.Errorf("default version = %q, want dev", c.currentVersion)
	}
}
