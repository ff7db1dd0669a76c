package cve

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestExtractCVEs(t *testing.T) {
	text := "openssl fix for CVE-2024-1234 and CVE-2024-5678, dup CVE-2024-1234"
	got := ExtractCVEs(text)
	want := []string{"CVE-2024-1234", "CVE-2024-5678"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCVEs = %v, want %v", got, want)
	}
	if got := ExtractCVEs("nothing here"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestParseUpgradable(t *testing.T) {
	out := `Listing... Done
openssl/noble-security 3.0.13-0ubuntu3.1 amd64 [upgradable from: 3.0.13-0ubuntu3]
curl/noble-updates 8.5.0-2ubuntu10.1 amd64 [upgradable from: 8.5.0-2ubuntu10]
`
	vulns := ParseUpgradable(out)
	if len(vulns) != 2 {
		t.Fatalf("got %d vulns, want 2", len(vulns))
	}
	if vulns[0].Package != "openssl" || vulns[0].Severity != "security" {
		t.Errorf("first = %+v", vulns[0])
	}
	if vulns[1].Package != "curl" || vulns[1].Severity != "update-available" {
		t.Errorf("second = %+v", vulns[1])
	}
}

func TestParseSecurityStatus(t *testing.T) {
	out := `libxml2 needs an update for CVE-2024-9999
some unrelated line
`
	vulns := ParseSecurityStatus(out)
	if len(vulns) != 1 {
		t.Fatalf("got %d vulns, want 1", len(vulns))
	}
	if vulns[0].Package != "libxml2" {
		t.Errorf("Package = %q", vulns[0].Package)
	}
	if !reflect.DeepEqual(vulns[0].CVEs, []string{"CVE-2024-9999"}) {
		t.Errorf("CVEs = %v", vulns[0].CVEs)
	}
}

func TestParseNpmAudit(t *testing.T) {
	data := []byte(`{
  "vulnerabilities": {
    "lodash": {
      "severity": "high",
      "range": "<4.17.21",
      "via": [{"cve": "CVE-2021-23337", "title": "Command Injection"}, "minimist"]
    },
    "axios": {
      "severity": "moderate",
      "range": "<1.6.0",
      "via": [{"title": "SSRF"}]
    }
  }
}`)
	vulns, err := ParseNpmAudit(data, "myapp", "/var/www/myapp")
	if err != nil {
		t.Fatal(err)
	}
	if len(vulns) != 2 {
		t.Fatalf("got %d vulns, want 2", len(vulns))
	}
	// sorted by package name
	if vulns[0].Package != "axios" || len(vulns[0].CVEs) != 0 {
		t.Errorf("axios = %+v", vulns[0])
	}
	if vulns[1].Package != "lodash" || !reflect.DeepEqual(vulns[1].CVEs, []string{"CVE-2021-23337"}) {
		t.Errorf("lodash = %+v", vulns[1])
	}
	if vulns[1].Severity != "high" || vulns[1].Project != "myapp" {
		t.Errorf("lodash meta = %+v", vulns[1])
	}
}

func TestParseComposerAudit(t *testing.T) {
	data := []byte(`{
  "advisories": {
    "laravel/framework": [
      {"cve": "CVE-2024-0001", "severity": "high", "title": "RCE in view rendering", "affectedVersions": "<10.48.2"}
    ]
  }
}`)
	vulns, err := ParseComposerAudit(data, "shop", "/var/www/shop")
	if err != nil {
		t.Fatal(err)
	}
	if len(vulns) != 1 {
		t.Fatalf("got %d vulns, want 1", len(vulns))
	}
	v := vulns[0]
	if v.Package != "laravel/framework" || v.Severity != "high" || v.Version != "<10.48.2" {
		t.Errorf("vuln = %+v", v)
	}
}

func TestParsePipAudit(t *testing.T) {
	data := []byte(`{
  "dependencies": [
    {"name": "django", "version": "4.2.0", "vulns": [{"id": "CVE-2024-2222", "description": "SQL injection"}]},
    {"name": "requests", "version": "2.31.0", "vulns": []}
  ]
}`)
	vulns, err := ParsePipAudit(data, "api", "/var/www/api")
	if err != nil {
		t.Fatal(err)
	}
	if len(vulns) != 1 {
		t.Fatalf("got %d vulns, want 1", len(vulns))
	}
	if vulns[0].Package != "django" || vulns[0].CVEs[0] != "CVE-2024-2222" {
		t.Errorf("vuln = %+v", vulns[0])
	}
}

func TestFindProjects(t *testing.T) {
	dir := t.TempDir()
	app := filepath.Join(dir, "myapp")
	os.MkdirAll(filepath.Join(app, "node_modules", "dep"), 0o755)
	os.WriteFile(filepath.Join(app, "package.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(app, "node_modules", "dep", "package.json"), []byte("{}"), 0o644)
	os.WriteFile(filepath.Join(app, "composer.json"), []byte("{}"), 0o644)

	projects := FindProjects([]string{dir})
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2 (node_modules must be skipped): %+v", len(projects), projects)
	}
	ecosystems := map[string]bool{}
	for _, p := range projects {
		ecosystems[p.Ecosystem] = true
		if p.Name != "myapp" {
			t.Errorf("Name = %q, want myapp", p.Name)
		}
	}
	if !ecosystems["nodejs"] || !ecosystems["php"] {
		t.Errorf("ecosystems = %v", ecosystems)
	}
}

func TestScannerSaveAndLatest(t *testing.T) {
	s := NewScanner(t.TempDir())
	result := FullResult{
		Type:      "full",
		Timestamp: time.Now().Truncate(time.Second),
		System:    []Vulnerability{{Type: "system", Package: "openssl", Severity: "security"}},
	}
	if err := s.Save(result); err != nil {
		t.Fatal(err)
	}
	loaded, ok, err := s.Latest("full")
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if loaded.Total() != 1 || loaded.System[0].Package != "openssl" {
		t.Errorf("loaded = %+v", loaded)
	}

	history, err := s.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("history = %d entries, want 1", len(history))
	}
}

func TestLastUpdateMissing(t *testing.T) {
	s := NewScanner(t.TempDir())
	if _, ok := s.LastUpdate(); ok {
		t.Error("expected no last update in empty dir")
	}
}
