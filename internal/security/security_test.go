package security

import (
	"reflect"
	"testing"
)

const clamscanOutput = `/var/www/site/shell.php: Php.Malware.Webshell-1 FOUND
/var/www/site/up.phtml: Php.Trojan.Uploader-2 FOUND

----------- SCAN SUMMARY -----------
Known viruses: 8704356
Engine version: 1.0.5
Scanned directories: 42
Scanned files: 1337
Infected files: 2
Data scanned: 156.32 MB
Data read: 140.11 MB (ratio 1.12:1)
Time: 48.210 sec (0 m 48 s)
`

func TestParseClamscanOutput(t *testing.T) {
	res := ParseClamscanOutput(clamscanOutput)
	if res.FilesScanned != 1337 {
		t.Errorf("FilesScanned = %d, want 1337", res.FilesScanned)
	}
	if res.Infected != 2 {
		t.Errorf("Infected = %d, want 2", res.Infected)
	}
	if res.DataScanned != "156.32 MB" {
		t.Errorf("DataScanned = %q", res.DataScanned)
	}
	want := []string{"/var/www/site/shell.php", "/var/www/site/up.phtml"}
	if !reflect.DeepEqual(res.InfectedList, want) {
		t.Errorf("InfectedList = %v, want %v", res.InfectedList, want)
	}
}

func TestParseClamscanOutputClean(t *testing.T) {
	out := `----------- SCAN SUMMARY -----------
Scanned files: 10
Infected files: 0
Data scanned: 0.50 MB
`
	res := ParseClamscanOutput(out)
	if res.Infected != 0 || len(res.InfectedList) != 0 {
		t.Errorf("expected clean result, got %+v", res)
	}
	if res.FilesScanned != 10 {
		t.Errorf("FilesScanned = %d, want 10", res.FilesScanned)
	}
}

func TestParseSigtoolInfo(t *testing.T) {
	out := `File: daily.cvd
Build time: 26 Aug 2026 08:30 -0400
Version: 27412
Signatures: 2074215
Functionality level: 90
`
	info := ParseSigtoolInfo(out)
	if info.Version != "27412" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.Signatures != "2074215" {
		t.Errorf("Signatures = %q", info.Signatures)
	}
	if info.BuildTime != "26 Aug 2026 08:30 -0400" {
		t.Errorf("BuildTime = %q", info.BuildTime)
	}
}

func TestParseChecksums(t *testing.T) {
	out := "abc123  /var/www/a.php\ndef456  /var/www/b.php\n\nbadline\n"
	files := ParseChecksums(out)
	if len(files) != 2 {
		t.Fatalf("got %d entries, want 2", len(files))
	}
	if files["/var/www/a.php"] != "abc123" {
		t.Errorf("a.php = %q", files["/var/www/a.php"])
	}
}

func TestDiffBaseline(t *testing.T) {
	baseline := map[string]string{
		"/w/kept.php":    "aaa",
		"/w/changed.php": "bbb",
		"/w/gone.php":    "ccc",
	}
	current := map[string]string{
		"/w/kept.php":    "aaa",
		"/w/changed.php": "xxx",
		"/w/new.php":     "ddd",
	}
	diff := DiffBaseline(baseline, current)
	if diff.Clean() {
		t.Fatal("diff should not be clean")
	}
	if !reflect.DeepEqual(diff.New, []string{"/w/new.php"}) {
		t.Errorf("New = %v", diff.New)
	}
	if !reflect.DeepEqual(diff.Deleted, []string{"/w/gone.php"}) {
		t.Errorf("Deleted = %v", diff.Deleted)
	}
	if !reflect.DeepEqual(diff.Modified, []string{"/w/changed.php"}) {
		t.Errorf("Modified = %v", diff.Modified)
	}
}

func TestDiffBaselineClean(t *testing.T) {
	files := map[string]string{"/w/a": "1"}
	if diff := DiffBaseline(files, files); !diff.Clean() {
		t.Errorf("identical sets should be clean: %+v", diff)
	}
}

func TestScanReportRoundTrip(t *testing.T) {
	s := NewScanner(t.TempDir())
	reports, err := s.Reports()
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 0 {
		t.Errorf("expected no reports in empty dir, got %d", len(reports))
	}
}
