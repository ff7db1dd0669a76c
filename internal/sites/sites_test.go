package sites

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDomain(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.com",
		"my-app.example.co.uk",
		"EXAMPLE.COM",
	}
	for _, d := range valid {
		if err := ValidateDomain(d); err != nil {
			t.Errorf("ValidateDomain(%q) = %v, want nil", d, err)
		}
	}

	invalid := []string{
		"",
		"nodot",
		"-bad.com",
		"bad-.com",
		"exa mple.com",
		"evil.com;rm -rf /",
		"$(whoami).com",
		"a/b.com",
		"exam`ple.com",
	}
	for _, d := range invalid {
		if err := ValidateDomain(d); !errors.Is(err, ErrInvalidDomain) {
			t.Errorf("ValidateDomain(%q) = %v, want ErrInvalidDomain", d, err)
		}
	}
}

func TestParseCertEnddate(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	days, ok := ParseCertEnddate("notAfter=May 31 12:00:00 2026 GMT", now)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if days != 30 {
		t.Errorf("days = %d, want 30", days)
	}

	days, ok = ParseCertEnddate("notAfter=Apr  1 00:00:00 2026 GMT", now)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if days >= 0 {
		t.Errorf("days = %d, want negative for expired cert", days)
	}

	if _, ok := ParseCertEnddate("garbage", now); ok {
		t.Error("expected parse failure")
	}
	if _, ok := ParseCertEnddate("", now); ok {
		t.Error("expected parse failure on empty input")
	}
}
