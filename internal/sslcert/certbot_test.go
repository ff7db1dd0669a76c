package sslcert

import (
	"strings"
	"testing"
)

const certbotOutput = `Saving debug log to /var/log/letsencrypt/letsencrypt.log

- - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - -
Found the following certs:
  Certificate Name: example.com
    Serial Number: 4f8a9b
    Key Type: ECDSA
    Domains: example.com www.example.com
    Expiry Date: 2026-11-20 12:00:00+00:00 (VALID: 85 days)
    Certificate Path: /etc/letsencrypt/live/example.com/fullchain.pem
    Private Key Path: /etc/letsencrypt/live/example.com/privkey.pem
  Certificate Name: shop.example.org
    Serial Number: 77ac21
    Key Type: RSA
    Domains: shop.example.org
    Expiry Date: 2026-09-01 09:30:00+00:00 (VALID: 5 days)
    Certificate Path: /etc/letsencrypt/live/shop.example.org/fullchain.pem
- - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - - -`

func TestParseCertbotCertificates(t *testing.T) {
	certs := ParseCertbotCertificates(certbotOutput)
	if len(certs) != 2 {
		t.Fatalf("certs = %d, want 2", len(certs))
	}

	first := certs[0]
	if first.Name != "example.com" {
		t.Errorf("name = %q", first.Name)
	}
	if len(first.Domains) != 2 || first.Domains[1] != "www.example.com" {
		t.Errorf("domains = %v", first.Domains)
	}
	if first.Expiry.Year() != 2026 || first.Expiry.Month() != 11 {
		t.Errorf("expiry = %v", first.Expiry)
	}
	if first.CertPath != "/etc/letsencrypt/live/example.com/fullchain.pem" {
		t.Errorf("cert path = %q", first.CertPath)
	}

	if certs[1].Name != "shop.example.org" {
		t.Errorf("second name = %q", certs[1].Name)
	}
}

func TestParseCertbotCertificatesEmpty(t *testing.T) {
	if certs := ParseCertbotCertificates("No certificates found.\n"); len(certs) != 0 {
		t.Fatalf("certs = %v, want none", certs)
	}
}

func TestExpiryBadge(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{90, "ok"},
		{30, "ok"},
		{29, "expiring"},
		{7, "expiring"},
		{6, "critical"},
		{-1, "critical"},
	}
	for _, tt := range tests {
		if got := ExpiryBadge(tt.days); got != tt.want {
			t.Errorf("ExpiryBadge(%d) = %q, want %q", tt.days, got, tt.want)
		}
	}
}

func TestCertbotFailureHint(t *testing.T) {
	hint := certbotFailureHint("DNS problem: NXDOMAIN looking up A for example.com")
	if !strings.Contains(hint, "DNS records") {
		t.Errorf("hint = %q", hint)
	}
	hint = certbotFailureHint("Connection refused during validation")
	if !strings.Contains(hint, "port 80") {
		t.Errorf("hint = %q", hint)
	}
	hint = certbotFailureHint("some other failure")
	if !strings.Contains(hint, "DNS validation") {
		t.Errorf("hint = %q", hint)
	}
}

func TestDNSInstructionsMentionChallengeRecord(t *testing.T) {
	out := DNSInstructions("example.com")
	if !strings.Contains(out, "_acme-challenge.example.com") {
		t.Error("missing challenge record name")
	}
	if !strings.Contains(out, "--preferred-challenges dns") {
		t.Error("missing certbot command")
	}
}
