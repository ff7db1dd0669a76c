// Package sslcert provisions and manages TLS certificates, either by
// driving certbot or by speaking ACME directly.
package sslcert

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/shell"
)

// Certbot wraps the certbot CLI.
type Certbot struct {
	runner shell.Runner
}

func NewCertbot() *Certbot {
	return &Certbot{runner: shell.Runner{Sudo: true}}
}

// Available reports whether certbot is installed.
func (c *Certbot) Available() bool { return shell.CommandExists("certbot") }

// Provision requests a certificate using the nginx plugin; certbot
// edits the vhost and reloads nginx itself.
func (c *Certbot) Provision(ctx context.Context, domain string, includeWWW bool) error {
	args := []string{"--nginx", "-d", domain}
	if includeWWW {
		args = append(args, "-d", "www."+domain)
	}
	args = append(args, "--non-interactive", "--agree-tos", "--register-unsafely-without-email")

	res := c.runner.Run(ctx, "certbot", args...)
	if !res.Ok() {
		return fmt.Errorf("certbot failed: %s", certbotFailureHint(res.Stderr+res.Stdout))
	}
	return nil
}

// certbotFailureHint appends guidance for the common failure causes.
func certbotFailureHint(output string) string {
	hints := []string{}
	low := strings.ToLower(output)
	if strings.Contains(low, "dns") || strings.Contains(low, "nxdomain") {
		hints = append(hints, "check that the domain's DNS records point to this server")
	}
	if strings.Contains(low, "connection") || strings.Contains(low, "timeout") {
		hints = append(hints, "check that port 80 is reachable from the internet")
	}
	if len(hints) == 0 {
		hints = append(hints, "consider DNS validation if port 80 is blocked")
	}
	return strings.TrimSpace(output) + " (" + strings.Join(hints, "; ") + ")"
}

// DNSInstructions returns the manual DNS-challenge steps shown to the
// user, who must add the TXT record themselves.
func DNSInstructions(domain string) string {
	return fmt.Sprintf(`Run the following command and follow its prompts:

  sudo certbot certonly --manual --preferred-challenges dns -d %s

Certbot will ask you to create a TXT record:

  _acme-challenge.%s

Add the record at your DNS provider, wait for it to propagate
(dig TXT _acme-challenge.%s), then continue the certbot prompt.`, domain, domain, domain)
}

// Certificate is one entry parsed from `certbot certificates`.
type Certificate struct {
	Name          string
	Domains       []string
	Expiry        time.Time
	DaysRemaining int
	CertPath      string
}

// List returns the certificates certbot is tracking.
func (c *Certbot) List(ctx context.Context) ([]Certificate, error) {
	res := c.runner.Run(ctx, "certbot", "certificates")
	if !res.Ok() {
		return nil, fmt.Errorf("certbot certificates failed: %s", res.Stderr)
	}
	return ParseCertbotCertificates(res.Stdout), nil
}

var certbotExpiryRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)

// ParseCertbotCertificates parses `certbot certificates` output.
func ParseCertbotCertificates(output string) []Certificate {
	var certs []Certificate
	var cur *Certificate
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Certificate Name:"):
			if cur != nil {
				certs = append(certs, *cur)
			}
			cur = &Certificate{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "Certificate Name:"))}
		case cur == nil:
			continue
		case strings.HasPrefix(trimmed, "Domains:"):
			cur.Domains = strings.Fields(strings.TrimPrefix(trimmed, "Domains:"))
		case strings.HasPrefix(trimmed, "Expiry Date:"):
			if m := certbotExpiryRe.FindStringSubmatch(trimmed); m != nil {
				if t, err := time.Parse("2006-01-02 15:04:05", m[1]); err == nil {
					cur.Expiry = t
					cur.DaysRemaining = daysUntil(t)
				}
			}
		case strings.HasPrefix(trimmed, "Certificate Path:"):
			cur.CertPath = strings.TrimSpace(strings.TrimPrefix(trimmed, "Certificate Path:"))
		}
	}
	if cur != nil {
		certs = append(certs, *cur)
	}
	return certs
}

func daysUntil(t time.Time) int {
	return int(time.Until(t).Hours() / 24)
}

// Renew runs certbot's renewal pass for all due certificates.
func (c *Certbot) Renew(ctx context.Context) (string, error) {
	res := c.runner.Run(ctx, "certbot", "renew")
	if !res.Ok() {
		return "", fmt.Errorf("certbot renew failed: %s", res.Stderr)
	}
	return res.Stdout, nil
}

// Revoke revokes and deletes a certificate by name.
func (c *Certbot) Revoke(ctx context.Context, name string) error {
	res := c.runner.Run(ctx, "certbot", "revoke", "--cert-name", name, "--delete-after-revoke", "--non-interactive")
	if !res.Ok() {
		return fmt.Errorf("certbot revoke failed: %s", res.Stderr)
	}
	return nil
}

// ExpiryBadge classifies days-remaining into ok / expiring / critical
// for list displays.
func ExpiryBadge(days int) string {
	switch {
	case days < 7:
		return "critical"
	case days < 30:
		return "expiring"
	default:
		return "ok"
	}
}
