// Package netutil answers networking questions: what addresses this
// host has, whether a domain points here, and whether sites respond.
package netutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/shell"
)

const userAgent = "Forge/1.0"

var publicIPServices = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
	"https://checkip.amazonaws.com",
}

// LocalIPs returns the host's non-loopback addresses from `ip -o addr`.
func LocalIPs(ctx context.Context) []string {
	out := shell.Runner{}.Output(ctx, "ip", "-o", "addr", "show")
	return ParseLocalIPs(out)
}

// ParseLocalIPs extracts addresses from `ip -o addr show` output,
// skipping loopback and link-local.
func ParseLocalIPs(output string) []string {
	var ips []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		for i, f := range fields {
			if f != "inet" && f != "inet6" {
				continue
			}
			if i+1 >= len(fields) {
				continue
			}
			addr := strings.SplitN(fields[i+1], "/", 2)[0]
			if strings.HasPrefix(addr, "127.") || strings.HasPrefix(addr, "::1") || strings.HasPrefix(addr, "fe80") {
				continue
			}
			ips = append(ips, addr)
		}
	}
	return ips
}

// PublicIP asks well-known echo services for this host's public
// address, trying each until one answers.
func PublicIP(ctx context.Context) (string, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	for _, svc := range publicIPServices {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc, nil)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", userAgent)
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
		resp.Body.Close()
		if err != nil || resp.StatusCode != http.StatusOK {
			continue
		}
		ip := strings.TrimSpace(string(body))
		if net.ParseIP(ip) != nil {
			return ip, nil
		}
	}
	return "", fmt.Errorf("could not determine public IP")
}

// ResolveDomain returns the A/AAAA records for a domain.
func ResolveDomain(ctx context.Context, domain string) ([]string, error) {
	addrs, err := net.DefaultResolver.LookupHost(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed for %s: %w", domain, err)
	}
	return addrs, nil
}

// DomainPointsHere checks whether any of the domain's records match
// this server's public or local addresses.
func DomainPointsHere(ctx context.Context, domain string) (bool, []string, error) {
	records, err := ResolveDomain(ctx, domain)
	if err != nil {
		return false, nil, err
	}
	ours := LocalIPs(ctx)
	if pub, err := PublicIP(ctx); err == nil {
		ours = append(ours, pub)
	}
	for _, rec := range records {
		for _, ip := range ours {
			if rec == ip {
				return true, records, nil
			}
		}
	}
	return false, records, nil
}

// PortOpen reports whether a TCP port accepts connections.
func PortOpen(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ListeningPort is one entry parsed from `ss -tlnp`.
type ListeningPort struct {
	Address string
	Port    int
	Process string
}

// ListeningPorts lists TCP listeners on this host.
func ListeningPorts(ctx context.Context) []ListeningPort {
	out := shell.Runner{Sudo: true}.Output(ctx, "ss", "-tlnp")
	return ParseListeningPorts(out)
}

var ssProcessRe = regexp.MustCompile(`"([^"]+)"`)

// ParseListeningPorts parses `ss -tlnp` output.
func ParseListeningPorts(output string) []ListeningPort {
	var ports []ListeningPort
	for _, line := range strings.Split(output, "\n") {
		if !strings.HasPrefix(line, "LISTEN") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		local := fields[3]
		idx := strings.LastIndex(local, ":")
		if idx < 0 {
			continue
		}
		port, err := strconv.Atoi(local[idx+1:])
		if err != nil {
			continue
		}
		lp := ListeningPort{Address: local[:idx], Port: port}
		if m := ssProcessRe.FindStringSubmatch(line); m != nil {
			lp.Process = m[1]
		}
		ports = append(ports, lp)
	}
	return ports
}

// HTTPResult is the outcome of probing a URL.
type HTTPResult struct {
	StatusCode     int
	ResponseTimeMS int64
	Err            error
}

// HTTPCheck requests a URL and reports status and latency. Redirects
// are followed; TLS errors surface through Err.
func HTTPCheck(ctx context.Context, url string, timeout time.Duration) HTTPResult {
	client := &http.Client{Timeout: timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HTTPResult{Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return HTTPResult{ResponseTimeMS: elapsed, Err: err}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return HTTPResult{StatusCode: resp.StatusCode, ResponseTimeMS: elapsed}
}

// CheckTLSCert connects to domain:443 and inspects the presented leaf
// certificate.
func CheckTLSCert(domain string, timeout time.Duration) (models.CertInfo, error) {
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", domain+":443", &tls.Config{ServerName: domain})
	if err != nil {
		return models.CertInfo{}, fmt.Errorf("tls connection to %s failed: %w", domain, err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return models.CertInfo{}, fmt.Errorf("no certificate presented by %s", domain)
	}
	leaf := certs[0]
	info := models.CertInfo{
		Domain:        domain,
		NotAfter:      leaf.NotAfter,
		DaysRemaining: int(time.Until(leaf.NotAfter).Hours() / 24),
	}
	if len(leaf.Issuer.Organization) > 0 {
		info.Issuer = leaf.Issuer.Organization[0]
	} else {
		info.Issuer = leaf.Issuer.CommonName
	}
	return info, nil
}
