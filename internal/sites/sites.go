// Package sites orchestrates nginx virtual host lifecycle: create,
// enable/disable, delete, logs and health checks, keeping the state
// store in sync with what is on disk.
package sites

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/config"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/netutil"
	"github.com/forgecli/forge/internal/nginx"
	"github.com/forgecli/forge/internal/shell"
	"github.com/forgecli/forge/internal/state"
)

var ErrInvalidDomain = errors.New("invalid domain name")

// domainRegex validates domain names (RFC 1035 labels, at least one dot)
var domainRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// ValidateDomain rejects malformed or dangerous domain names before
// they reach a shell command or a filesystem path.
func ValidateDomain(domain string) error {
	domain = strings.TrimSpace(strings.ToLower(domain))
	if domain == "" || len(domain) > 253 {
		return ErrInvalidDomain
	}
	if strings.ContainsAny(domain, " \t/\\;|&$`'\"") {
		return ErrInvalidDomain
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	return nil
}

// Service ties the vhost manager and the state store together.
type Service struct {
	cfg    *config.Config
	store  *state.Store
	vhosts *nginx.Manager
	runner shell.Runner
}

func NewService(cfg *config.Config, store *state.Store, vhosts *nginx.Manager) *Service {
	return &Service{cfg: cfg, store: store, vhosts: vhosts, runner: shell.Runner{Sudo: true}}
}

// CreateRequest collects the inputs for a new site.
type CreateRequest struct {
	Domain       string
	Type         string
	IncludeWWW   bool
	Port         int
	DocumentRoot string
	PHPVersion   string
	MaxBodySize  string
}

// Create renders and installs a vhost, prepares the document root and
// log files, enables the site, and validates nginx before keeping it.
// On a failed config test the vhost is rolled back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Site, error) {
	req.Domain = strings.TrimSpace(strings.ToLower(req.Domain))
	if err := ValidateDomain(req.Domain); err != nil {
		return models.Site{}, err
	}
	if _, err := s.store.GetSite(req.Domain); err == nil {
		return models.Site{}, fmt.Errorf("site %s already exists", req.Domain)
	}

	if req.DocumentRoot == "" && (req.Type == models.SiteTypePHP || req.Type == models.SiteTypeStatic) {
		req.DocumentRoot = filepath.Join(s.cfg.WebRoot, req.Domain, "public")
	}

	content, err := nginx.Render(nginx.VhostConfig{
		Domain:       req.Domain,
		IncludeWWW:   req.IncludeWWW,
		Type:         req.Type,
		Port:         req.Port,
		DocumentRoot: req.DocumentRoot,
		PHPVersion:   req.PHPVersion,
		MaxBodySize:  req.MaxBodySize,
		AccessLog:    filepath.Join(s.cfg.NginxLogDir, req.Domain+".access.log"),
		ErrorLog:     filepath.Join(s.cfg.NginxLogDir, req.Domain+".error.log"),
	})
	if err != nil {
		return models.Site{}, err
	}

	if err := s.vhosts.WriteVhost(ctx, req.Domain, content); err != nil {
		return models.Site{}, err
	}

	if req.DocumentRoot != "" {
		s.runner.Run(ctx, "mkdir", "-p", req.DocumentRoot)
		s.runner.Run(ctx, "chown", "-R", "www-data:www-data", filepath.Dir(req.DocumentRoot))
	}
	for _, suffix := range []string{".access.log", ".error.log"} {
		s.runner.Run(ctx, "touch", filepath.Join(s.cfg.NginxLogDir, req.Domain+suffix))
	}

	if err := s.vhosts.Enable(ctx, req.Domain); err != nil {
		s.vhosts.Remove(ctx, req.Domain)
		return models.Site{}, err
	}

	if err := s.vhosts.Test(ctx); err != nil {
		s.vhosts.Remove(ctx, req.Domain)
		return models.Site{}, fmt.Errorf("config rejected, rolled back: %w", err)
	}
	if err := s.vhosts.Reload(ctx); err != nil {
		return models.Site{}, err
	}

	site := models.Site{
		Domain:       req.Domain,
		Type:         req.Type,
		IncludeWWW:   req.IncludeWWW,
		Port:         req.Port,
		DocumentRoot: req.DocumentRoot,
		PHPVersion:   req.PHPVersion,
		Enabled:      true,
	}
	if err := s.store.SaveSite(site); err != nil {
		return models.Site{}, err
	}
	return site, nil
}

// Delete removes the vhost and forgets the site. The document root and
// any certificates are left in place.
func (s *Service) Delete(ctx context.Context, domain string) error {
	if err := s.vhosts.Remove(ctx, domain); err != nil {
		return err
	}
	if err := s.vhosts.TestAndReload(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteSite(domain); err != nil && !errors.Is(err, state.ErrSiteNotFound) {
		return err
	}
	return nil
}

// Toggle flips the sites-enabled symlink and reloads nginx.
func (s *Service) Toggle(ctx context.Context, domain string) (enabled bool, err error) {
	if s.vhosts.IsEnabled(domain) {
		if err := s.vhosts.Disable(ctx, domain); err != nil {
			return false, err
		}
		enabled = false
	} else {
		if err := s.vhosts.Enable(ctx, domain); err != nil {
			return false, err
		}
		enabled = true
	}
	if err := s.vhosts.TestAndReload(ctx); err != nil {
		return enabled, err
	}
	if err := s.store.SetSiteEnabled(domain, enabled); err != nil && !errors.Is(err, state.ErrSiteNotFound) {
		return enabled, err
	}
	return enabled, nil
}

// List returns tracked sites merged with any vhosts found on disk that
// the store does not know about.
func (s *Service) List(ctx context.Context) []models.Site {
	tracked := s.store.ListSites()

	if domains, err := s.vhosts.ListVhosts(); err == nil {
		for _, domain := range domains {
			if _, ok := tracked[domain]; ok {
				continue
			}
			content, err := s.vhosts.ReadVhost(ctx, domain)
			if err != nil {
				continue
			}
			d := nginx.DetectSite(content)
			tracked[domain] = models.Site{
				Domain:       domain,
				Type:         d.Type,
				Port:         d.Port,
				DocumentRoot: d.DocumentRoot,
				PHPVersion:   d.PHPVersion,
				SSLEnabled:   d.SSL,
				Enabled:      s.vhosts.IsEnabled(domain),
			}
		}
	}

	sites := make([]models.Site, 0, len(tracked))
	for _, site := range tracked {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].Domain < sites[j].Domain })
	return sites
}

// CertExpiry inspects the Let's Encrypt fullchain for a domain via
// openssl, returning days until expiry.
func (s *Service) CertExpiry(ctx context.Context, domain string) (int, bool) {
	certPath := filepath.Join(s.cfg.LetsEncryptLiveDir, domain, "fullchain.pem")
	res := s.runner.Run(ctx, "openssl", "x509", "-in", certPath, "-noout", "-enddate")
	if !res.Ok() {
		return 0, false
	}
	return ParseCertEnddate(res.Stdout, time.Now())
}

// ParseCertEnddate parses `openssl x509 -noout -enddate` output
// (notAfter=May 30 12:00:00 2026 GMT) into days remaining.
func ParseCertEnddate(output string, now time.Time) (int, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "notAfter=") {
			continue
		}
		raw := strings.TrimPrefix(line, "notAfter=")
		// openssl pads single-digit days: "Apr  1 00:00:00 2026 GMT"
		t, err := time.Parse("Jan _2 15:04:05 2006 MST", raw)
		if err != nil {
			return 0, false
		}
		return int(t.Sub(now).Hours() / 24), true
	}
	return 0, false
}

// HealthChecks probes one site: DNS, HTTP, HTTPS and certificate.
func (s *Service) HealthChecks(ctx context.Context, site models.Site) []models.HealthCheck {
	var checks []models.HealthCheck

	pointsHere, records, err := netutil.DomainPointsHere(ctx, site.Domain)
	switch {
	case err != nil:
		checks = append(checks, models.HealthCheck{Name: "DNS", Detail: err.Error()})
	case pointsHere:
		checks = append(checks, models.HealthCheck{Name: "DNS", OK: true, Detail: strings.Join(records, ", ")})
	default:
		checks = append(checks, models.HealthCheck{Name: "DNS", Detail: "does not point to this server: " + strings.Join(records, ", ")})
	}

	httpRes := netutil.HTTPCheck(ctx, "http://"+site.Domain, 10*time.Second)
	checks = append(checks, httpCheckResult("HTTP", httpRes))

	if site.SSLEnabled {
		httpsRes := netutil.HTTPCheck(ctx, "https://"+site.Domain, 10*time.Second)
		checks = append(checks, httpCheckResult("HTTPS", httpsRes))

		if cert, err := netutil.CheckTLSCert(site.Domain, 10*time.Second); err != nil {
			checks = append(checks, models.HealthCheck{Name: "Certificate", Detail: err.Error()})
		} else {
			checks = append(checks, models.HealthCheck{
				Name:   "Certificate",
				OK:     cert.DaysRemaining > 0,
				Detail: fmt.Sprintf("%s, %d days remaining", cert.Issuer, cert.DaysRemaining),
			})
		}
	}

	if err := s.vhosts.Test(ctx); err != nil {
		checks = append(checks, models.HealthCheck{Name: "Nginx config", Detail: err.Error()})
	} else {
		checks = append(checks, models.HealthCheck{Name: "Nginx config", OK: true, Detail: "syntax ok"})
	}
	return checks
}

func httpCheckResult(name string, res netutil.HTTPResult) models.HealthCheck {
	if res.Err != nil {
		return models.HealthCheck{Name: name, Detail: res.Err.Error()}
	}
	return models.HealthCheck{
		Name:   name,
		OK:     res.StatusCode < 500,
		Detail: fmt.Sprintf("%d in %dms", res.StatusCode, res.ResponseTimeMS),
	}
}
