package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/sites"
	"github.com/forgecli/forge/internal/sslcert"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) sslMenu(ctx context.Context) {
	for {
		term.Header("SSL Certificates")

		if a.certbot.Available() {
			certs, err := a.certbot.List(ctx)
			if err != nil {
				term.Warning("Could not list certificates: %v", err)
			} else if len(certs) > 0 {
				rows := make([][]string, 0, len(certs))
				for _, c := range certs {
					badge := sslcert.ExpiryBadge(c.DaysRemaining)
					days := fmt.Sprintf("%d days", c.DaysRemaining)
					switch badge {
					case "critical":
						days = term.RedBold.Render(days)
					case "expiring":
						days = term.Yellow.Render(days)
					default:
						days = term.Green.Render(days)
					}
					rows = append(rows, []string{c.Name, strings.Join(c.Domains, " "), days})
				}
				term.PrintTable([]string{"Certificate", "Domains", "Expires"}, rows)
				fmt.Println()
			} else {
				term.Info("No certificates provisioned yet.")
				fmt.Println()
			}
		} else {
			term.Warning("certbot is not installed; only manual ACME issuance is available.")
			fmt.Println()
		}

		choice, err := term.Select("SSL:", []huh.Option[string]{
			term.Option("Provision Certificate for a Site", "provision"),
			term.Option("Renew All Certificates", "renew"),
			term.Option("Revoke a Certificate", "revoke"),
			term.Option("Manual ACME Issue (standalone)", "manual"),
			term.Option("DNS Challenge Instructions", "dns"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "provision":
			site, ok := a.pickSite(ctx, "Provision certificate for:")
			if !ok {
				continue
			}
			a.provisionSSL(ctx, site)
			term.Pause()
		case "renew":
			var out string
			var renewErr error
			term.Spin("Renewing certificates...", func() {
				out, renewErr = a.certbot.Renew(ctx)
			})
			if renewErr != nil {
				term.Error("Renew failed: %v", renewErr)
			} else {
				fmt.Println(term.Dim.Render(out))
				term.Success("Renewal pass complete")
			}
			term.Pause()
		case "revoke":
			a.revokeCertFlow(ctx)
		case "manual":
			a.manualIssueFlow(ctx)
		case "dns":
			domain, err := term.Input("Domain:", "example.com", sites.ValidateDomain)
			if err != nil {
				continue
			}
			fmt.Println()
			fmt.Println(sslcert.DNSInstructions(strings.TrimSpace(domain)))
			term.Pause()
		}
	}
}

// provisionSSL runs certbot --nginx for the site and records the result.
func (a *App) provisionSSL(ctx context.Context, site models.Site) {
	if !a.certbot.Available() {
		term.Error("certbot is not installed. Install it from the Install menu first.")
		return
	}
	var provErr error
	term.Spin("Provisioning certificate for "+site.Domain+"...", func() {
		provErr = a.certbot.Provision(ctx, site.Domain, site.IncludeWWW)
	})
	if provErr != nil {
		term.Error("Provisioning failed: %v", provErr)
		term.Info("If the domain does not point at this server yet, use the DNS challenge instead.")
		return
	}
	if err := a.store.UpdateSiteSSL(site.Domain, true); err != nil {
		term.Warning("Certificate issued but state update failed: %v", err)
		return
	}
	term.Success("HTTPS enabled for %s", site.Domain)
}

func (a *App) revokeCertFlow(ctx context.Context) {
	certs, err := a.certbot.List(ctx)
	if err != nil {
		term.Error("Could not list certificates: %v", err)
		term.Pause()
		return
	}
	if len(certs) == 0 {
		term.Info("Nothing to revoke.")
		term.Pause()
		return
	}
	var opts []huh.Option[string]
	for _, c := range certs {
		opts = append(opts, term.Option(c.Name+" ("+strings.Join(c.Domains, " ")+")", c.Name))
	}
	opts = append(opts, backOption())
	name, err := term.Select("Revoke which certificate?", opts)
	if err != nil || name == "back" {
		return
	}
	ok, err := term.Confirm("Revoke and delete "+name+"? Sites using it will lose HTTPS.", false)
	if err != nil || !ok {
		return
	}
	if err := a.certbot.Revoke(ctx, name); err != nil {
		term.Error("Revoke failed: %v", err)
	} else {
		a.store.UpdateSiteSSL(name, false)
		term.Success("Certificate %s revoked", name)
	}
	term.Pause()
}

// manualIssueFlow obtains a certificate with the built-in ACME client,
// for hosts without certbot. Port 80 must be free for the HTTP-01
// challenge.
func (a *App) manualIssueFlow(ctx context.Context) {
	term.Header("SSL Certificates", "Manual Issue")

	domain, err := term.Input("Primary domain:", "example.com", sites.ValidateDomain)
	if err != nil {
		return
	}
	domain = strings.TrimSpace(domain)
	domains := []string{domain}
	if withWWW, err := term.Confirm("Include www."+domain+"?", false); err != nil {
		return
	} else if withWWW {
		domains = append(domains, "www."+domain)
	}

	email := a.cfg.ACMEEmail
	if email == "" {
		if email, err = term.Input("ACME account email:", "admin@"+domain, nil); err != nil {
			return
		}
		email = strings.TrimSpace(email)
	}

	term.Warning("The HTTP-01 challenge binds port 80. Stop nginx first if it is running.")
	if ok, _ := term.Confirm("Continue?", true); !ok {
		return
	}

	issuer := sslcert.NewIssuer(a.cfg.DataDir, a.cfg.ACMEStaging)
	var info models.CertInfo
	var issueErr error
	term.Spin("Requesting certificate...", func() {
		info, issueErr = issuer.Issue(domains, email)
	})
	if issueErr != nil {
		term.Error("Issue failed: %v", issueErr)
		term.Pause()
		return
	}
	term.Success("Certificate for %s issued, valid %d days", info.Domain, info.DaysRemaining)
	term.Info("Files written under %s", issuer.CertDir(domain))
	term.Pause()
}

// pickSite prompts for one tracked site.
func (a *App) pickSite(ctx context.Context, title string) (models.Site, bool) {
	list := a.sites.List(ctx)
	if len(list) == 0 {
		term.Info("No sites configured yet.")
		term.Pause()
		return models.Site{}, false
	}
	var opts []huh.Option[string]
	for _, s := range list {
		opts = append(opts, term.Option(s.Domain, s.Domain))
	}
	opts = append(opts, backOption())
	domain, err := term.Select(title, opts)
	if err != nil || domain == "back" {
		return models.Site{}, false
	}
	for _, s := range list {
		if s.Domain == domain {
			return s, true
		}
	}
	return models.Site{}, false
}
