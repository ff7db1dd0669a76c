package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/sites"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) sitesMenu(ctx context.Context) {
	for {
		term.Header("Sites")
		list := a.sites.List(ctx)
		if len(list) > 0 {
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				target := s.DocumentRoot
				if s.Port > 0 {
					target = fmt.Sprintf("127.0.0.1:%d", s.Port)
				}
				rows = append(rows, []string{
					s.Domain, s.Type, yesNo(s.SSLEnabled), yesNo(s.Enabled), target,
				})
			}
			term.PrintTable([]string{"Domain", "Type", "SSL", "Enabled", "Target"}, rows)
			fmt.Println()
		} else {
			term.Info("No sites configured yet.")
			fmt.Println()
		}

		options := []huh.Option[string]{term.Option("Create New Site", "create")}
		for _, s := range list {
			options = append(options, term.Option("Manage "+s.Domain, "site:"+s.Domain))
		}
		options = append(options, backOption())

		choice, err := term.Select("Sites:", options)
		if err != nil || choice == "back" {
			return
		}
		if choice == "create" {
			a.createSiteFlow(ctx)
			continue
		}
		domain := strings.TrimPrefix(choice, "site:")
		for _, s := range list {
			if s.Domain == domain {
				a.manageSite(ctx, s)
				break
			}
		}
	}
}

func (a *App) createSiteFlow(ctx context.Context) {
	term.Header("Sites", "Create")

	domain, err := term.Input("Domain name:", "example.com", sites.ValidateDomain)
	if err != nil {
		return
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	siteType, err := term.Select("Site type:", []huh.Option[string]{
		term.Option("Next.js (reverse proxy)", models.SiteTypeNextJS),
		term.Option("Nuxt (reverse proxy)", models.SiteTypeNuxt),
		term.Option("PHP / Laravel", models.SiteTypePHP),
		term.Option("Static files", models.SiteTypeStatic),
	})
	if err != nil {
		return
	}

	req := sites.CreateRequest{Domain: domain, Type: siteType}

	switch siteType {
	case models.SiteTypeNextJS, models.SiteTypeNuxt:
		portStr, err := term.Input("Application port (default 3000):", "3000", func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 1 || n > 65535 {
				return errors.New("enter a port between 1 and 65535")
			}
			return nil
		})
		if err != nil {
			return
		}
		req.Port = 3000
		if n, err := strconv.Atoi(strings.TrimSpace(portStr)); err == nil {
			req.Port = n
		}
	case models.SiteTypePHP:
		versions := a.php.InstalledVersions(ctx)
		if len(versions) > 0 {
			var opts []huh.Option[string]
			for _, v := range versions {
				opts = append(opts, term.Option("PHP "+v, v))
			}
			if req.PHPVersion, err = term.Select("PHP version:", opts); err != nil {
				return
			}
		} else {
			req.PHPVersion = a.cfg.DefaultPHP
			if req.PHPVersion == "" {
				req.PHPVersion = "8.3"
			}
			term.Warning("No PHP detected, assuming %s", req.PHPVersion)
		}
		fallthrough
	case models.SiteTypeStatic:
		// Empty input falls back to <webroot>/<domain>/public.
		root, err := term.Input("Document root:", a.cfg.WebRoot+"/"+domain+"/public", nil)
		if err != nil {
			return
		}
		req.DocumentRoot = strings.TrimSpace(root)
	}

	if req.IncludeWWW, err = term.Confirm("Also serve www."+domain+"?", true); err != nil {
		return
	}

	var site models.Site
	createErr := term.Spin("Creating "+domain+"...", func() {
		site, err = a.sites.Create(ctx, req)
	})
	if createErr != nil {
		return
	}
	if err != nil {
		term.Error("Create failed: %v", err)
		term.Pause()
		return
	}
	term.Success("Site %s created and enabled", site.Domain)

	if ok, _ := term.Confirm("Provision a Let's Encrypt certificate now?", true); ok {
		a.provisionSSL(ctx, site)
	}
	term.Pause()
}

func (a *App) manageSite(ctx context.Context, site models.Site) {
	for {
		term.Header("Sites", site.Domain)
		fmt.Printf("  Type: %s   SSL: %s   Enabled: %s\n",
			site.Type, yesNo(site.SSLEnabled), yesNo(site.Enabled))
		if days, ok := a.sites.CertExpiry(ctx, site.Domain); ok {
			fmt.Printf("  Certificate expires in %d days\n", days)
		}
		fmt.Println()

		toggleLabel := "Disable Site"
		if !site.Enabled {
			toggleLabel = "Enable Site"
		}
		choice, err := term.Select("Manage "+site.Domain+":", []huh.Option[string]{
			term.Option("Health Checks", "health"),
			term.Option("Provision SSL Certificate", "ssl"),
			term.Option("View Nginx Config", "config"),
			term.Option("View Access Log", "access"),
			term.Option("View Error Log", "error"),
			term.Option(toggleLabel, "toggle"),
			term.Option("Delete Site", "delete"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "health":
			a.siteHealth(ctx, site)
		case "ssl":
			a.provisionSSL(ctx, site)
			if updated, err := a.store.GetSite(site.Domain); err == nil {
				site = updated
			}
			term.Pause()
		case "config":
			content, err := a.vhosts.ReadVhost(ctx, site.Domain)
			if err != nil {
				term.Error("Read failed: %v", err)
			} else {
				term.Header("Sites", site.Domain, a.vhosts.ConfigPath(site.Domain))
				fmt.Println(content)
			}
			term.Pause()
		case "access":
			a.showLog(ctx, site.Domain+".access.log")
		case "error":
			a.showLog(ctx, site.Domain+".error.log")
		case "toggle":
			enabled, err := a.sites.Toggle(ctx, site.Domain)
			if err != nil {
				term.Error("Toggle failed: %v", err)
			} else if enabled {
				term.Success("%s enabled", site.Domain)
			} else {
				term.Success("%s disabled", site.Domain)
			}
			site.Enabled = enabled
			term.Pause()
		case "delete":
			ok, err := term.Confirm("Delete "+site.Domain+"? The document root is kept on disk.", false)
			if err != nil || !ok {
				continue
			}
			if err := a.sites.Delete(ctx, site.Domain); err != nil {
				term.Error("Delete failed: %v", err)
				term.Pause()
				continue
			}
			term.Success("%s deleted", site.Domain)
			term.Pause()
			return
		}
	}
}

func (a *App) siteHealth(ctx context.Context, site models.Site) {
	term.Header("Sites", site.Domain, "Health")
	var checks []models.HealthCheck
	term.Spin("Running health checks...", func() {
		checks = a.sites.HealthChecks(ctx, site)
	})
	for _, c := range checks {
		if c.OK {
			fmt.Printf("  %s %s: %s\n", term.CheckMark, c.Name, c.Detail)
		} else {
			fmt.Printf("  %s %s: %s\n", term.CrossMark, c.Name, c.Detail)
		}
	}
	term.Pause()
}
