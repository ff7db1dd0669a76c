// Package menu implements the interactive terminal UI: the main menu
// loop and the per-area submenus.
package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/alerts"
	"github.com/forgecli/forge/internal/config"
	"github.com/forgecli/forge/internal/cron"
	"github.com/forgecli/forge/internal/disk"
	"github.com/forgecli/forge/internal/logs"
	"github.com/forgecli/forge/internal/nginx"
	"github.com/forgecli/forge/internal/phpman"
	"github.com/forgecli/forge/internal/services"
	"github.com/forgecli/forge/internal/sites"
	"github.com/forgecli/forge/internal/sslcert"
	"github.com/forgecli/forge/internal/state"
	"github.com/forgecli/forge/internal/term"
	"github.com/forgecli/forge/internal/updater"
)

// App wires the domain services behind the menus.
type App struct {
	cfg      *config.Config
	store    *state.Store
	sites    *sites.Service
	vhosts   *nginx.Manager
	services *services.Manager
	logs     *logs.Viewer
	certbot  *sslcert.Certbot
	php      *phpman.Manager
	cron     *cron.Manager
	disk     *disk.Tools
	alerts   *alerts.Manager
	updates  *updater.Checker

	updateBanner string
}

// NewApp builds the application graph.
func NewApp(cfg *config.Config, store *state.Store) (*App, error) {
	alertsDir, err := cfg.SubDir("monitoring")
	if err != nil {
		return nil, err
	}
	alertMgr, err := alerts.NewManager(alertsDir)
	if err != nil {
		return nil, err
	}
	vhosts := nginx.NewManager(cfg.NginxSitesAvailable, cfg.NginxSitesEnabled, cfg.NginxLogDir)
	return &App{
		cfg:      cfg,
		store:    store,
		sites:    sites.NewService(cfg, store, vhosts),
		vhosts:   vhosts,
		services: services.NewManager(),
		logs:     logs.NewViewer(cfg.NginxLogDir),
		certbot:  sslcert.NewCertbot(),
		php:      phpman.NewManager(),
		cron:     cron.NewManager(),
		disk:     disk.NewTools(),
		alerts:   alertMgr,
		updates:  updater.NewChecker(""),
	}, nil
}

// SetUpdateBanner shows a notice above the main menu.
func (a *App) SetUpdateBanner(msg string) { a.updateBanner = msg }

// Run drives the main menu until the user quits.
func (a *App) Run(ctx context.Context) error {
	for {
		term.Header()
		if a.updateBanner != "" {
			term.Warning("%s", a.updateBanner)
			fmt.Println()
		}
		choice, err := term.Select("What would you like to do?", []huh.Option[string]{
			term.Option("System Status", "status"),
			term.Option("Sites", "sites"),
			term.Option("SSL Certificates", "ssl"),
			term.Option("Services", "services"),
			term.Option("Install Software", "install"),
			term.Option("PHP Management", "php"),
			term.Option("Logs", "logs"),
			term.Option("Monitoring", "monitor"),
			term.Option("Alerts", "alerts"),
			term.Option("Disk Tools", "disk"),
			term.Option("Diagnostics", "diagnostics"),
			term.Option("Configuration Auditor", "auditor"),
			term.Option("Security & Antivirus", "security"),
			term.Option("CVE Scanner", "cve"),
			term.Option("Server Hardening", "hardening"),
			term.Option("Scheduled Tasks", "cron"),
			term.Option("Change History", "history"),
			term.Option("Settings", "settings"),
			term.Option("Check for Updates", "update"),
			term.Option("Quit", "quit"),
		})
		if err != nil {
			if errors.Is(err, term.ErrCancelled) {
				return nil
			}
			return err
		}

		switch choice {
		case "status":
			a.statusMenu(ctx)
		case "sites":
			a.sitesMenu(ctx)
		case "ssl":
			a.sslMenu(ctx)
		case "services":
			a.servicesMenu(ctx)
		case "install":
			a.installMenu(ctx)
		case "php":
			a.phpMenu(ctx)
		case "logs":
			a.logsMenu(ctx)
		case "monitor":
			a.monitorMenu(ctx)
		case "alerts":
			a.alertsMenu(ctx)
		case "disk":
			a.diskMenu(ctx)
		case "diagnostics":
			a.diagnosticsMenu(ctx)
		case "auditor":
			a.auditorMenu(ctx)
		case "security":
			a.securityMenu(ctx)
		case "cve":
			a.cveMenu(ctx)
		case "hardening":
			a.hardeningMenu(ctx)
		case "cron":
			a.cronMenu(ctx)
		case "history":
			a.historyMenu(ctx)
		case "settings":
			a.settingsMenu(ctx)
		case "update":
			a.updateMenu(ctx)
		case "quit":
			return nil
		}
	}
}

// backOption is appended to every submenu.
func backOption() huh.Option[string] { return term.Option("Back", "back") }

// yesNo marks a boolean for table display.
func yesNo(v bool) string {
	if v {
		return term.CheckMark
	}
	return term.CrossMark
}
