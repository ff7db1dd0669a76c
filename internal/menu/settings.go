package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/phpman"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) settingsMenu(ctx context.Context) {
	for {
		term.Header("Settings")
		fmt.Printf("  ACME email:        %s\n", orUnset(a.cfg.ACMEEmail))
		fmt.Printf("  ACME staging:      %s\n", yesNo(a.cfg.ACMEStaging))
		fmt.Printf("  Default PHP:       %s\n", orUnset(a.cfg.DefaultPHP))
		fmt.Printf("  Skip update check: %s\n", yesNo(a.cfg.SkipUpdateCheck))
		fmt.Printf("  Data directory:    %s\n", a.cfg.DataDir)
		fmt.Println()

		choice, err := term.Select("Settings:", []huh.Option[string]{
			term.Option("ACME Email", "email"),
			term.Option("ACME Staging Mode", "staging"),
			term.Option("Default PHP Version", "php"),
			term.Option("Startup Update Check", "updates"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		changed := false
		switch choice {
		case "email":
			email, err := term.Input("ACME account email:", "admin@example.com", func(s string) error {
				s = strings.TrimSpace(s)
				if s != "" && !strings.Contains(s, "@") {
					return errors.New("that does not look like an email address")
				}
				return nil
			})
			if err != nil {
				continue
			}
			a.cfg.ACMEEmail = strings.TrimSpace(email)
			changed = true
		case "staging":
			staging, err := term.Confirm("Use the Let's Encrypt staging directory (untrusted test certificates)?", a.cfg.ACMEStaging)
			if err != nil {
				continue
			}
			a.cfg.ACMEStaging = staging
			changed = true
		case "php":
			versions := a.php.InstalledVersions(ctx)
			if len(versions) == 0 {
				versions = phpman.Versions
			}
			var opts []huh.Option[string]
			for _, v := range versions {
				opts = append(opts, term.Option("PHP "+v, v))
			}
			version, err := term.Select("Default PHP version for new sites:", opts)
			if err != nil {
				continue
			}
			a.cfg.DefaultPHP = version
			changed = true
		case "updates":
			skip, err := term.Confirm("Skip the update check at startup?", a.cfg.SkipUpdateCheck)
			if err != nil {
				continue
			}
			a.cfg.SkipUpdateCheck = skip
			changed = true
		}

		if changed {
			if err := a.cfg.Save(); err != nil {
				term.Error("Save failed: %v", err)
			} else {
				term.Success("Settings saved")
			}
			term.Pause()
		}
	}
}

func orUnset(s string) string {
	if s == "" {
		return term.Dim.Render("(not set)")
	}
	return s
}
