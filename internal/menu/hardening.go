package menu

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/hardening"
	"github.com/forgecli/forge/internal/term"
)

var usernameRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}$`)

func (a *App) hardeningMenu(ctx context.Context) {
	h := hardening.New()

	for {
		term.Header("Server Hardening")
		term.Info("These steps change SSH, firewall and kernel settings. Keep this session open until you have verified key-based login works.")

		choice, err := term.Select("Hardening:", []huh.Option[string]{
			term.Option("Run Full Hardening", "full"),
			term.Option("Harden SSH (key-only, no root login)", "ssh"),
			term.Option("Configure UFW Firewall", "firewall"),
			term.Option("Install Fail2Ban", "fail2ban"),
			term.Option("Create Deploy User", "user"),
			term.Option("Disable Unused Services", "services"),
			term.Option("Automatic Security Updates", "updates"),
			term.Option("Secure Shared Memory", "shm"),
			term.Option("Kernel Hardening (sysctl)", "sysctl"),
			term.Option("Install Logwatch", "logwatch"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "full":
			a.fullHardening(ctx, h)
		case "ssh":
			ok, err := term.Confirm("This disables password login and root SSH. Is your SSH key installed and tested?", false)
			if err != nil || !ok {
				continue
			}
			a.hardeningStep(ctx, "SSH hardened", h.HardenSSH)
		case "firewall":
			a.hardeningStep(ctx, "Firewall enabled (SSH, HTTP, HTTPS allowed)", h.SetupFirewall)
		case "fail2ban":
			a.hardeningStep(ctx, "Fail2Ban installed and running", h.SetupFail2ban)
		case "user":
			username, ok := a.promptDeployUser()
			if !ok {
				continue
			}
			a.hardeningStep(ctx, "Deploy user "+username+" ready", func(ctx context.Context) error {
				return h.CreateDeployUser(ctx, username)
			})
		case "services":
			a.hardeningStep(ctx, "Unused services disabled", h.DisableUnusedServices)
		case "updates":
			a.hardeningStep(ctx, "Automatic security updates enabled", h.SetupAutomaticUpdates)
		case "shm":
			a.hardeningStep(ctx, "Shared memory mounted noexec", h.SecureSharedMemory)
		case "sysctl":
			a.hardeningStep(ctx, "Kernel parameters applied", h.ApplySysctl)
		case "logwatch":
			a.hardeningStep(ctx, "Logwatch installed", h.SetupLogwatch)
		}
	}
}

func (a *App) fullHardening(ctx context.Context, h *hardening.Hardener) {
	term.Warning("The full run creates a deploy user, locks SSH to keys only, enables the firewall and reboots nothing. You will stay logged in.")
	ok, err := term.Confirm("Have you installed and TESTED an SSH key for the account you log in with?", false)
	if err != nil || !ok {
		term.Info("Add your key first: ssh-copy-id user@server")
		term.Pause()
		return
	}
	username, found := a.promptDeployUser()
	if !found {
		return
	}
	if err := term.RunSteps(h.Steps(ctx, username)); err != nil {
		term.Error("Hardening stopped: %v", err)
	} else {
		term.Success("Hardening complete. Verify you can still log in from a second terminal before closing this one.")
	}
	term.Pause()
}

func (a *App) promptDeployUser() (string, bool) {
	username, err := term.Input("Deploy username:", "deploy", func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if !usernameRe.MatchString(s) {
			return errors.New("lowercase letters, digits, - and _ only")
		}
		return nil
	})
	if err != nil {
		return "", false
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = "deploy"
	}
	return username, true
}

func (a *App) hardeningStep(ctx context.Context, successMsg string, fn func(context.Context) error) {
	var stepErr error
	term.Spin("Working...", func() {
		stepErr = fn(ctx)
	})
	if stepErr != nil {
		term.Error("Failed: %v", stepErr)
	} else {
		term.Success("%s", successMsg)
	}
	term.Pause()
}
