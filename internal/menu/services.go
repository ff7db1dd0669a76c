package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/term"
)

func (a *App) servicesMenu(ctx context.Context) {
	for {
		term.Header("Services")

		var installed []string
		term.Spin("Querying systemd...", func() {
			for _, cat := range a.services.InstalledUnits(ctx) {
				installed = append(installed, cat.Units...)
			}
		})
		if len(installed) > 0 {
			var rows [][]string
			for _, unit := range installed {
				st := a.services.Status(ctx, unit)
				active := st.Active
				switch active {
				case "active":
					active = term.Green.Render(active)
				case "failed":
					active = term.RedBold.Render(active)
				default:
					active = term.Yellow.Render(active)
				}
				mem := "-"
				if st.MemoryMB > 0 {
					mem = fmt.Sprintf("%.0f MB", st.MemoryMB)
				}
				rows = append(rows, []string{unit, active, st.Enabled, mem, st.Uptime})
			}
			term.PrintTable([]string{"Unit", "State", "Boot", "Memory", "Uptime"}, rows)
			fmt.Println()
		}

		options := make([]huh.Option[string], 0, len(installed)+2)
		for _, unit := range installed {
			options = append(options, term.Option("Manage "+unit, unit))
		}
		options = append(options,
			term.Option("Find Other Unit...", "find"),
			backOption(),
		)
		choice, err := term.Select("Services:", options)
		if err != nil || choice == "back" {
			return
		}
		if choice == "find" {
			query, err := term.Input("Unit name contains:", "docker", nil)
			if err != nil {
				continue
			}
			matches := a.services.Find(ctx, strings.TrimSpace(query))
			if len(matches) == 0 {
				term.Info("No units matched.")
				term.Pause()
				continue
			}
			var opts []huh.Option[string]
			for _, u := range matches {
				opts = append(opts, term.Option(u, u))
			}
			opts = append(opts, backOption())
			unit, err := term.Select("Matches:", opts)
			if err != nil || unit == "back" {
				continue
			}
			a.manageUnit(ctx, unit)
			continue
		}
		a.manageUnit(ctx, choice)
	}
}

func (a *App) manageUnit(ctx context.Context, unit string) {
	for {
		term.Header("Services", unit)
		st := a.services.Status(ctx, unit)
		fmt.Printf("  State: %s (%s)   Boot: %s\n", st.Active, st.SubState, st.Enabled)
		if st.Uptime != "" {
			fmt.Printf("  Up: %s   Memory: %.0f MB\n", st.Uptime, st.MemoryMB)
		}
		fmt.Println()

		choice, err := term.Select("Manage "+unit+":", []huh.Option[string]{
			term.Option("Start", "start"),
			term.Option("Stop", "stop"),
			term.Option("Restart", "restart"),
			term.Option("Reload", "reload"),
			term.Option("Enable at Boot", "enable"),
			term.Option("Disable at Boot", "disable"),
			term.Option("Recent Logs", "logs"),
			term.Option("Follow Logs (ctrl-c to stop)", "follow"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "start", "stop", "restart", "reload", "enable", "disable":
			if choice == "stop" || choice == "disable" {
				ok, err := term.Confirm(choice+" "+unit+"?", false)
				if err != nil || !ok {
					continue
				}
			}
			var ctlErr error
			term.Spin("Running systemctl "+choice+" "+unit+"...", func() {
				switch choice {
				case "start":
					ctlErr = a.services.Start(ctx, unit)
				case "stop":
					ctlErr = a.services.Stop(ctx, unit)
				case "restart":
					ctlErr = a.services.Restart(ctx, unit)
				case "reload":
					ctlErr = a.services.Reload(ctx, unit)
				case "enable":
					ctlErr = a.services.Enable(ctx, unit)
				case "disable":
					ctlErr = a.services.Disable(ctx, unit)
				}
			})
			if ctlErr != nil {
				term.Error("%s %s failed: %v", choice, unit, ctlErr)
			} else {
				term.Success("%s: %s done", unit, choice)
			}
			term.Pause()
		case "logs":
			out, err := a.services.Logs(ctx, unit, 50, "")
			if err != nil {
				term.Error("journalctl failed: %v", err)
			} else {
				fmt.Println(out)
			}
			term.Pause()
		case "follow":
			term.Info("Following %s logs, ctrl-c to stop", unit)
			if err := a.services.FollowLogs(ctx, unit, func(line string) {
				fmt.Println(line)
			}); err != nil && ctx.Err() == nil {
				term.Warning("follow ended: %v", err)
			}
		}
	}
}
