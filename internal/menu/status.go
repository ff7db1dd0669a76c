package menu

import (
	"context"

	"github.com/forgecli/forge/internal/detect"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/monitor"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) statusMenu(ctx context.Context) {
	term.Header("System Status")
	term.Info("Uptime: %s", monitor.Uptime(ctx))

	var detections []models.Detection
	_ = term.Spin("Detecting installed software...", func() {
		detections = detect.All(ctx)
	})

	rows := [][]string{}
	for _, d := range detections {
		mark := term.CrossMark
		running := "-"
		if d.Installed {
			mark = term.CheckMark
			if d.Running {
				running = "running"
			} else {
				running = "stopped"
			}
		}
		rows = append(rows, []string{mark, d.Name, d.Version, running, d.Details})
	}
	term.PrintTable([]string{"", "Software", "Version", "State", "Details"}, rows)

	if down := a.services.CriticalDown(ctx); len(down) > 0 {
		for _, unit := range down {
			term.Error("critical service down: %s", unit)
		}
	} else {
		term.Success("All critical services are running")
	}
	term.Pause()
}
