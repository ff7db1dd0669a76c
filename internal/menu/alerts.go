package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) alertsMenu(ctx context.Context) {
	for {
		term.Header("Alerts")

		active := a.alerts.Active()
		if len(active) > 0 {
			rows := make([][]string, 0, len(active))
			for _, al := range active {
				sev := al.Severity
				if sev == "critical" {
					sev = term.RedBold.Render(sev)
				} else {
					sev = term.Yellow.Render(sev)
				}
				rows = append(rows, []string{
					al.ID, al.Timestamp.Format("Jan 02 15:04"), sev, al.Message,
				})
			}
			term.PrintTable([]string{"ID", "When", "Severity", "Alert"}, rows)
			fmt.Println()
		} else {
			term.Success("No unacknowledged alerts")
			fmt.Println()
		}

		choice, err := term.Select("Alerts:", []huh.Option[string]{
			term.Option("Collect Now", "collect"),
			term.Option("Acknowledge Alerts", "ack"),
			term.Option("Metric History", "history"),
			term.Option("Edit Thresholds", "thresholds"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "collect":
			var fired []models.Alert
			var collectErr error
			term.Spin("Collecting metrics...", func() {
				fired, collectErr = a.alerts.Collect(ctx)
			})
			if collectErr != nil {
				term.Error("Collect failed: %v", collectErr)
			} else if len(fired) == 0 {
				term.Success("All metrics within thresholds")
			} else {
				for _, al := range fired {
					term.Warning("%s", al.Message)
				}
			}
			term.Pause()
		case "ack":
			a.acknowledgeFlow(active)
		case "history":
			a.metricHistory()
		case "thresholds":
			a.editThresholds()
		}
	}
}

func (a *App) acknowledgeFlow(active []models.Alert) {
	if len(active) == 0 {
		term.Info("Nothing to acknowledge.")
		term.Pause()
		return
	}
	var opts []huh.Option[string]
	for _, al := range active {
		opts = append(opts, term.Option(al.Message, al.ID))
	}
	ids, err := term.MultiSelect("Acknowledge which alerts?", opts)
	if err != nil {
		return
	}
	for _, id := range ids {
		if err := a.alerts.Acknowledge(id); err != nil {
			term.Error("Acknowledge %s failed: %v", id, err)
		}
	}
	if len(ids) > 0 {
		term.Success("%d alert(s) acknowledged", len(ids))
	}
	term.Pause()
}

func (a *App) metricHistory() {
	history := a.alerts.History(20)
	if len(history) == 0 {
		term.Info("No samples recorded yet. Run Collect Now or the collect command on a schedule.")
		term.Pause()
		return
	}
	rows := make([][]string, 0, len(history))
	for _, s := range history {
		rows = append(rows, []string{
			s.Timestamp.Format("Jan 02 15:04"),
			fmt.Sprintf("%.1f%%", s.CPUPercent),
			fmt.Sprintf("%.1f%%", s.MemPercent),
			fmt.Sprintf("%.2f", s.Load1),
		})
	}
	term.PrintTable([]string{"When", "CPU", "Memory", "Load"}, rows)
	term.Pause()
}

func (a *App) editThresholds() {
	t := a.alerts.Thresholds()

	fields := []struct {
		name  string
		value *float64
	}{
		{"CPU warning %", &t.CPUWarning},
		{"CPU critical %", &t.CPUCritical},
		{"Memory warning %", &t.MemWarning},
		{"Memory critical %", &t.MemCritical},
		{"Disk warning %", &t.DiskWarning},
		{"Disk critical %", &t.DiskCritical},
		{"Load warning (x cores)", &t.LoadWarning},
		{"Load critical (x cores)", &t.LoadCritical},
		{"Swap warning %", &t.SwapWarning},
		{"Swap critical %", &t.SwapCritical},
	}
	// Empty input keeps the current value.
	for _, f := range fields {
		current := strconv.FormatFloat(*f.value, 'f', -1, 64)
		input, err := term.Input(f.name+" (now "+current+"):", current, func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v < 0 {
				return errors.New("enter a non-negative number")
			}
			return nil
		})
		if err != nil {
			return
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(input), 64); err == nil {
			*f.value = v
		}
	}

	if err := a.alerts.SetThresholds(t); err != nil {
		term.Error("Save failed: %v", err)
	} else {
		term.Success("Thresholds saved")
	}
	term.Pause()
}
