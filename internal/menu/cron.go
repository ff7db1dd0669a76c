package menu

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/cron"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) cronMenu(ctx context.Context) {
	for {
		term.Header("Scheduled Tasks")

		entries, err := a.cron.List(ctx)
		if err != nil {
			term.Error("Could not read crontab: %v", err)
			term.Pause()
			return
		}
		var jobs []cron.Entry
		for _, e := range entries {
			if !e.Comment {
				jobs = append(jobs, e)
			}
		}
		if len(jobs) > 0 {
			rows := make([][]string, 0, len(jobs))
			for _, e := range jobs {
				rows = append(rows, []string{e.Schedule, cron.Describe(e.Schedule), e.Command})
			}
			term.PrintTable([]string{"Schedule", "Meaning", "Command"}, rows)
			fmt.Println()
		} else {
			term.Info("Crontab is empty.")
			fmt.Println()
		}
		if status := cron.RenewalStatus(ctx); status != "" {
			fmt.Println("  Certificate renewal: " + status)
		} else {
			term.Warning("No certificate renewal schedule detected")
		}
		fmt.Println()

		choice, err := term.Select("Scheduled Tasks:", []huh.Option[string]{
			term.Option("Add Job", "add"),
			term.Option("Add Preset Job", "preset"),
			term.Option("Remove Job", "remove"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "add":
			a.addCronJob(ctx)
		case "preset":
			a.addPresetJob(ctx)
		case "remove":
			a.removeCronJob(ctx, jobs)
		}
	}
}

func (a *App) addCronJob(ctx context.Context) {
	var opts []huh.Option[string]
	for _, s := range cron.Schedules {
		opts = append(opts, term.Option(s.Label+"  ("+s.Spec+")", s.Spec))
	}
	opts = append(opts, term.Option("Custom cron expression...", "custom"), backOption())

	schedule, err := term.Select("When?", opts)
	if err != nil || schedule == "back" {
		return
	}
	if schedule == "custom" {
		input, err := term.Input("Cron expression (5 fields):", "30 4 * * 1", func(s string) error {
			if len(strings.Fields(s)) != 5 {
				return fmt.Errorf("expected 5 fields, got %d", len(strings.Fields(s)))
			}
			return nil
		})
		if err != nil {
			return
		}
		schedule = strings.TrimSpace(input)
	}

	command, err := term.Input("Command:", "/usr/bin/php /var/www/app/artisan schedule:run", nil)
	if err != nil {
		return
	}
	command = strings.TrimSpace(command)
	if command == "" {
		term.Error("Command cannot be empty.")
		term.Pause()
		return
	}

	if err := a.cron.Add(ctx, schedule, command); err != nil {
		term.Error("Add failed: %v", err)
	} else {
		term.Success("Job added: %s", cron.Describe(schedule))
	}
	term.Pause()
}

func (a *App) addPresetJob(ctx context.Context) {
	bin, _ := os.Executable()
	presets := cron.Presets(bin)

	var opts []huh.Option[string]
	for i, p := range presets {
		opts = append(opts, term.Option(p.Label, fmt.Sprintf("%d", i)))
	}
	opts = append(opts, backOption())
	choice, err := term.Select("Which preset?", opts)
	if err != nil || choice == "back" {
		return
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 0 || idx >= len(presets) {
		return
	}
	p := presets[idx]

	fmt.Println("  " + term.Dim.Render(p.Schedule+"  "+p.Command))
	ok, err := term.Confirm("Add this job?", true)
	if err != nil || !ok {
		return
	}
	if err := a.cron.Add(ctx, p.Schedule, p.Command); err != nil {
		term.Error("Add failed: %v", err)
	} else {
		term.Success("Job added: %s", cron.Describe(p.Schedule))
	}
	term.Pause()
}

func (a *App) removeCronJob(ctx context.Context, jobs []cron.Entry) {
	if len(jobs) == 0 {
		term.Info("Nothing to remove.")
		term.Pause()
		return
	}
	var opts []huh.Option[string]
	for _, e := range jobs {
		opts = append(opts, term.Option(e.Schedule+"  "+e.Command, e.Command))
	}
	opts = append(opts, backOption())
	command, err := term.Select("Remove which job?", opts)
	if err != nil || command == "back" {
		return
	}
	ok, err := term.Confirm("Remove this job?", false)
	if err != nil || !ok {
		return
	}
	if err := a.cron.Remove(ctx, command); err != nil {
		term.Error("Remove failed: %v", err)
	} else {
		term.Success("Job removed")
	}
	term.Pause()
}
