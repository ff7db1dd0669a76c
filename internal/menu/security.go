package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/install"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/security"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) securityMenu(ctx context.Context) {
	reportDir, err := a.cfg.SubDir("scans")
	if err != nil {
		term.Error("Could not create scan report directory: %v", err)
		term.Pause()
		return
	}
	scanner := security.NewScanner(reportDir)

	for {
		term.Header("Malware Scanning")

		status := scanner.Status(ctx)
		if !status.Installed {
			term.Warning("ClamAV is not installed.")
			ok, err := term.Confirm("Install it now?", true)
			if err != nil || !ok {
				return
			}
			for _, r := range install.Recipes() {
				if r.Key != "clamav" {
					continue
				}
				if err := install.NewInstaller().Run(ctx, r); err != nil {
					term.Error("Install failed: %v", err)
					term.Pause()
					return
				}
				term.Success("ClamAV installed, signature download runs in the background")
				term.Pause()
				break
			}
			continue
		}

		fmt.Println("  " + status.Version)
		fmt.Printf("  freshclam: %s   daemon: %s\n", yesNo(status.FreshclamActive), yesNo(status.DaemonActive))
		if len(status.Databases) > 0 {
			rows := make([][]string, 0, len(status.Databases))
			for _, db := range status.Databases {
				rows = append(rows, []string{db.Name, db.Version, db.Signatures, db.BuildTime})
			}
			term.PrintTable([]string{"Database", "Version", "Signatures", "Built"}, rows)
		}
		fmt.Println()

		choice, err := term.Select("Malware Scanning:", []huh.Option[string]{
			term.Option("Quick Scan (tmp dirs + web root)", "quick"),
			term.Option("Scan Web Root", "web"),
			term.Option("Scan a Directory", "dir"),
			term.Option("Full System Scan", "full"),
			term.Option("Past Reports", "reports"),
			term.Option("File Integrity Baseline", "baseline"),
			term.Option("Update Signature Database", "update"),
			term.Option("Schedule Recurring Scans", "schedule"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "quick":
			a.runScan(ctx, scanner, "quick", security.QuickScanPaths)
		case "web":
			a.runScan(ctx, scanner, "web", []string{a.cfg.WebRoot})
		case "dir":
			path, err := term.Input("Directory to scan:", "/home", nil)
			if err != nil {
				continue
			}
			path = strings.TrimSpace(path)
			if path == "" {
				continue
			}
			a.runScan(ctx, scanner, "directory", []string{path})
		case "full":
			ok, err := term.Confirm("A full scan reads the whole filesystem and can take hours. Continue?", false)
			if err != nil || !ok {
				continue
			}
			a.runScan(ctx, scanner, "full", []string{"/"})
		case "reports":
			a.scanReports(scanner)
		case "baseline":
			a.baselineMenu(ctx, scanner)
		case "update":
			var updErr error
			term.Spin("Updating signatures...", func() {
				updErr = scanner.UpdateDatabase(ctx)
			})
			if updErr != nil {
				term.Error("Update failed: %v", updErr)
			} else {
				term.Success("Signature database updated")
			}
			term.Pause()
		case "schedule":
			a.scheduleScans(ctx)
		}
	}
}

func (a *App) runScan(ctx context.Context, scanner *security.Scanner, kind string, paths []string) {
	var report models.ScanReport
	var scanErr error
	term.Spin("Scanning "+strings.Join(paths, ", ")+"...", func() {
		report, scanErr = scanner.Scan(ctx, kind, paths)
	})
	if scanErr != nil {
		term.Error("Scan failed: %v", scanErr)
		term.Pause()
		return
	}
	if report.Infected == 0 {
		term.Success("Clean: %d files scanned in %s", report.Scanned, report.Duration)
	} else {
		term.Error("%d infected files out of %d scanned:", report.Infected, report.Scanned)
		for _, f := range report.Findings {
			fmt.Println("    " + term.Red.Render(f))
		}
		term.Info("Report %s saved. Quarantine or delete the files after review.", report.ID)
	}
	term.Pause()
}

func (a *App) scanReports(scanner *security.Scanner) {
	reports, err := scanner.Reports()
	if err != nil {
		term.Error("Could not read reports: %v", err)
		term.Pause()
		return
	}
	if len(reports) == 0 {
		term.Info("No scan reports yet.")
		term.Pause()
		return
	}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		infected := strconv.Itoa(r.Infected)
		if r.Infected > 0 {
			infected = term.RedBold.Render(infected)
		}
		rows = append(rows, []string{
			r.ID, r.StartedAt.Format("Jan 02 15:04"), r.Target,
			strconv.Itoa(r.Scanned), infected, r.Duration,
		})
	}
	term.PrintTable([]string{"ID", "When", "Target", "Scanned", "Infected", "Took"}, rows)
	term.Pause()
}

func (a *App) baselineMenu(ctx context.Context, scanner *security.Scanner) {
	baseline, exists, err := scanner.LoadBaseline()
	if err != nil {
		term.Error("Could not load baseline: %v", err)
		term.Pause()
		return
	}

	if !exists {
		term.Info("No integrity baseline yet. A baseline records checksums of every file under a directory so later changes can be detected.")
		ok, err := term.Confirm("Create one now?", true)
		if err != nil || !ok {
			return
		}
	} else {
		fmt.Printf("  Baseline of %s from %s, %d files\n\n",
			baseline.Directory, baseline.CreatedAt.Format("Jan 02 15:04"), len(baseline.Files))
		choice, err := term.Select("Baseline:", []huh.Option[string]{
			term.Option("Check for Changes", "check"),
			term.Option("Regenerate Baseline", "regen"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}
		if choice == "check" {
			var diff security.BaselineDiff
			term.Spin("Hashing files...", func() {
				diff = scanner.CheckBaseline(ctx, baseline)
			})
			if diff.Clean() {
				term.Success("No changes since the baseline")
			} else {
				printBaselineDiff(diff)
			}
			term.Pause()
			return
		}
	}

	dir := a.cfg.WebRoot
	if exists {
		dir = baseline.Directory
	}
	input, err := term.Input("Directory to baseline:", dir, nil)
	if err != nil {
		return
	}
	if strings.TrimSpace(input) != "" {
		dir = strings.TrimSpace(input)
	}
	var genErr error
	term.Spin("Hashing files under "+dir+"...", func() {
		baseline, genErr = scanner.GenerateBaseline(ctx, dir)
	})
	if genErr != nil {
		term.Error("Baseline failed: %v", genErr)
	} else {
		term.Success("Baseline of %d files saved", len(baseline.Files))
	}
	term.Pause()
}

func printBaselineDiff(diff security.BaselineDiff) {
	if len(diff.New) > 0 {
		term.Warning("%d new files:", len(diff.New))
		for _, f := range diff.New {
			fmt.Println("    + " + f)
		}
	}
	if len(diff.Modified) > 0 {
		term.Warning("%d modified files:", len(diff.Modified))
		for _, f := range diff.Modified {
			fmt.Println("    ~ " + f)
		}
	}
	if len(diff.Deleted) > 0 {
		term.Warning("%d deleted files:", len(diff.Deleted))
		for _, f := range diff.Deleted {
			fmt.Println("    - " + f)
		}
	}
}

func (a *App) scheduleScans(ctx context.Context) {
	schedules := security.ScanSchedules()
	var opts []huh.Option[string]
	for i, s := range schedules {
		opts = append(opts, term.Option(s.Name, strconv.Itoa(i)))
	}
	opts = append(opts, backOption())
	choice, err := term.Select("Add which scan to cron?", opts)
	if err != nil || choice == "back" {
		return
	}
	idx, _ := strconv.Atoi(choice)
	s := schedules[idx]
	if err := a.cron.Add(ctx, s.Schedule, s.Command); err != nil {
		term.Error("Could not add cron job: %v", err)
	} else {
		term.Success("%s scheduled", s.Name)
	}
	term.Pause()
}
