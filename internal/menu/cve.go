package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/cve"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) cveMenu(ctx context.Context) {
	scanner := cve.NewScanner(a.cfg.DataDir)

	for {
		term.Header("CVE Scanner")

		if last, ok := scanner.LastUpdate(); ok {
			age := time.Since(last)
			note := fmt.Sprintf("Vulnerability data refreshed %s ago", age.Round(time.Hour))
			if age > 7*24*time.Hour {
				term.Warning("%s, consider updating", note)
			} else {
				term.Info("%s", note)
			}
		} else {
			term.Warning("Vulnerability data has never been refreshed here.")
		}
		fmt.Println()

		choice, err := term.Select("CVE Scanner:", []huh.Option[string]{
			term.Option("Scan System Packages", "system"),
			term.Option("Scan Application Dependencies", "apps"),
			term.Option("Full Scan (system + applications)", "full"),
			term.Option("Latest Results", "latest"),
			term.Option("Scan History", "history"),
			term.Option("Update Vulnerability Data", "update"),
			term.Option("Schedule Weekly Scan", "schedule"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "system":
			var vulns []cve.Vulnerability
			term.Spin("Checking system packages (runs apt update)...", func() {
				vulns = scanner.System(ctx)
			})
			result := cve.FullResult{Type: "system", Timestamp: time.Now(), System: vulns}
			if err := scanner.Save(result); err != nil {
				term.Warning("Could not save results: %v", err)
			}
			printVulnerabilities(vulns)
		case "apps":
			var vulns []cve.Vulnerability
			term.Spin("Auditing application dependencies...", func() {
				vulns = scanner.Applications(ctx, cve.DefaultScanDirs)
			})
			result := cve.FullResult{Type: "apps", Timestamp: time.Now(), Applications: vulns}
			if err := scanner.Save(result); err != nil {
				term.Warning("Could not save results: %v", err)
			}
			printVulnerabilities(vulns)
		case "full":
			var result cve.FullResult
			var scanErr error
			term.Spin("Running full vulnerability scan...", func() {
				result, scanErr = scanner.Full(ctx)
			})
			if scanErr != nil {
				term.Warning("Results not saved: %v", scanErr)
			}
			printVulnerabilities(append(result.System, result.Applications...))
		case "latest":
			a.latestCVEResults(scanner)
		case "history":
			a.cveHistory(scanner)
		case "update":
			var updErr error
			term.Spin("Updating vulnerability data...", func() {
				updErr = scanner.UpdateDatabases(ctx)
			})
			if updErr != nil {
				term.Error("Update failed: %v", updErr)
			} else {
				term.Success("Vulnerability data updated")
			}
			term.Pause()
		case "schedule":
			a.scheduleCVEScan(ctx)
		}
	}
}

func printVulnerabilities(vulns []cve.Vulnerability) {
	if len(vulns) == 0 {
		term.Success("No known vulnerabilities found")
		term.Pause()
		return
	}
	rows := make([][]string, 0, len(vulns))
	for _, v := range vulns {
		sev := v.Severity
		if sev == "security" || strings.Contains(sev, "critical") || strings.Contains(sev, "high") {
			sev = term.RedBold.Render(sev)
		}
		target := v.Package
		if v.Project != "" {
			target = v.Project + ": " + v.Package
		}
		cves := strings.Join(v.CVEs, " ")
		if cves == "" {
			cves = "-"
		}
		rows = append(rows, []string{v.Type, target, v.Version, sev, cves})
	}
	term.PrintTable([]string{"Type", "Package", "Version", "Severity", "CVEs"}, rows)
	term.Info("%d findings. System packages: apt upgrade. Applications: bump the flagged dependencies.", len(vulns))
	term.Pause()
}

func (a *App) latestCVEResults(scanner *cve.Scanner) {
	for _, kind := range []string{"full", "system", "apps"} {
		result, ok, err := scanner.Latest(kind)
		if err != nil || !ok {
			continue
		}
		term.Info("Latest %s scan from %s:", kind, result.Timestamp.Format("Jan 02 15:04"))
		printVulnerabilities(append(result.System, result.Applications...))
		return
	}
	term.Info("No saved scans yet.")
	term.Pause()
}

func (a *App) cveHistory(scanner *cve.Scanner) {
	history, err := scanner.History()
	if err != nil {
		term.Error("Could not read history: %v", err)
		term.Pause()
		return
	}
	if len(history) == 0 {
		term.Info("No scans recorded yet.")
		term.Pause()
		return
	}
	rows := make([][]string, 0, len(history))
	for _, r := range history {
		total := strconv.Itoa(r.Total())
		if r.Total() > 0 {
			total = term.Yellow.Render(total)
		}
		rows = append(rows, []string{r.Timestamp.Format("Jan 02 15:04"), r.Type, total})
	}
	term.PrintTable([]string{"When", "Scan", "Findings"}, rows)
	term.Pause()
}

func (a *App) scheduleCVEScan(ctx context.Context) {
	// apt's unattended-upgrades handles patching; this just keeps the
	// upgradable-package report fresh for the dashboard.
	schedule := "0 6 * * 1"
	command := "apt-get update -q >/dev/null 2>&1 && apt list --upgradable 2>/dev/null | logger -t cve-scan"
	ok, err := term.Confirm("Add a weekly system package check (Mondays 6 AM) to cron?", true)
	if err != nil || !ok {
		return
	}
	if err := a.cron.Add(ctx, schedule, command); err != nil {
		term.Error("Could not add cron job: %v", err)
	} else {
		term.Success("Weekly scan scheduled")
	}
	term.Pause()
}
