package menu

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/auditor"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) auditorMenu(ctx context.Context) {
	aud := auditor.New(a.cfg.NginxSitesAvailable, a.cfg.NginxSitesEnabled)

	for {
		term.Header("Config Auditor")

		scope, err := term.Select("Audit what?", []huh.Option[string]{
			term.Option("Everything", "all"),
			term.Option("Nginx Vhosts", "nginx"),
			term.Option("PHP Settings", "php"),
			term.Option("Services", "services"),
			term.Option("Security Basics", "security"),
			backOption(),
		})
		if err != nil || scope == "back" {
			return
		}

		var issues []auditor.Issue
		term.Spin("Auditing...", func() {
			switch scope {
			case "all":
				issues = aud.All(ctx, a.php.InstalledVersions(ctx))
			case "nginx":
				issues = aud.Nginx(ctx)
			case "php":
				issues = aud.PHP(ctx, a.php.InstalledVersions(ctx))
			case "services":
				issues = aud.Services(ctx)
			case "security":
				issues = aud.Security(ctx)
			}
		})

		if len(issues) == 0 {
			term.Success("No issues found")
			term.Pause()
			continue
		}

		rows := make([][]string, 0, len(issues))
		for _, issue := range issues {
			sev := string(issue.Severity)
			switch issue.Severity {
			case auditor.SeverityHigh:
				sev = term.RedBold.Render(sev)
			case auditor.SeverityMedium:
				sev = term.Yellow.Render(sev)
			default:
				sev = term.Dim.Render(sev)
			}
			fixable := ""
			if issue.Fixable {
				fixable = term.CheckMark
			}
			rows = append(rows, []string{sev, issue.Category, issue.Target, issue.Description, fixable})
		}
		term.PrintTable([]string{"Severity", "Area", "Target", "Issue", "Auto-fix"}, rows)
		fmt.Println()

		fixable := auditor.Fixable(issues)
		if len(fixable) == 0 {
			term.Info("None of these can be fixed automatically.")
			term.Pause()
			continue
		}

		ok, err := term.Confirm(fmt.Sprintf("Apply %d automatic fixes?", len(fixable)), false)
		if err != nil || !ok {
			continue
		}
		var results []auditor.FixResult
		term.Spin("Applying fixes...", func() {
			results = aud.Fix(ctx, fixable)
		})
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				term.Error("%s: %v", r.Issue.Description, r.Err)
			}
		}
		if failed == 0 {
			term.Success("All %d fixes applied", len(results))
		} else {
			term.Warning("%d of %d fixes failed", failed, len(results))
		}
		term.Pause()
	}
}
