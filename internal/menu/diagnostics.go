package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/diagnostics"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) diagnosticsMenu(ctx context.Context) {
	runner := diagnostics.NewRunner()

	for {
		term.Header("Diagnostics")

		choice, err := term.Select("Diagnostics:", []huh.Option[string]{
			term.Option("HTTP Error Code Guide", "guide"),
			term.Option("Check Nginx Configuration", "nginx"),
			term.Option("Check PHP-FPM", "fpm"),
			term.Option("Check Web Root Permissions", "perms"),
			term.Option("Check Port Conflicts", "ports"),
			term.Option("Common Fixes", "fixes"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "guide":
			a.errorGuide()
		case "nginx":
			a.runChecks([]models.HealthCheck{runner.NginxConfig(ctx)})
		case "fpm":
			a.runChecks(runner.PHPFPM(ctx, a.php.InstalledVersions(ctx)))
		case "perms":
			a.runChecks([]models.HealthCheck{runner.Permissions(ctx, a.cfg.WebRoot, "www-data")})
		case "ports":
			port := 80
			if input, err := term.Input("Port to check:", "80", nil); err == nil {
				if n, convErr := strconv.Atoi(input); convErr == nil && n > 0 {
					port = n
				}
			} else {
				continue
			}
			a.runChecks([]models.HealthCheck{runner.PortConflict(ctx, port)})
		case "fixes":
			a.commonFixes(ctx, runner)
		}
	}
}

func (a *App) errorGuide() {
	var opts []huh.Option[string]
	for _, g := range diagnostics.Guides {
		opts = append(opts, term.Option(strconv.Itoa(g.Code)+" "+g.Name, strconv.Itoa(g.Code)))
	}
	opts = append(opts, backOption())
	choice, err := term.Select("Which error are you seeing?", opts)
	if err != nil || choice == "back" {
		return
	}
	code, err := diagnostics.ParseGuideCode(choice)
	if err != nil {
		return
	}
	guide, ok := diagnostics.GuideFor(code)
	if !ok {
		return
	}

	fmt.Println()
	fmt.Println("  " + term.Bold.Render(fmt.Sprintf("%d %s", guide.Code, guide.Name)))
	fmt.Println()
	fmt.Println("  Likely causes:")
	for _, c := range guide.Causes {
		fmt.Println("    - " + c)
	}
	fmt.Println()
	fmt.Println("  Things to try:")
	for _, f := range guide.Fixes {
		fmt.Println("    - " + f)
	}
	term.Pause()
}

func (a *App) runChecks(checks []models.HealthCheck) {
	for _, c := range checks {
		if c.OK {
			fmt.Printf("  %s %s: %s\n", term.CheckMark, c.Name, c.Detail)
		} else {
			fmt.Printf("  %s %s: %s\n", term.CrossMark, c.Name, c.Detail)
		}
	}
	term.Pause()
}

func (a *App) commonFixes(ctx context.Context, runner *diagnostics.Runner) {
	phpVersion := a.cfg.DefaultPHP
	fixes := diagnostics.Fixes(phpVersion)

	var opts []huh.Option[string]
	for i, f := range fixes {
		label := f.Name
		if f.Dangerous {
			label += " " + term.Yellow.Render("(destructive)")
		}
		opts = append(opts, term.Option(label, strconv.Itoa(i)))
	}
	opts = append(opts, backOption())
	choice, err := term.Select("Apply which fix?", opts)
	if err != nil || choice == "back" {
		return
	}
	idx, _ := strconv.Atoi(choice)
	fix := fixes[idx]

	if fix.Dangerous {
		ok, err := term.Confirm(fix.Name+" runs: "+strings.Join(fix.Command, " ")+"\nContinue?", false)
		if err != nil || !ok {
			return
		}
	}
	var applyErr error
	term.Spin("Running "+fix.Name+"...", func() {
		applyErr = runner.Apply(ctx, fix)
	})
	if applyErr != nil {
		term.Error("Fix failed: %v", applyErr)
	} else {
		term.Success("%s done", fix.Name)
	}
	term.Pause()
}
