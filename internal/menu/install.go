package menu

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/detect"
	"github.com/forgecli/forge/internal/install"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) installMenu(ctx context.Context) {
	installer := install.NewInstaller()

	for {
		term.Header("Install Software")

		var detections []struct {
			name, version, running string
			installed              bool
		}
		term.Spin("Detecting installed software...", func() {
			for _, d := range detect.All(ctx) {
				running := "-"
				if d.Installed {
					if d.Running {
						running = term.Green.Render("running")
					} else {
						running = term.Dim.Render("stopped")
					}
				}
				detections = append(detections, struct {
					name, version, running string
					installed              bool
				}{d.Name, d.Version, running, d.Installed})
			}
		})
		rows := make([][]string, 0, len(detections))
		for _, d := range detections {
			mark := term.CrossMark
			if d.installed {
				mark = term.CheckMark
			}
			rows = append(rows, []string{mark, d.name, d.version, d.running})
		}
		term.PrintTable([]string{"", "Software", "Version", "State"}, rows)
		fmt.Println()

		recipes := install.Recipes()
		options := make([]huh.Option[string], 0, len(recipes)+2)
		for _, r := range recipes {
			label := r.Name
			if r.Installed() {
				label += " (installed, reinstall)"
			}
			options = append(options, term.Option(label, r.Key))
		}
		options = append(options, term.Option("PHP (pick a version)", "php"), backOption())

		choice, err := term.Select("Install:", options)
		if err != nil || choice == "back" {
			return
		}
		if choice == "php" {
			a.installPHPFlow(ctx, installer)
			continue
		}
		for _, r := range recipes {
			if r.Key != choice {
				continue
			}
			if err := installer.Run(ctx, r); err != nil {
				term.Error("Install failed: %v", err)
			} else {
				term.Success("%s installed", r.Name)
			}
			term.Pause()
			break
		}
	}
}

func (a *App) installPHPFlow(ctx context.Context, installer *install.Installer) {
	version, err := term.Select("PHP version:", []huh.Option[string]{
		term.Option("PHP 8.4", "8.4"),
		term.Option("PHP 8.3", "8.3"),
		term.Option("PHP 8.2", "8.2"),
		term.Option("PHP 8.1", "8.1"),
		term.Option("PHP 7.4 (legacy)", "7.4"),
	})
	if err != nil {
		return
	}
	if install.PHPPackageInstalled(ctx, version) {
		term.Info("PHP %s is already installed.", version)
		if ok, _ := term.Confirm("Reinstall anyway?", false); !ok {
			return
		}
	}
	recipe := install.PHPRecipe(version)
	if err := installer.Run(ctx, recipe); err != nil {
		term.Error("Install failed: %v", err)
	} else {
		if err := a.store.SavePHP(models.PHPInstall{
			Version:    version,
			Extensions: install.DefaultPHPExtensions,
		}); err != nil {
			term.Warning("PHP installed but state update failed: %v", err)
		}
		term.Success("PHP %s installed with the default extension set", version)
	}
	term.Pause()
}
