package menu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/phpman"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) phpMenu(ctx context.Context) {
	for {
		term.Header("PHP")

		versions := a.php.InstalledVersions(ctx)
		def := a.php.DefaultVersion(ctx)
		if len(versions) == 0 {
			term.Info("No PHP versions installed. Use the Install menu to add one.")
			term.Pause()
			return
		}

		rows := make([][]string, 0, len(versions))
		for _, v := range versions {
			mark := ""
			if v == def {
				mark = term.Green.Render("default")
			}
			fpm := a.services.Status(ctx, "php"+v+"-fpm").Active
			rows = append(rows, []string{"PHP " + v, mark, "fpm: " + fpm})
		}
		term.PrintTable([]string{"Version", "", "Service"}, rows)
		fmt.Println()

		options := make([]huh.Option[string], 0, len(versions)+2)
		for _, v := range versions {
			options = append(options, term.Option("Manage PHP "+v, v))
		}
		options = append(options, term.Option("Switch Default CLI Version", "switch"), backOption())

		choice, err := term.Select("PHP:", options)
		if err != nil || choice == "back" {
			return
		}
		if choice == "switch" {
			a.switchDefaultPHP(ctx, versions, def)
			continue
		}
		a.managePHPVersion(ctx, choice)
	}
}

func (a *App) switchDefaultPHP(ctx context.Context, versions []string, current string) {
	var opts []huh.Option[string]
	for _, v := range versions {
		label := "PHP " + v
		if v == current {
			label += " (current)"
		}
		opts = append(opts, term.Option(label, v))
	}
	opts = append(opts, backOption())
	version, err := term.Select("Default CLI version:", opts)
	if err != nil || version == "back" {
		return
	}
	if err := a.php.SwitchDefault(ctx, version); err != nil {
		term.Error("Switch failed: %v", err)
	} else {
		term.Success("php now points at PHP %s", version)
	}
	term.Pause()
}

func (a *App) managePHPVersion(ctx context.Context, version string) {
	for {
		term.Header("PHP", version)

		choice, err := term.Select("PHP "+version+":", []huh.Option[string]{
			term.Option("Install Extension Bundle", "bundle"),
			term.Option("Install Individual Extensions", "extensions"),
			term.Option("List Loaded Extensions", "loaded"),
			term.Option("FPM Pool Calculator", "pool"),
			term.Option("Tune php.ini", "ini"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "bundle":
			a.installExtensionBundle(ctx, version)
		case "extensions":
			input, err := term.Input("Extensions (space separated):", "imagick xdebug", nil)
			if err != nil {
				continue
			}
			exts := strings.Fields(input)
			if len(exts) == 0 {
				continue
			}
			var instErr error
			term.Spin("Installing extensions...", func() {
				instErr = a.php.InstallExtensions(ctx, version, exts)
			})
			if instErr != nil {
				term.Error("Install failed: %v", instErr)
			} else {
				term.Success("Installed: %s", strings.Join(exts, ", "))
			}
			term.Pause()
		case "loaded":
			exts := a.php.Extensions(ctx, version)
			if len(exts) == 0 {
				term.Warning("Could not list modules for PHP %s.", version)
			} else {
				fmt.Println("  " + strings.Join(exts, ", "))
			}
			term.Pause()
		case "pool":
			a.poolCalculator(ctx, version)
		case "ini":
			a.tuneINI(ctx, version)
		}
	}
}

func (a *App) installExtensionBundle(ctx context.Context, version string) {
	names := make([]string, 0, len(phpman.ExtensionBundles))
	for name := range phpman.ExtensionBundles {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []huh.Option[string]
	for _, name := range names {
		opts = append(opts, term.Option(
			name+" ("+strings.Join(phpman.ExtensionBundles[name], ", ")+")", name))
	}
	opts = append(opts, backOption())
	bundle, err := term.Select("Bundle:", opts)
	if err != nil || bundle == "back" {
		return
	}
	var instErr error
	term.Spin("Installing "+bundle+" bundle...", func() {
		instErr = a.php.InstallExtensions(ctx, version, phpman.ExtensionBundles[bundle])
	})
	if instErr != nil {
		term.Error("Install failed: %v", instErr)
	} else {
		term.Success("%s bundle installed for PHP %s", bundle, version)
	}
	term.Pause()
}

func (a *App) poolCalculator(ctx context.Context, version string) {
	specs, err := phpman.DetectSpecs(ctx)
	if err != nil {
		term.Error("Could not detect server specs: %v", err)
		term.Pause()
		return
	}
	fmt.Printf("  Server: %d MB RAM, %d cores\n\n", specs.TotalMemMB, specs.CPUCount)

	avgStr, err := term.Input("Average PHP worker size in MB (default 50):", "50", func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err != nil || n < 1 {
			return errors.New("enter a positive number")
		}
		return nil
	})
	if err != nil {
		return
	}
	avg := 50
	if n, err := strconv.Atoi(strings.TrimSpace(avgStr)); err == nil && n > 0 {
		avg = n
	}

	p := phpman.CalculatePoolSettings(specs, avg)
	term.PrintTable([]string{"Setting", "Value"}, [][]string{
		{"pm.max_children", strconv.Itoa(p.MaxChildren)},
		{"pm.start_servers", strconv.Itoa(p.StartServers)},
		{"pm.min_spare_servers", strconv.Itoa(p.MinSpareServers)},
		{"pm.max_spare_servers", strconv.Itoa(p.MaxSpareServers)},
	})

	ok, err := term.Confirm("Apply these settings to PHP "+version+"-fpm and restart it?", false)
	if err != nil || !ok {
		return
	}
	var applyErr error
	term.Spin("Applying pool settings...", func() {
		applyErr = a.php.ApplyPoolSettings(ctx, version, p)
	})
	if applyErr != nil {
		term.Error("Apply failed: %v", applyErr)
	} else {
		term.Success("Pool resized and FPM restarted")
	}
	term.Pause()
}

func (a *App) tuneINI(ctx context.Context, version string) {
	keys := make([]string, 0, len(phpman.RecommendedINI))
	for key := range phpman.RecommendedINI {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		current := a.php.GetINI(ctx, version, key)
		rows = append(rows, []string{key, current, phpman.RecommendedINI[key]})
	}
	term.PrintTable([]string{"Setting", "Current", "Recommended"}, rows)
	fmt.Println()

	var opts []huh.Option[string]
	for _, key := range keys {
		opts = append(opts, term.Option(key, key))
	}
	opts = append(opts, term.Option("Apply All Recommended", "all"), backOption())
	choice, err := term.Select("Change which setting?", opts)
	if err != nil || choice == "back" {
		return
	}

	restart := false
	if choice == "all" {
		for _, key := range keys {
			if err := a.php.SetINI(ctx, version, key, phpman.RecommendedINI[key]); err != nil {
				term.Error("%s: %v", key, err)
			} else {
				restart = true
			}
		}
	} else {
		value, err := term.Input(choice+" =", phpman.RecommendedINI[choice], nil)
		if err != nil {
			return
		}
		value = strings.TrimSpace(value)
		if value == "" {
			value = phpman.RecommendedINI[choice]
		}
		if err := a.php.SetINI(ctx, version, choice, value); err != nil {
			term.Error("Set failed: %v", err)
		} else {
			restart = true
		}
	}

	if restart {
		if err := a.services.Restart(ctx, "php"+version+"-fpm"); err != nil {
			term.Warning("php.ini updated but FPM restart failed: %v", err)
		} else {
			term.Success("php.ini updated, FPM restarted")
		}
	}
	term.Pause()
}
