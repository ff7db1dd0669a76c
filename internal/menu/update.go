package menu

import (
	"context"
	"fmt"

	"github.com/forgecli/forge/internal/term"
	"github.com/forgecli/forge/internal/updater"
)

func (a *App) updateMenu(ctx context.Context) {
	term.Header("Updates")
	fmt.Println("  Current version: " + updater.Version)
	fmt.Println()

	var info *updater.UpdateInfo
	term.Spin("Checking GitHub for releases...", func() {
		info = a.updates.Check(ctx, true)
	})
	if info.Warning != "" {
		term.Warning("%s", info.Warning)
		term.Pause()
		return
	}
	if !info.UpdateAvailable {
		term.Success("You are on the latest version (%s)", info.LatestVersion)
		term.Pause()
		return
	}

	term.Info("Version %s is available (you have %s)", info.LatestVersion, info.CurrentVersion)
	if info.ReleaseNotes != "" {
		fmt.Println()
		fmt.Println(term.Dim.Render(info.ReleaseNotes))
	}
	fmt.Println()

	ok, err := term.Confirm("Update now?", true)
	if err != nil || !ok {
		return
	}
	var updErr error
	term.Spin("Updating...", func() {
		updErr = updater.SelfUpdate(ctx, info)
	})
	if updErr != nil {
		term.Error("%v", updErr)
	} else {
		term.Success("Updated. Restart forge to run the new version.")
	}
	term.Pause()
}
