package menu

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/disk"
	"github.com/forgecli/forge/internal/monitor"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) diskMenu(ctx context.Context) {
	for {
		term.Header("Disk")

		disks := monitor.Disks(ctx)
		if len(disks) > 0 {
			rows := make([][]string, 0, len(disks))
			for _, d := range disks {
				pct := fmt.Sprintf("%.0f%%", d.Percent)
				if d.Percent >= 90 {
					pct = term.RedBold.Render(pct)
				} else if d.Percent >= 75 {
					pct = term.Yellow.Render(pct)
				}
				rows = append(rows, []string{
					d.Mount, d.Filesystem,
					fmt.Sprintf("%.1f GB", d.UsedGB),
					fmt.Sprintf("%.1f GB", d.SizeGB),
					pct,
				})
			}
			term.PrintTable([]string{"Mount", "Filesystem", "Used", "Size", "Used %"}, rows)
			fmt.Println()
		}

		choice, err := term.Select("Disk:", []huh.Option[string]{
			term.Option("Analyze Directory Usage", "analyze"),
			term.Option("Cleanup (safe)", "cleanup"),
			term.Option("Deep Cleanup (temp files, docker prune)", "deep"),
			term.Option("Find Large Files", "large"),
			term.Option("Find Old Files", "old"),
			term.Option("Find Duplicate Files", "dupes"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "analyze":
			a.analyzeDir(ctx)
		case "cleanup":
			if err := a.disk.RunCleanup(ctx, false); err != nil {
				term.Error("Cleanup stopped: %v", err)
			} else {
				term.Success("Cleanup complete")
			}
			term.Pause()
		case "deep":
			ok, err := term.Confirm("Deep cleanup deletes old /tmp files and prunes all unused docker data. Continue?", false)
			if err != nil || !ok {
				continue
			}
			if err := a.disk.RunCleanup(ctx, true); err != nil {
				term.Error("Cleanup stopped: %v", err)
			} else {
				term.Success("Deep cleanup complete")
			}
			term.Pause()
		case "large":
			a.largeFiles(ctx)
		case "old":
			a.oldFiles(ctx)
		case "dupes":
			a.duplicateFiles(ctx)
		}
	}
}

func (a *App) analyzeDir(ctx context.Context) {
	path, err := term.Input("Directory:", "/var", nil)
	if err != nil {
		return
	}
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/var"
	}

	entries, analyzeErr := a.disk.AnalyzeDir(ctx, path)
	if analyzeErr != nil {
		term.Error("Analyze failed: %v", analyzeErr)
		term.Pause()
		return
	}
	if len(entries) == 0 {
		term.Info("No subdirectories under %s.", path)
		term.Pause()
		return
	}
	if len(entries) > 20 {
		entries = entries[:20]
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Path, fmt.Sprintf("%.1f MB", e.SizeMB)})
	}
	term.PrintTable([]string{"Path", "Size"}, rows)
	term.Pause()
}

func (a *App) largeFiles(ctx context.Context) {
	root, err := term.Input("Search under:", "/", nil)
	if err != nil {
		return
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "/"
	}
	minStr, err := term.Input("Minimum size in MB:", "100", nil)
	if err != nil {
		return
	}
	minMB := 100
	if n, err := strconv.Atoi(strings.TrimSpace(minStr)); err == nil && n > 0 {
		minMB = n
	}

	var entries []disk.FileEntry
	var findErr error
	term.Spin("Searching...", func() {
		entries, findErr = a.disk.LargeFiles(ctx, root, minMB, 25)
	})
	if findErr != nil {
		term.Error("Search failed: %v", findErr)
		term.Pause()
		return
	}
	if len(entries) == 0 {
		term.Info("No files over %d MB under %s.", minMB, root)
		term.Pause()
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Path, fmt.Sprintf("%.1f MB", e.SizeMB)})
	}
	term.PrintTable([]string{"File", "Size"}, rows)
	term.Pause()
}

func (a *App) oldFiles(ctx context.Context) {
	root, err := term.Input("Search under:", "/var/log", nil)
	if err != nil {
		return
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "/var/log"
	}
	daysStr, err := term.Input("Not accessed in N days:", "90", nil)
	if err != nil {
		return
	}
	days := 90
	if n, err := strconv.Atoi(strings.TrimSpace(daysStr)); err == nil && n > 0 {
		days = n
	}

	var files []string
	var findErr error
	term.Spin("Searching...", func() {
		files, findErr = a.disk.OldFiles(ctx, root, days, 50)
	})
	if findErr != nil {
		term.Error("Search failed: %v", findErr)
		term.Pause()
		return
	}
	if len(files) == 0 {
		term.Info("Nothing under %s untouched for %d+ days.", root, days)
		term.Pause()
		return
	}
	for _, f := range files {
		fmt.Println("  " + f)
	}
	term.Info("%d files (delete them yourself after review)", len(files))
	term.Pause()
}

func (a *App) duplicateFiles(ctx context.Context) {
	root, err := term.Input("Search under:", "/var/www", nil)
	if err != nil {
		return
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = "/var/www"
	}

	var groups [][]string
	var findErr error
	term.Spin("Hashing files (this can take a while)...", func() {
		groups, findErr = a.disk.DuplicateGroups(ctx, root)
	})
	if findErr != nil {
		term.Error("Duplicate scan failed: %v", findErr)
		term.Pause()
		return
	}
	if len(groups) == 0 {
		term.Success("No duplicates under %s", root)
		term.Pause()
		return
	}
	for i, group := range groups {
		fmt.Printf("  Group %d:\n", i+1)
		for _, f := range group {
			fmt.Println("    " + f)
		}
	}
	term.Info("%d duplicate groups", len(groups))
	term.Pause()
}
