package menu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/logs"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) logsMenu(ctx context.Context) {
	for {
		term.Header("Logs")

		files := a.listLogFiles()
		var opts []huh.Option[string]
		for _, f := range files {
			opts = append(opts, term.Option(f, f))
		}
		opts = append(opts, term.Option("Other Path...", "other"), backOption())

		name, err := term.Select("Which log?", opts)
		if err != nil || name == "back" {
			return
		}
		if name == "other" {
			path, err := term.Input("Log path:", "/var/log/syslog", nil)
			if err != nil {
				continue
			}
			name = strings.TrimSpace(path)
		}
		a.logActions(ctx, name)
	}
}

// listLogFiles names the nginx logs, newest-modified first. Reading
// the directory may need root, so an empty result is not an error.
func (a *App) listLogFiles() []string {
	entries, err := os.ReadDir(a.logs.LogDir)
	if err != nil {
		return nil
	}
	type fileInfo struct {
		name string
		mod  int64
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		var mod int64
		if info, err := e.Info(); err == nil {
			mod = info.ModTime().Unix()
		}
		files = append(files, fileInfo{e.Name(), mod})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod > files[j].mod })
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names
}

func (a *App) logActions(ctx context.Context, name string) {
	for {
		term.Header("Logs", filepath.Base(name))

		choice, err := term.Select(name+":", []huh.Option[string]{
			term.Option("Last 50 Lines", "tail"),
			term.Option("Follow (ctrl-c to stop)", "follow"),
			term.Option("Search", "search"),
			term.Option("Error Summary", "summary"),
			term.Option("Filter Error Level", "level"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "tail":
			a.showLog(ctx, name)
		case "follow":
			term.Info("Following %s, ctrl-c to stop", name)
			if err := a.logs.Follow(ctx, name, func(line string) {
				fmt.Println(logs.Colorize(line))
			}); err != nil && ctx.Err() == nil {
				term.Warning("follow ended: %v", err)
			}
		case "search":
			pattern, err := term.Input("Search for:", "POST /login", nil)
			if err != nil {
				continue
			}
			lines, err := a.logs.Search(ctx, name, pattern)
			if err != nil {
				term.Error("Search failed: %v", err)
			} else if len(lines) == 0 {
				term.Info("No matches.")
			} else {
				for _, line := range lines {
					fmt.Println(logs.Colorize(line))
				}
				term.Info("%d matching lines", len(lines))
			}
			term.Pause()
		case "summary":
			a.logSummary(ctx, name)
		case "level":
			level, err := term.Select("Minimum level:", []huh.Option[string]{
				term.Option("error (and above)", "error"),
				term.Option("warn (and above)", "warn"),
				term.Option("crit (and above)", "crit"),
			})
			if err != nil {
				continue
			}
			lines, err := a.logs.Tail(ctx, name, 500)
			if err != nil {
				term.Error("Read failed: %v", err)
				term.Pause()
				continue
			}
			filtered := logs.FilterLevel(lines, level)
			if len(filtered) == 0 {
				term.Info("No %s+ lines in the last 500.", level)
			}
			for _, line := range filtered {
				fmt.Println(logs.Colorize(line))
			}
			term.Pause()
		}
	}
}

// showLog prints the tail of a log with coloring.
func (a *App) showLog(ctx context.Context, name string) {
	lines, err := a.logs.Tail(ctx, name, 50)
	if err != nil {
		term.Error("Read failed: %v", err)
		term.Pause()
		return
	}
	if len(lines) == 0 {
		term.Info("%s is empty.", name)
		term.Pause()
		return
	}
	for _, line := range lines {
		fmt.Println(logs.Colorize(line))
	}
	term.Pause()
}

func (a *App) logSummary(ctx context.Context, name string) {
	lines, err := a.logs.Tail(ctx, name, 1000)
	if err != nil {
		term.Error("Read failed: %v", err)
		term.Pause()
		return
	}
	sum := logs.Summarize(lines)
	if sum.Total == 0 {
		term.Success("No 4xx/5xx responses in the last %d lines", len(lines))
		term.Pause()
		return
	}

	codes := make([]int, 0, len(sum.StatusCounts))
	for code := range sum.StatusCounts {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		desc := logs.StatusDescriptions[code]
		styled := term.StyleForStatus(code).Render(strconv.Itoa(code))
		rows = append(rows, []string{styled, desc, strconv.Itoa(sum.StatusCounts[code])})
	}
	term.PrintTable([]string{"Status", "Meaning", "Count"}, rows)

	if len(sum.TopIPs) > 0 {
		fmt.Println()
		ipRows := make([][]string, 0, len(sum.TopIPs))
		for _, ip := range sum.TopIPs {
			ipRows = append(ipRows, []string{ip.IP, strconv.Itoa(ip.Count)})
		}
		term.PrintTable([]string{"Client", "Errors"}, ipRows)
	}
	if len(sum.RecentErrors) > 0 {
		fmt.Println()
		term.Info("Most recent errors:")
		for _, line := range sum.RecentErrors {
			fmt.Println("  " + term.Dim.Render(line))
		}
	}
	term.Pause()
}
