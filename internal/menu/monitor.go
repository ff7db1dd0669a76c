package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/monitor"
	"github.com/forgecli/forge/internal/netutil"
	"github.com/forgecli/forge/internal/term"
)

func (a *App) monitorMenu(ctx context.Context) {
	for {
		term.Header("Monitoring")

		var snap models.MetricSnapshot
		var snapErr error
		term.Spin("Sampling...", func() {
			snap, snapErr = monitor.Snapshot(ctx)
		})
		if snapErr != nil {
			term.Error("Sampling failed: %v", snapErr)
			term.Pause()
			return
		}
		printSnapshot(ctx, snap)

		choice, err := term.Select("Monitoring:", []huh.Option[string]{
			term.Option("Refresh", "refresh"),
			term.Option("Watch (updates every 5s, ctrl-c to stop)", "watch"),
			term.Option("Network (IPs & listening ports)", "network"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}
		switch choice {
		case "watch":
			a.watchMetrics(ctx)
		case "network":
			networkOverview(ctx)
		}
	}
}

func networkOverview(ctx context.Context) {
	term.Header("Monitoring", "Network")

	var (
		localIPs []string
		publicIP string
		pubErr   error
		ports    []netutil.ListeningPort
	)
	term.Spin("Inspecting network...", func() {
		localIPs = netutil.LocalIPs(ctx)
		publicIP, pubErr = netutil.PublicIP(ctx)
		ports = netutil.ListeningPorts(ctx)
	})

	if len(localIPs) > 0 {
		term.Info("Local IPs: %s", strings.Join(localIPs, ", "))
	}
	if pubErr != nil {
		term.Warning("Public IP lookup failed: %v", pubErr)
	} else {
		term.Info("Public IP: %s", publicIP)
	}

	rows := [][]string{}
	for _, p := range ports {
		rows = append(rows, []string{p.Address, fmt.Sprintf("%d", p.Port), p.Process})
	}
	term.PrintTable([]string{"Address", "Port", "Process"}, rows)
	term.Pause()
}

func printSnapshot(ctx context.Context, snap models.MetricSnapshot) {
	bar := func(pct float64) string { return monitor.ProgressBar(pct, 100, 30) }
	fmt.Printf("  CPU    %s %5.1f%%  (%d cores)\n", bar(snap.CPUPercent), snap.CPUPercent, snap.CPUCount)
	fmt.Printf("  Memory %s %5.1f%%  (%.0f / %.0f MB)\n", bar(snap.MemPercent), snap.MemPercent, snap.MemUsedMB, snap.MemTotalMB)
	if snap.SwapPercent > 0 {
		fmt.Printf("  Swap   %s %5.1f%%\n", bar(snap.SwapPercent), snap.SwapPercent)
	}
	fmt.Printf("  Load   %.2f / %.2f / %.2f\n", snap.Load1, snap.Load5, snap.Load15)
	for mount, pct := range snap.DiskPercent {
		fmt.Printf("  Disk   %s %5.1f%%  %s\n", bar(pct), pct, mount)
	}
	if up := monitor.Uptime(ctx); up != "" {
		fmt.Printf("  Up     %s\n", up)
	}
	fmt.Println()
}

// watchMetrics re-samples until ctx is cancelled, recording each
// snapshot so thresholds keep generating alerts while watching.
func (a *App) watchMetrics(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		snap, err := monitor.Snapshot(ctx)
		if err != nil {
			term.Error("Sampling failed: %v", err)
			return
		}
		term.Header("Monitoring", "Watch")
		printSnapshot(ctx, snap)
		if alerts, err := a.alerts.Record(snap); err == nil {
			for _, alert := range alerts {
				term.Warning("%s", alert.Message)
			}
		}
		fmt.Println(term.Dim.Render("  ctrl-c to stop"))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
