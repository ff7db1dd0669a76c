// Package cli defines the forge command tree. The bare command starts
// the interactive menu; subcommands cover the non-interactive entry
// points cron and scripts need.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgecli/forge/internal/alerts"
	"github.com/forgecli/forge/internal/config"
	"github.com/forgecli/forge/internal/detect"
	"github.com/forgecli/forge/internal/menu"
	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/services"
	"github.com/forgecli/forge/internal/state"
	"github.com/forgecli/forge/internal/term"
	"github.com/forgecli/forge/internal/updater"
)

// New builds the root command.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:           "forge",
		Short:         "Interactive Ubuntu server administration",
		Long:          "Forge manages nginx sites, SSL, services, PHP, monitoring and security on Ubuntu servers through an interactive menu.",
		Version:       updater.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runMenu,
	}
	root.AddCommand(newStatusCmd(), newCollectCmd(), newVersionCmd())
	return root
}

// newVersionCmd covers `forge version`; cobra's Version field only
// wires the --version flag.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the forge version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forge %s\n", updater.Version)
		},
	}
}

// Execute runs the CLI, translating errors into a non-zero exit.
func Execute() {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// signalContext cancels on SIGINT/SIGTERM so follows and watches stop
// cleanly.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runMenu(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := state.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	app, err := menu.NewApp(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !cfg.SkipUpdateCheck {
		checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
		info := updater.NewChecker("").Check(checkCtx, false)
		checkCancel()
		if info.UpdateAvailable {
			app.SetUpdateBanner(fmt.Sprintf("Update available: %s -> %s (see Check for Updates)",
				info.CurrentVersion, info.LatestVersion))
		}
	}

	return app.Run(ctx)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print detected software and critical service state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rows := [][]string{}
			for _, d := range detect.All(ctx) {
				mark := term.CrossMark
				running := "-"
				if d.Installed {
					mark = term.CheckMark
					if d.Running {
						running = "running"
					} else {
						running = "stopped"
					}
				}
				rows = append(rows, []string{mark, d.Name, d.Version, running, d.Details})
			}
			term.PrintTable([]string{"", "Software", "Version", "State", "Details"}, rows)

			if down := services.NewManager().CriticalDown(ctx); len(down) > 0 {
				for _, unit := range down {
					term.Error("critical service down: %s", unit)
				}
				os.Exit(1)
			}
			return nil
		},
	}
}

func newCollectCmd() *cobra.Command {
	var (
		watch    bool
		interval time.Duration
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect metrics and evaluate alert thresholds",
		Long:  "Takes one metric snapshot, appends it to history and records any threshold breaches. Intended to run from cron; --watch keeps collecting on an interval instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelDebug,
				})))
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dir, err := cfg.SubDir("monitoring")
			if err != nil {
				return err
			}
			mgr, err := alerts.NewManager(dir)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if watch {
				slog.Info("watching metrics", "interval", interval)
				return mgr.Watch(ctx, interval, func(a models.Alert) {
					slog.Warn("alert", "metric", a.Metric, "severity", a.Severity, "message", a.Message)
				})
			}

			fired, err := mgr.Collect(ctx)
			if err != nil {
				return err
			}
			if verbose {
				if history := mgr.History(1); len(history) > 0 {
					snap := history[0]
					fmt.Printf("cpu=%.1f%% mem=%.1f%% load1=%.2f alerts=%d\n",
						snap.CPUPercent, snap.MemPercent, snap.Load1, len(fired))
				}
			}
			for _, a := range fired {
				fmt.Fprintln(os.Stderr, a.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep collecting on an interval instead of exiting")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "collection interval in watch mode")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging and print the snapshot after collecting")
	return cmd
}
