package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/forgecli/forge/internal/term"
)

func (a *App) historyMenu(ctx context.Context) {
	for {
		term.Header("Change History")
		fmt.Printf("  %d events retained\n\n", a.store.LineageLen())

		choice, err := term.Select("Change History:", []huh.Option[string]{
			term.Option("Recent Changes", "recent"),
			term.Option("History for a Site", "site"),
			term.Option("Full Report", "report"),
			term.Option("Clear History", "clear"),
			backOption(),
		})
		if err != nil || choice == "back" {
			return
		}

		switch choice {
		case "recent":
			events := a.store.RecentChanges(25)
			if len(events) == 0 {
				term.Info("No changes recorded yet.")
				term.Pause()
				continue
			}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				rows = append(rows, []string{
					e.Timestamp.Format("Jan 02 15:04"), e.EntityType, e.EntityID, e.Action,
				})
			}
			term.PrintTable([]string{"When", "Type", "Entity", "Action"}, rows)
			term.Pause()
		case "site":
			site, ok := a.pickSite(ctx, "History for which site?")
			if !ok {
				continue
			}
			events := a.store.EntityHistory("site", site.Domain)
			if len(events) == 0 {
				term.Info("No recorded changes for %s.", site.Domain)
				term.Pause()
				continue
			}
			for _, e := range events {
				fmt.Printf("  %s  %s\n", e.Timestamp.Format("Jan 02 15:04"), e.Action)
				for k, v := range e.NewState {
					fmt.Printf("      %s: %v\n", k, v)
				}
			}
			term.Pause()
		case "report":
			report := a.store.LineageReport()
			fmt.Println(report)
			term.Pause()
		case "clear":
			input, err := term.Input("Type 'clear' to delete all change history:", "", nil)
			if err != nil || strings.TrimSpace(input) != "clear" {
				continue
			}
			if err := a.store.ClearLineage(); err != nil {
				term.Error("Clear failed: %v", err)
			} else {
				term.Success("History cleared")
			}
			term.Pause()
		}
	}
}
