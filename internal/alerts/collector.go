package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/forgecli/forge/internal/models"
	"github.com/forgecli/forge/internal/monitor"
)

// Collect takes one metric snapshot and records it, returning any
// alerts it triggered. This is the cron entry point.
func (m *Manager) Collect(ctx context.Context) ([]models.Alert, error) {
	snap, err := monitor.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("metric collection failed: %w", err)
	}
	return m.Record(snap)
}

// Watch runs Collect on a fixed interval until ctx is cancelled, for
// hosts that prefer a foreground daemon over a crontab entry.
func (m *Manager) Watch(ctx context.Context, interval time.Duration, onAlert func(models.Alert)) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			alerts, err := m.Collect(ctx)
			if err != nil {
				slog.Error("metric collection failed", "error", err)
				return
			}
			slog.Info("metrics collected", "alerts", len(alerts))
			for _, a := range alerts {
				if onAlert != nil {
					onAlert(a)
				}
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule collection job: %w", err)
	}

	scheduler.Start()
	<-ctx.Done()
	return scheduler.Shutdown()
}
