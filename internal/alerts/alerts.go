// Package alerts evaluates metric snapshots against configurable
// thresholds and keeps a bounded alert and metric history on disk.
package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgecli/forge/internal/models"
)

const (
	maxHistoryEntries = 1000
	maxAlertEntries   = 1000
)

// DefaultThresholds are applied until the user configures their own.
func DefaultThresholds() models.Thresholds {
	return models.Thresholds{
		CPUWarning:   75,
		CPUCritical:  90,
		MemWarning:   80,
		MemCritical:  95,
		DiskWarning:  80,
		DiskCritical: 90,
		LoadWarning:  1.5,
		LoadCritical: 3.0,
		SwapWarning:  50,
		SwapCritical: 80,
	}
}

// Manager persists thresholds, alerts and metric history under the
// monitoring subdirectory of the data dir.
type Manager struct {
	mu         sync.Mutex
	dir        string
	thresholds models.Thresholds
	alerts     []models.Alert
	history    []models.MetricSnapshot
}

// NewManager loads (or initializes) alert state under dir.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create monitoring directory: %w", err)
	}
	m := &Manager{dir: dir, thresholds: DefaultThresholds()}

	if data, err := os.ReadFile(m.path("thresholds.json")); err == nil {
		json.Unmarshal(data, &m.thresholds)
	}
	if data, err := os.ReadFile(m.path("alerts.json")); err == nil {
		json.Unmarshal(data, &m.alerts)
	}
	if data, err := os.ReadFile(m.path("history.json")); err == nil {
		json.Unmarshal(data, &m.history)
	}
	return m, nil
}

func (m *Manager) path(name string) string { return filepath.Join(m.dir, name) }

func (m *Manager) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.WriteFile(m.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Thresholds returns the active thresholds.
func (m *Manager) Thresholds() models.Thresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.thresholds
}

// SetThresholds replaces and persists the thresholds.
func (m *Manager) SetThresholds(t models.Thresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = t
	return m.saveJSON("thresholds.json", t)
}

// Evaluate compares a snapshot against thresholds and returns the
// breaches, without persisting anything.
func Evaluate(snap models.MetricSnapshot, t models.Thresholds) []models.Alert {
	var alerts []models.Alert

	check := func(metric string, value, warn, crit float64) {
		var severity string
		var threshold float64
		switch {
		case crit > 0 && value >= crit:
			severity, threshold = "critical", crit
		case warn > 0 && value >= warn:
			severity, threshold = "warning", warn
		default:
			return
		}
		alerts = append(alerts, models.Alert{
			ID:        uuid.New().String()[:8],
			Timestamp: snap.Timestamp,
			Metric:    metric,
			Severity:  severity,
			Value:     value,
			Threshold: threshold,
			Message:   fmt.Sprintf("%s at %.1f (threshold %.1f)", metric, value, threshold),
		})
	}

	check("cpu", snap.CPUPercent, t.CPUWarning, t.CPUCritical)
	check("memory", snap.MemPercent, t.MemWarning, t.MemCritical)
	check("swap", snap.SwapPercent, t.SwapWarning, t.SwapCritical)
	for mount, pct := range snap.DiskPercent {
		check("disk "+mount, pct, t.DiskWarning, t.DiskCritical)
	}
	if snap.CPUCount > 0 {
		perCPU := snap.Load5 / float64(snap.CPUCount)
		check("load", perCPU, t.LoadWarning, t.LoadCritical)
	}
	return alerts
}

// Record appends a snapshot to history, evaluates it, and persists any
// generated alerts. Both files are capped; oldest entries are dropped.
func (m *Manager) Record(snap models.MetricSnapshot) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, snap)
	if len(m.history) > maxHistoryEntries {
		m.history = m.history[len(m.history)-maxHistoryEntries:]
	}
	if err := m.saveJSON("history.json", m.history); err != nil {
		return nil, err
	}

	generated := Evaluate(snap, m.thresholds)
	if len(generated) > 0 {
		m.alerts = append(m.alerts, generated...)
		if len(m.alerts) > maxAlertEntries {
			m.alerts = m.alerts[len(m.alerts)-maxAlertEntries:]
		}
		if err := m.saveJSON("alerts.json", m.alerts); err != nil {
			return generated, err
		}
	}
	return generated, nil
}

// Active returns unacknowledged alerts, newest first.
func (m *Manager) Active() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Alert
	for i := len(m.alerts) - 1; i >= 0; i-- {
		if !m.alerts[i].Acknowledged {
			out = append(out, m.alerts[i])
		}
	}
	return out
}

// Acknowledge marks an alert as seen.
func (m *Manager) Acknowledge(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			m.alerts[i].Acknowledged = true
			return m.saveJSON("alerts.json", m.alerts)
		}
	}
	return fmt.Errorf("alert %s not found", id)
}

// History returns up to limit of the newest snapshots, oldest first.
func (m *Manager) History(limit int) []models.MetricSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]models.MetricSnapshot, limit)
	copy(out, m.history[len(m.history)-limit:])
	return out
}

// HistorySince filters snapshots newer than t.
func (m *Manager) HistorySince(t time.Time) []models.MetricSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MetricSnapshot
	for _, s := range m.history {
		if s.Timestamp.After(t) {
			out = append(out, s)
		}
	}
	return out
}
