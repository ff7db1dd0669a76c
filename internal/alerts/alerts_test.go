package alerts

import (
	"testing"
	"time"

	"github.com/forgecli/forge/internal/models"
)

func snap(cpu, mem float64) models.MetricSnapshot {
	return models.MetricSnapshot{
		Timestamp:  time.Now(),
		CPUPercent: cpu,
		MemPercent: mem,
		CPUCount:   4,
	}
}

func TestEvaluateNoBreaches(t *testing.T) {
	alerts := Evaluate(snap(10, 20), DefaultThresholds())
	if len(alerts) != 0 {
		t.Fatalf("alerts = %v, want none", alerts)
	}
}

func TestEvaluateSeverities(t *testing.T) {
	th := DefaultThresholds()

	alerts := Evaluate(snap(80, 20), th)
	if len(alerts) != 1 || alerts[0].Severity != "warning" || alerts[0].Metric != "cpu" {
		t.Fatalf("alerts = %+v", alerts)
	}

	alerts = Evaluate(snap(95, 96), th)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %+v, want 2", alerts)
	}
	for _, a := range alerts {
		if a.Severity != "critical" {
			t.Errorf("%s severity = %s, want critical", a.Metric, a.Severity)
		}
	}
}

func TestEvaluateDiskAndLoad(t *testing.T) {
	th := DefaultThresholds()
	s := snap(10, 10)
	s.DiskPercent = map[string]float64{"/": 85, "/var": 50}
	s.Load5 = 8 // 2.0 per cpu with 4 cpus -> warning
	alerts := Evaluate(s, th)

	var metrics []string
	for _, a := range alerts {
		metrics = append(metrics, a.Metric)
	}
	if len(alerts) != 2 {
		t.Fatalf("alerts = %v", metrics)
	}
	found := map[string]bool{}
	for _, m := range metrics {
		found[m] = true
	}
	if !found["disk /"] || !found["load"] {
		t.Errorf("metrics = %v", metrics)
	}
}

func TestRecordPersistsAndCaps(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	generated, err := m.Record(snap(95, 10))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("generated = %v", generated)
	}
	if len(m.Active()) != 1 {
		t.Fatalf("active = %v", m.Active())
	}

	if err := m.Acknowledge(generated[0].ID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if len(m.Active()) != 0 {
		t.Error("acknowledged alert still active")
	}
}

func TestHistoryCap(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	for i := 0; i < maxHistoryEntries+10; i++ {
		m.history = append(m.history, snap(1, 1))
	}
	if _, err := m.Record(snap(1, 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got := len(m.History(0)); got != maxHistoryEntries {
		t.Errorf("history len = %d, want %d", got, maxHistoryEntries)
	}
}

func TestThresholdsReloadAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir)
	th := m.Thresholds()
	th.CPUWarning = 42
	if err := m.SetThresholds(th); err != nil {
		t.Fatalf("SetThresholds: %v", err)
	}

	m2, _ := NewManager(dir)
	if m2.Thresholds().CPUWarning != 42 {
		t.Errorf("thresholds not persisted: %+v", m2.Thresholds())
	}
}
