package models

import (
	"time"
)

// Site types supported by the vhost templates.
const (
	SiteTypeNextJS = "nextjs"
	SiteTypeNuxt   = "nuxt"
	SiteTypePHP    = "php"
	SiteTypeStatic = "static"
)

// Site represents a managed nginx virtual host.
type Site struct {
	Domain       string    `json:"domain"`
	Type         string    `json:"type"` // nextjs, nuxt, php, static
	SSLEnabled   bool      `json:"ssl_enabled"`
	Port         int       `json:"port,omitempty"`          // proxied apps
	DocumentRoot string    `json:"document_root,omitempty"` // php and static
	PHPVersion   string    `json:"php_version,omitempty"`
	IncludeWWW   bool      `json:"include_www,omitempty"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PHPInstall records an installed PHP version and its extensions.
type PHPInstall struct {
	Version     string            `json:"version"`
	Extensions  []string          `json:"extensions,omitempty"`
	Config      map[string]string `json:"config,omitempty"`
	InstalledAt time.Time         `json:"installed_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Operation is a multi-step task that may be resumed after a crash.
type Operation struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Data        map[string]any `json:"data,omitempty"`
	Status      string         `json:"status"` // pending, complete
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
}

// LineageEvent is one append-only change record. Old/new snapshots are
// kept loosely typed so events survive schema evolution.
type LineageEvent struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	EntityType string         `json:"entity_type"` // site, php, operation
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"` // create, update, delete, ...
	OldState   map[string]any `json:"old_state,omitempty"`
	NewState   map[string]any `json:"new_state,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Detection is the result of probing for one piece of server software.
type Detection struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	Running   bool   `json:"running"`
	Version   string `json:"version,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ServiceStatus is a snapshot of one systemd unit.
type ServiceStatus struct {
	Name     string `json:"name"`
	Active   string `json:"active"`    // active, inactive, failed
	SubState string `json:"sub_state"` // running, dead, ...
	Enabled  string `json:"enabled"`   // enabled, disabled, static
	MemoryMB float64
	Uptime   string
}

// MetricSnapshot is one monitoring sample.
type MetricSnapshot struct {
	Timestamp   time.Time          `json:"timestamp"`
	CPUPercent  float64            `json:"cpu_percent"`
	MemPercent  float64            `json:"mem_percent"`
	MemUsedMB   float64            `json:"mem_used_mb"`
	MemTotalMB  float64            `json:"mem_total_mb"`
	SwapPercent float64            `json:"swap_percent"`
	Load1       float64            `json:"load1"`
	Load5       float64            `json:"load5"`
	Load15      float64            `json:"load15"`
	CPUCount    int                `json:"cpu_count"`
	DiskPercent map[string]float64 `json:"disk_percent,omitempty"` // mount -> used%
}

// Thresholds configure alert generation for each metric.
type Thresholds struct {
	CPUWarning   float64 `json:"cpu_warning"`
	CPUCritical  float64 `json:"cpu_critical"`
	MemWarning   float64 `json:"mem_warning"`
	MemCritical  float64 `json:"mem_critical"`
	DiskWarning  float64 `json:"disk_warning"`
	DiskCritical float64 `json:"disk_critical"`
	LoadWarning  float64 `json:"load_warning"`  // multiple of cpu count
	LoadCritical float64 `json:"load_critical"` // multiple of cpu count
	SwapWarning  float64 `json:"swap_warning"`
	SwapCritical float64 `json:"swap_critical"`
}

// Alert is a generated threshold breach.
type Alert struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Metric       string    `json:"metric"`
	Severity     string    `json:"severity"` // warning, critical
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
}

// CertInfo describes a TLS certificate found for a domain.
type CertInfo struct {
	Domain        string    `json:"domain"`
	Issuer        string    `json:"issuer,omitempty"`
	NotAfter      time.Time `json:"not_after"`
	DaysRemaining int       `json:"days_remaining"`
}

// HealthCheck is one probe result for a site.
type HealthCheck struct {
	Name   string
	OK     bool
	Detail string
}

// ScanReport summarizes a malware or CVE scan saved under the data dir.
type ScanReport struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // clamav, cve
	Target    string    `json:"target"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration,omitempty"`
	Scanned   int       `json:"scanned"`
	Infected  int       `json:"infected"`
	Findings  []string  `json:"findings,omitempty"`
}
