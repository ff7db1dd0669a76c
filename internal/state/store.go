// Package state persists forge's view of the server (sites, PHP
// installs, pending operations) and an append-only lineage log of every
// change. Both live as JSON files under the data directory.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgecli/forge/internal/models"
)

const (
	stateVersion = "1.0.0"

	// MaxLineageEntries bounds lineage.json; oldest entries are evicted
	// first when the cap is exceeded.
	MaxLineageEntries = 1000
)

var (
	ErrSiteNotFound      = errors.New("site not found")
	ErrOperationNotFound = errors.New("operation not found")
)

type stateFile struct {
	Version           string                       `json:"version"`
	Sites             map[string]models.Site       `json:"sites"`
	PHP               map[string]models.PHPInstall `json:"php"`
	PendingOperations []models.Operation           `json:"pending_operations"`
	LastUpdated       time.Time                    `json:"last_updated"`
}

// Store manages state.json and lineage.json.
type Store struct {
	mu          sync.RWMutex
	statePath   string
	lineagePath string
	state       stateFile
	lineage     []models.LineageEvent
}

// NewStore loads (or initializes) the store under dataDir. Missing or
// corrupt files fall back to empty defaults rather than failing.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	s := &Store{
		statePath:   filepath.Join(dataDir, "state.json"),
		lineagePath: filepath.Join(dataDir, "lineage.json"),
		state: stateFile{
			Version: stateVersion,
			Sites:   make(map[string]models.Site),
			PHP:     make(map[string]models.PHPInstall),
		},
	}

	if data, err := os.ReadFile(s.statePath); err == nil {
		var loaded stateFile
		if err := json.Unmarshal(data, &loaded); err != nil {
			slog.Warn("state file corrupt, starting fresh", "path", s.statePath, "error", err)
		} else {
			if loaded.Sites == nil {
				loaded.Sites = make(map[string]models.Site)
			}
			if loaded.PHP == nil {
				loaded.PHP = make(map[string]models.PHPInstall)
			}
			if loaded.Version == "" {
				loaded.Version = stateVersion
			}
			s.state = loaded
		}
	}

	if data, err := os.ReadFile(s.lineagePath); err == nil {
		if err := json.Unmarshal(data, &s.lineage); err != nil {
			slog.Warn("lineage file corrupt, starting fresh", "path", s.lineagePath, "error", err)
			s.lineage = nil
		}
	}

	return s, nil
}

func (s *Store) saveStateUnlocked() error {
	s.state.LastUpdated = time.Now()
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.WriteFile(s.statePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func (s *Store) saveLineageUnlocked() error {
	if len(s.lineage) > MaxLineageEntries {
		s.lineage = s.lineage[len(s.lineage)-MaxLineageEntries:]
	}
	data, err := json.MarshalIndent(s.lineage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lineage: %w", err)
	}
	if err := os.WriteFile(s.lineagePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write lineage file: %w", err)
	}
	return nil
}

func (s *Store) recordUnlocked(entityType, entityID, action string, oldState, newState, metadata map[string]any) {
	s.lineage = append(s.lineage, models.LineageEvent{
		ID:         uuid.New().String()[:8],
		Timestamp:  time.Now(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OldState:   oldState,
		NewState:   newState,
		Metadata:   metadata,
	})
	if err := s.saveLineageUnlocked(); err != nil {
		slog.Warn("failed to persist lineage", "error", err)
	}
}

func snapshot(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// SaveSite creates or updates a site record, preserving the original
// creation time, and records a create/update lineage event.
func (s *Store) SaveSite(site models.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := "create"
	var oldState map[string]any
	now := time.Now()
	if existing, ok := s.state.Sites[site.Domain]; ok {
		action = "update"
		oldState = snapshot(existing)
		site.CreatedAt = existing.CreatedAt
	} else {
		site.CreatedAt = now
	}
	site.UpdatedAt = now
	s.state.Sites[site.Domain] = site

	if err := s.saveStateUnlocked(); err != nil {
		return err
	}
	s.recordUnlocked("site", site.Domain, action, oldState, snapshot(site), nil)
	return nil
}

// UpdateSiteSSL flips the SSL flag for a site.
func (s *Store) UpdateSiteSSL(domain string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.state.Sites[domain]
	if !ok {
		return ErrSiteNotFound
	}
	oldState := snapshot(site)
	site.SSLEnabled = enabled
	site.UpdatedAt = time.Now()
	s.state.Sites[domain] = site

	if err := s.saveStateUnlocked(); err != nil {
		return err
	}
	s.recordUnlocked("site", domain, "ssl_update", oldState, snapshot(site), nil)
	return nil
}

// SetSiteEnabled records whether the vhost symlink is active.
func (s *Store) SetSiteEnabled(domain string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.state.Sites[domain]
	if !ok {
		return ErrSiteNotFound
	}
	oldState := snapshot(site)
	site.Enabled = enabled
	site.UpdatedAt = time.Now()
	s.state.Sites[domain] = site

	if err := s.saveStateUnlocked(); err != nil {
		return err
	}
	action := "disable"
	if enabled {
		action = "enable"
	}
	s.recordUnlocked("site", domain, action, oldState, snapshot(site), nil)
	return nil
}

// DeleteSite removes a site record. Lineage events referring to the
// site are kept; history may point at entities that no longer exist.
func (s *Store) DeleteSite(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	site, ok := s.state.Sites[domain]
	if !ok {
		return ErrSiteNotFound
	}
	delete(s.state.Sites, domain)

	if err := s.saveStateUnlocked(); err != nil {
		return err
	}
	s.recordUnlocked("site", domain, "delete", snapshot(site), nil, nil)
	return nil
}

// GetSite returns a site by domain.
func (s *Store) GetSite(domain string) (models.Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.state.Sites[domain]
	if !ok {
		return models.Site{}, ErrSiteNotFound
	}
	return site, nil
}

// ListSites returns all tracked sites keyed by domain.
func (s *Store) ListSites() map[string]models.Site {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Site, len(s.state.Sites))
	for k, v := range s.state.Sites {
		out[k] = v
	}
	return out
}

// SavePHP creates or updates a PHP install record. Extensions are
// merged and de-duplicated across calls.
func (s *Store) SavePHP(install models.PHPInstall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := "create"
	var oldState map[string]any
	now := time.Now()
	if existing, ok := s.state.PHP[install.Version]; ok {
		action = "update"
		oldState = snapshot(existing)
		install.InstalledAt = existing.InstalledAt
		install.Extensions = mergeUnique(existing.Extensions, install.Extensions)
	} else {
		install.InstalledAt = now
	}
	install.UpdatedAt = now
	s.state.PHP[install.Version] = install

	if err := s.saveStateUnlocked(); err != nil {
		return err
	}
	s.recordUnlocked("php", install.Version, action, oldState, snapshot(install), nil)
	return nil
}

// GetPHP returns the PHP install record for a version, if tracked.
func (s *Store) GetPHP(version string) (models.PHPInstall, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.PHP[version]
	return p, ok
}

// ListPHP returns all tracked PHP installs keyed by version.
func (s *Store) ListPHP() map[string]models.PHPInstall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.PHPInstall, len(s.state.PHP))
	for k, v := range s.state.PHP {
		out[k] = v
	}
	return out
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// AddOperation registers a pending multi-step operation and returns its
// short ID.
func (s *Store) AddOperation(opType string, data map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := models.Operation{
		ID:        uuid.New().String()[:8],
		Type:      opType,
		Data:      data,
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	s.state.PendingOperations = append(s.state.PendingOperations, op)

	if err := s.saveStateUnlocked(); err != nil {
		return "", err
	}
	s.recordUnlocked("operation", op.ID, "create", nil, snapshot(op), nil)
	return op.ID, nil
}

// CompleteOperation marks a pending operation complete.
func (s *Store) CompleteOperation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range s.state.PendingOperations {
		if op.ID != id {
			continue
		}
		oldState := snapshot(op)
		op.Status = "complete"
		op.CompletedAt = time.Now()
		s.state.PendingOperations[i] = op
		if err := s.saveStateUnlocked(); err != nil {
			return err
		}
		s.recordUnlocked("operation", id, "complete", oldState, snapshot(op), nil)
		return nil
	}
	return ErrOperationNotFound
}

// PendingOperations returns operations still marked pending.
func (s *Store) PendingOperations() []models.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Operation
	for _, op := range s.state.PendingOperations {
		if op.Status == "pending" {
			out = append(out, op)
		}
	}
	return out
}
