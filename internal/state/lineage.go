package state

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forgecli/forge/internal/models"
)

// EntityHistory returns all lineage events for one entity, oldest
// first.
func (s *Store) EntityHistory(entityType, entityID string) []models.LineageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LineageEvent
	for _, e := range s.lineage {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

// RecentChanges returns up to limit of the newest events, newest first.
func (s *Store) RecentChanges(limit int) []models.LineageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.lineage)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]models.LineageEvent, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.lineage[n-1-i]
	}
	return out
}

// ChangesByAction returns events matching an action, oldest first.
func (s *Store) ChangesByAction(action string) []models.LineageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LineageEvent
	for _, e := range s.lineage {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// ChangesSince returns events newer than t, oldest first.
func (s *Store) ChangesSince(t time.Time) []models.LineageEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.LineageEvent
	for _, e := range s.lineage {
		if e.Timestamp.After(t) {
			out = append(out, e)
		}
	}
	return out
}

// LineageLen reports how many events are currently retained.
func (s *Store) LineageLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lineage)
}

// ClearLineage drops all history.
func (s *Store) ClearLineage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineage = nil
	return s.saveLineageUnlocked()
}

// LineageReport renders a human-readable summary grouped by entity
// type, showing the last ten events per entity.
func (s *Store) LineageReport() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byType := make(map[string]map[string][]models.LineageEvent)
	for _, e := range s.lineage {
		if byType[e.EntityType] == nil {
			byType[e.EntityType] = make(map[string][]models.LineageEvent)
		}
		byType[e.EntityType][e.EntityID] = append(byType[e.EntityType][e.EntityID], e)
	}

	var types []string
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	fmt.Fprintf(&b, "Change History (%d events)\n", len(s.lineage))
	for _, t := range types {
		fmt.Fprintf(&b, "\n== %s ==\n", t)
		var ids []string
		for id := range byType[t] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			events := byType[t][id]
			fmt.Fprintf(&b, "%s (%d changes)\n", id, len(events))
			start := 0
			if len(events) > 10 {
				start = len(events) - 10
			}
			for _, e := range events[start:] {
				fmt.Fprintf(&b, "  %s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action)
			}
		}
	}
	return b.String()
}
