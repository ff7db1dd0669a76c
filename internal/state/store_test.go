package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgecli/forge/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSaveSitePreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)

	site := models.Site{Domain: "example.com", Type: models.SiteTypePHP, DocumentRoot: "/var/www/example.com/public"}
	if err := s.SaveSite(site); err != nil {
		t.Fatalf("SaveSite: %v", err)
	}
	first, err := s.GetSite("example.com")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if first.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}

	time.Sleep(10 * time.Millisecond)
	site.PHPVersion = "8.3"
	if err := s.SaveSite(site); err != nil {
		t.Fatalf("update: %v", err)
	}
	second, _ := s.GetSite("example.com")
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on update: %v != %v", second.CreatedAt, first.CreatedAt)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("updated_at not advanced")
	}
	if second.PHPVersion != "8.3" {
		t.Errorf("php_version = %q", second.PHPVersion)
	}
}

func TestDeleteSiteKeepsLineage(t *testing.T) {
	s := newTestStore(t)

	s.SaveSite(models.Site{Domain: "gone.com", Type: models.SiteTypeStatic})
	if err := s.DeleteSite("gone.com"); err != nil {
		t.Fatalf("DeleteSite: %v", err)
	}
	if _, err := s.GetSite("gone.com"); !errors.Is(err, ErrSiteNotFound) {
		t.Fatalf("expected ErrSiteNotFound, got %v", err)
	}

	history := s.EntityHistory("site", "gone.com")
	if len(history) != 2 {
		t.Fatalf("history len = %d, want 2", len(history))
	}
	if history[0].Action != "create" || history[1].Action != "delete" {
		t.Errorf("actions = %s, %s", history[0].Action, history[1].Action)
	}
}

func TestDeleteMissingSite(t *testing.T) {
	s := newTestStore(t)
	if err := s.DeleteSite("nope.com"); !errors.Is(err, ErrSiteNotFound) {
		t.Fatalf("expected ErrSiteNotFound, got %v", err)
	}
}

func TestUpdateSiteSSL(t *testing.T) {
	s := newTestStore(t)
	s.SaveSite(models.Site{Domain: "tls.com", Type: models.SiteTypeStatic})
	if err := s.UpdateSiteSSL("tls.com", true); err != nil {
		t.Fatalf("UpdateSiteSSL: %v", err)
	}
	site, _ := s.GetSite("tls.com")
	if !site.SSLEnabled {
		t.Error("ssl not enabled")
	}
}

func TestLineageCapEvictsOldest(t *testing.T) {
	s := newTestStore(t)

	site := models.Site{Domain: "busy.com", Type: models.SiteTypeStatic}
	s.SaveSite(site)
	for i := 0; i < MaxLineageEntries+50; i++ {
		site.Enabled = !site.Enabled
		if err := s.SaveSite(site); err != nil {
			t.Fatalf("SaveSite %d: %v", i, err)
		}
	}

	if n := s.LineageLen(); n != MaxLineageEntries {
		t.Fatalf("lineage len = %d, want %d", n, MaxLineageEntries)
	}
	// The very first event (the create) must have been evicted.
	history := s.EntityHistory("site", "busy.com")
	if history[0].Action == "create" {
		t.Error("oldest event should have been evicted")
	}
}

func TestPHPExtensionsMerge(t *testing.T) {
	s := newTestStore(t)

	s.SavePHP(models.PHPInstall{Version: "8.3", Extensions: []string{"cli", "fpm", "mbstring"}})
	s.SavePHP(models.PHPInstall{Version: "8.3", Extensions: []string{"fpm", "redis"}})

	p, ok := s.GetPHP("8.3")
	if !ok {
		t.Fatal("php 8.3 not tracked")
	}
	want := []string{"cli", "fpm", "mbstring", "redis"}
	if len(p.Extensions) != len(want) {
		t.Fatalf("extensions = %v, want %v", p.Extensions, want)
	}
	for i, e := range want {
		if p.Extensions[i] != e {
			t.Fatalf("extensions = %v, want %v", p.Extensions, want)
		}
	}
}

func TestOperations(t *testing.T) {
	s := newTestStore(t)

	id, err := s.AddOperation("install_php", map[string]any{"version": "8.3"})
	if err != nil {
		t.Fatalf("AddOperation: %v", err)
	}
	if len(id) != 8 {
		t.Errorf("id = %q, want 8 chars", id)
	}
	if n := len(s.PendingOperations()); n != 1 {
		t.Fatalf("pending = %d, want 1", n)
	}
	if err := s.CompleteOperation(id); err != nil {
		t.Fatalf("CompleteOperation: %v", err)
	}
	if n := len(s.PendingOperations()); n != 0 {
		t.Fatalf("pending after complete = %d, want 0", n)
	}
	if err := s.CompleteOperation("bogus"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestPersistenceAcrossReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s.SaveSite(models.Site{Domain: "keep.com", Type: models.SiteTypeNextJS, Port: 3000})

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	site, err := s2.GetSite("keep.com")
	if err != nil {
		t.Fatalf("GetSite after reload: %v", err)
	}
	if site.Port != 3000 {
		t.Errorf("port = %d, want 3000", site.Port)
	}
	if s2.LineageLen() != 1 {
		t.Errorf("lineage len = %d, want 1", s2.LineageLen())
	}
}

func TestCorruptFilesLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "state.json"), []byte("{not json"), 0644)
	os.WriteFile(filepath.Join(dir, "lineage.json"), []byte("]["), 0644)

	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if len(s.ListSites()) != 0 || s.LineageLen() != 0 {
		t.Error("corrupt files should load as empty state")
	}
}

func TestRecentChangesOrder(t *testing.T) {
	s := newTestStore(t)
	s.SaveSite(models.Site{Domain: "a.com", Type: models.SiteTypeStatic})
	s.SaveSite(models.Site{Domain: "b.com", Type: models.SiteTypeStatic})
	s.SaveSite(models.Site{Domain: "c.com", Type: models.SiteTypeStatic})

	recent := s.RecentChanges(2)
	if len(recent) != 2 {
		t.Fatalf("recent len = %d, want 2", len(recent))
	}
	if recent[0].EntityID != "c.com" || recent[1].EntityID != "b.com" {
		t.Errorf("order = %s, %s", recent[0].EntityID, recent[1].EntityID)
	}
}

func TestChangesByActionAndSince(t *testing.T) {
	s := newTestStore(t)
	s.SaveSite(models.Site{Domain: "x.com", Type: models.SiteTypeStatic})
	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	s.UpdateSiteSSL("x.com", true)

	if n := len(s.ChangesByAction("ssl_update")); n != 1 {
		t.Errorf("ssl_update events = %d, want 1", n)
	}
	if n := len(s.ChangesSince(cutoff)); n != 1 {
		t.Errorf("events since cutoff = %d, want 1", n)
	}
}

func TestStateFileShape(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir)
	s.SaveSite(models.Site{Domain: "shape.com", Type: models.SiteTypePHP})

	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("read state.json: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("state.json not valid JSON: %v", err)
	}
	for _, key := range []string{"version", "sites", "php", "last_updated"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("state.json missing %q", key)
		}
	}
}
