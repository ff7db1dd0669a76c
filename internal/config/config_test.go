package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithOverrides(t *testing.T) {
	ResetForTesting()
	dir := t.TempDir()
	t.Setenv(EnvDevMode, "1")
	t.Setenv(EnvDataDir, dir)
	t.Setenv(EnvWebRoot, "/srv/www")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.DevMode {
		t.Error("expected dev mode")
	}
	if c.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", c.DataDir, dir)
	}
	if c.WebRoot != "/srv/www" {
		t.Errorf("WebRoot = %q, want /srv/www", c.WebRoot)
	}
}

func TestSaveAndReload(t *testing.T) {
	ResetForTesting()
	dir := t.TempDir()
	t.Setenv(EnvDevMode, "1")
	t.Setenv(EnvDataDir, dir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.ACMEEmail = "admin@example.com"
	c.DefaultPHP = "8.3"
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ResetForTesting()
	c2, err := Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c2.ACMEEmail != "admin@example.com" || c2.DefaultPHP != "8.3" {
		t.Errorf("settings not persisted: %+v", c2)
	}
}

func TestSubDir(t *testing.T) {
	ResetForTesting()
	dir := t.TempDir()
	t.Setenv(EnvDevMode, "1")
	t.Setenv(EnvDataDir, dir)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub, err := c.SubDir("monitoring")
	if err != nil {
		t.Fatalf("SubDir: %v", err)
	}
	if sub != filepath.Join(dir, "monitoring") {
		t.Errorf("SubDir = %q", sub)
	}
}

func TestLoadCorruptSettings(t *testing.T) {
	ResetForTesting()
	dir := t.TempDir()
	t.Setenv(EnvDevMode, "1")
	t.Setenv(EnvDataDir, dir)

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for a corrupt config file")
	}
}
