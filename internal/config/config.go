// Package config resolves forge's filesystem paths and persisted
// settings. Paths can be overridden with FORGE_* environment variables;
// dev mode keeps all state under the working directory so nothing
// touches the real system.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Environment variable names
const (
	EnvDevMode    = "FORGE_DEV"             // Set to "1" for development mode
	EnvDataDir    = "FORGE_DATA_DIR"        // Override state directory
	EnvSitesAvail = "FORGE_SITES_AVAILABLE" // Override nginx sites-available
	EnvSitesEnab  = "FORGE_SITES_ENABLED"   // Override nginx sites-enabled
	EnvNginxLogs  = "FORGE_NGINX_LOGS"      // Override nginx log directory
	EnvWebRoot    = "FORGE_WEB_ROOT"        // Override document root base
	EnvLELive     = "FORGE_LE_LIVE"         // Override letsencrypt live dir
)

// Config holds resolved paths and persisted settings.
type Config struct {
	DevMode bool `json:"-"`

	// DataDir is forge's own state directory (~/.forge).
	DataDir string `json:"-"`

	NginxSitesAvailable string `json:"-"`
	NginxSitesEnabled   string `json:"-"`
	NginxLogDir         string `json:"-"`
	WebRoot             string `json:"-"`
	LetsEncryptLiveDir  string `json:"-"`

	// Persisted settings (config.json in DataDir).
	ACMEEmail       string `json:"acme_email,omitempty"`
	ACMEStaging     bool   `json:"acme_staging,omitempty"`
	SkipUpdateCheck bool   `json:"skip_update_check,omitempty"`
	DefaultPHP      string `json:"default_php,omitempty"`
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// IsDevMode returns true if running in development mode
func IsDevMode() bool {
	return os.Getenv(EnvDevMode) == "1"
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Load resolves paths once and reads persisted settings if present.
func Load() (*Config, error) {
	var loadErr error
	cfgOnce.Do(func() {
		cfg, loadErr = load()
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return cfg, nil
}

func load() (*Config, error) {
	c := &Config{DevMode: IsDevMode()}

	if c.DevMode {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base := filepath.Join(cwd, ".forge")
		c.DataDir = getEnvOrDefault(EnvDataDir, base)
		c.NginxSitesAvailable = getEnvOrDefault(EnvSitesAvail, filepath.Join(base, "nginx", "sites-available"))
		c.NginxSitesEnabled = getEnvOrDefault(EnvSitesEnab, filepath.Join(base, "nginx", "sites-enabled"))
		c.NginxLogDir = getEnvOrDefault(EnvNginxLogs, filepath.Join(base, "log", "nginx"))
		c.WebRoot = getEnvOrDefault(EnvWebRoot, filepath.Join(base, "www"))
		c.LetsEncryptLiveDir = getEnvOrDefault(EnvLELive, filepath.Join(base, "letsencrypt", "live"))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		c.DataDir = getEnvOrDefault(EnvDataDir, filepath.Join(home, ".forge"))
		c.NginxSitesAvailable = getEnvOrDefault(EnvSitesAvail, "/etc/nginx/sites-available")
		c.NginxSitesEnabled = getEnvOrDefault(EnvSitesEnab, "/etc/nginx/sites-enabled")
		c.NginxLogDir = getEnvOrDefault(EnvNginxLogs, "/var/log/nginx")
		c.WebRoot = getEnvOrDefault(EnvWebRoot, "/var/www")
		c.LetsEncryptLiveDir = getEnvOrDefault(EnvLELive, "/etc/letsencrypt/live")
	}

	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if data, err := os.ReadFile(c.settingsPath()); err == nil {
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return c, nil
}

// Save persists the settings portion to config.json.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.settingsPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) settingsPath() string {
	return filepath.Join(c.DataDir, "config.json")
}

// SubDir returns DataDir/name, creating it if needed.
func (c *Config) SubDir(name string) (string, error) {
	dir := filepath.Join(c.DataDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", name, err)
	}
	return dir, nil
}

// ResetForTesting clears the cached config so tests can reload with
// different environment variables.
func ResetForTesting() {
	cfg = nil
	cfgOnce = sync.Once{}
}
