// Package config loads the runtime configuration from YAML with environment
// overrides for deployment-specific values.
package config

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ServiceEndpoints are the base URLs of the external collaborators. Empty
// endpoints disable the corresponding client.
type ServiceEndpoints struct {
	Bootstrap    string `yaml:"bootstrap,omitempty"`
	Verification string `yaml:"verification,omitempty"`
	Catalog      string `yaml:"catalog,omitempty"`
	History      string `yaml:"history,omitempty"`
}

// Config is the entire configuration file.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen,omitempty"`

	// Database is the SQLite session store path. Empty keeps sessions in
	// memory only.
	Database string `yaml:"database,omitempty"`

	TenantID string `yaml:"tenant_id"`
	OrgID    string `yaml:"org_id,omitempty"`

	Services ServiceEndpoints `yaml:"services,omitempty"`

	// CatalogTTL bounds how long the property listing is cached.
	CatalogTTL time.Duration `yaml:"catalog_ttl,omitempty"`

	// HistoryWindow is the debounce window for history uploads.
	HistoryWindow time.Duration `yaml:"history_window,omitempty"`
}

const (
	defaultListen        = ":8080"
	defaultCatalogTTL    = 5 * time.Minute
	defaultHistoryWindow = 2 * time.Second
)

// Load reads and validates a configuration file. Environment variables
// CHATAGENT_LISTEN, CHATAGENT_DATABASE and CHATAGENT_TENANT_ID override the
// file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, applies overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file\n%s", yaml.FormatError(err, true, true))
	}

	cfg.Listen = cmp.Or(os.Getenv("CHATAGENT_LISTEN"), cfg.Listen, defaultListen)
	cfg.Database = cmp.Or(os.Getenv("CHATAGENT_DATABASE"), cfg.Database)
	cfg.TenantID = cmp.Or(os.Getenv("CHATAGENT_TENANT_ID"), cfg.TenantID)

	if cfg.CatalogTTL <= 0 {
		cfg.CatalogTTL = defaultCatalogTTL
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("config: tenant_id is required")
	}
	for name, endpoint := range map[string]string{
		"bootstrap":    c.Services.Bootstrap,
		"verification": c.Services.Verification,
		"catalog":      c.Services.Catalog,
		"history":      c.Services.History,
	} {
		if endpoint == "" {
			continue
		}
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("config: invalid %s endpoint %q: %w", name, endpoint, err)
		}
	}
	return nil
}
