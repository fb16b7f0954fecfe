package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
tenant_id: tenant-9012
services:
  catalog: https://api.example.com
`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "tenant-9012", cfg.TenantID)
	assert.Equal(t, 5*time.Minute, cfg.CatalogTTL)
	assert.Equal(t, 2*time.Second, cfg.HistoryWindow)
	assert.Equal(t, "https://api.example.com", cfg.Services.Catalog)
}

func TestParseRequiresTenant(t *testing.T) {
	_, err := Parse([]byte(`listen: ":9090"`))
	require.ErrorContains(t, err, "tenant_id is required")
}

func TestParseRejectsBadEndpoint(t *testing.T) {
	_, err := Parse([]byte(`
tenant_id: tenant-9012
services:
  history: "not a url"
`))
	require.ErrorContains(t, err, "invalid history endpoint")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATAGENT_LISTEN", ":7070")
	t.Setenv("CHATAGENT_TENANT_ID", "tenant-override")

	cfg, err := Parse([]byte(`tenant_id: tenant-9012`))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "tenant-override", cfg.TenantID)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte(`tenant_id: [`))
	require.Error(t, err)
}
