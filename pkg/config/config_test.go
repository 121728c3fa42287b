package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zoned.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "zones", cfg.ZonesDir)
	assert.Equal(t, ":53", cfg.Listen)
	assert.Equal(t, "127.0.0.1:8053", cfg.APIListen)
	assert.Equal(t, "file", cfg.Journal.Backend)
	assert.Equal(t, []string{"A"}, cfg.GeoTypes)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
	assert.Equal(t, filepath.Join("zones", "changes"), cfg.JournalDir())
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
zones_dir: /var/lib/zoned
geoip_db: /usr/share/GeoIP/GeoLite2-City.mmdb
listen: 127.0.0.1:5353
api_listen: ""
journal:
  backend: bolt
  dir: /var/lib/zoned/journal
watch: true
watch_delay: 1s
geo_types: [A, AAAA]
query_timeout: 500ms
log:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/zoned", cfg.ZonesDir)
	assert.Equal(t, "/usr/share/GeoIP/GeoLite2-City.mmdb", cfg.GeoIPDB)
	assert.Equal(t, "127.0.0.1:5353", cfg.Listen)
	assert.Empty(t, cfg.APIListen)
	assert.Equal(t, "bolt", cfg.Journal.Backend)
	assert.Equal(t, "/var/lib/zoned/journal", cfg.JournalDir())
	assert.True(t, cfg.Watch)
	assert.Equal(t, time.Second, cfg.WatchDelay)
	assert.Equal(t, []string{"A", "AAAA"}, cfg.GeoTypes)
	assert.Equal(t, 500*time.Millisecond, cfg.QueryTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 10, cfg.MaxRedirects)

	opts := cfg.LogOptions()
	assert.Equal(t, log.DebugLevel, opts.Level)
	assert.True(t, opts.JSONOutput)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "zones_dir: [unclosed"))
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty zones dir", func(c *Config) { c.ZonesDir = "" }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"unknown journal backend", func(c *Config) { c.Journal.Backend = "sqlite" }},
		{"unknown geo type", func(c *Config) { c.GeoTypes = []string{"SRV"} }},
		{"soa geo type", func(c *Config) { c.GeoTypes = []string{"soa"} }},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }},
		{"negative timeout", func(c *Config) { c.QueryTimeout = -time.Second }},
		{"negative probe interval", func(c *Config) { c.ProbeEvery = -time.Second }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errdefs.IsInvalidArgument(err))
		})
	}
}

func TestProbeAddr(t *testing.T) {
	tests := []struct {
		listen string
		want   string
	}{
		{":53", "127.0.0.1:53"},
		{"0.0.0.0:5353", "127.0.0.1:5353"},
		{"[::]:53", "127.0.0.1:53"},
		{"192.0.2.1:53", "192.0.2.1:53"},
		{"[2001:db8::1]:53", "[2001:db8::1]:53"},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Listen = tt.listen
		assert.Equal(t, tt.want, cfg.ProbeAddr(), tt.listen)
	}
}
