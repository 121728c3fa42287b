package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/cuemby/zoned/pkg/api"
	"github.com/cuemby/zoned/pkg/dns"
	"github.com/cuemby/zoned/pkg/journal"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/cuemby/zoned/pkg/zonestore"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of a zoned server
type Config struct {
	ZonesDir     string        `yaml:"zones_dir"`
	GeoIPDB      string        `yaml:"geoip_db"`
	Listen       string        `yaml:"listen"`
	APIListen    string        `yaml:"api_listen"`
	APIReadOnly  bool          `yaml:"api_read_only"`
	Journal      JournalConfig `yaml:"journal"`
	Watch        bool          `yaml:"watch"`
	WatchDelay   time.Duration `yaml:"watch_delay"`
	GeoTypes     []string      `yaml:"geo_types"`
	MaxRedirects int           `yaml:"max_redirects"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	ProbeEvery   time.Duration `yaml:"probe_interval"`
	Log          LogConfig     `yaml:"log"`
}

// JournalConfig selects the change journal backend
type JournalConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		ZonesDir:     "zones",
		Listen:       dns.DefaultListenAddr,
		APIListen:    api.DefaultListenAddr,
		Journal:      JournalConfig{Backend: journal.BackendFile},
		WatchDelay:   zonestore.DefaultDebounce,
		GeoTypes:     []string{string(types.RecordTypeA)},
		MaxRedirects: dns.DefaultMaxRedirects,
		QueryTimeout: dns.DefaultQueryTimeout,
		ProbeEvery:   30 * time.Second,
		Log:          LogConfig{Level: string(log.InfoLevel)},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %v: %w", path, err, errdefs.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that cannot be defaulted
func (c *Config) Validate() error {
	var errs []error
	if c.ZonesDir == "" {
		errs = append(errs, errors.New("zones_dir is required"))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen is required"))
	}
	switch c.Journal.Backend {
	case journal.BackendFile, journal.BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("journal.backend %q is not one of %s, %s",
			c.Journal.Backend, journal.BackendFile, journal.BackendBolt))
	}
	for _, t := range c.GeoTypes {
		rt, ok := types.ParseRecordType(t)
		if !ok || rt == types.RecordTypeSOA {
			errs = append(errs, fmt.Errorf("geo_types: %q cannot be ranked", t))
		}
	}
	if c.MaxRedirects < 0 {
		errs = append(errs, fmt.Errorf("max_redirects must not be negative, got %d", c.MaxRedirects))
	}
	if c.QueryTimeout < 0 || c.WatchDelay < 0 || c.ProbeEvery < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	switch log.Level(strings.ToLower(c.Log.Level)) {
	case "", log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not debug, info, warn or error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", errors.Join(errs...), errdefs.ErrInvalidArgument)
	}
	return nil
}

// JournalDir returns the journal directory, defaulting to a changes
// directory inside the zones directory
func (c *Config) JournalDir() string {
	if c.Journal.Dir != "" {
		return c.Journal.Dir
	}
	return filepath.Join(c.ZonesDir, "changes")
}

// ProbeAddr returns the address the self-probe queries: the DNS listen
// address with an unspecified host replaced by loopback
func (c *Config) ProbeAddr() string {
	host, port, err := net.SplitHostPort(c.Listen)
	if err != nil {
		return c.Listen
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// LogOptions converts the logging settings for log.Init
func (c *Config) LogOptions() log.Config {
	return log.Config{
		Level:      log.ParseLevel(strings.ToLower(c.Log.Level)),
		JSONOutput: c.Log.JSON,
	}
}
