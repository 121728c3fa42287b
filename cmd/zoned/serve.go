package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/zoned/pkg/api"
	"github.com/cuemby/zoned/pkg/config"
	"github.com/cuemby/zoned/pkg/dns"
	"github.com/cuemby/zoned/pkg/events"
	"github.com/cuemby/zoned/pkg/geo"
	"github.com/cuemby/zoned/pkg/health"
	"github.com/cuemby/zoned/pkg/hostedzone"
	"github.com/cuemby/zoned/pkg/journal"
	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
	"github.com/cuemby/zoned/pkg/zonestore"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const statsInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the zones directory over DNS",
	Long: `Load every *.zone file of the zones directory and answer DNS queries
for them on UDP and TCP. The management API is served on a separate
listener unless --api-listen is empty.

Flags override values from the configuration file.`,
	Example: `  zoned serve --zones-dir /var/lib/zoned --listen :5353
  zoned serve --config /etc/zoned/zoned.yaml --watch`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(f *pflag.FlagSet) {
	f.StringP("config", "c", "", "YAML configuration file")
	f.String("zones-dir", "", "Directory of zone files")
	f.String("geoip-db", "", "MaxMind City database used for geographic ranking")
	f.String("listen", "", "DNS listen address (UDP and TCP)")
	f.String("api-listen", "", "Management API listen address, empty disables it")
	f.Bool("api-read-only", false, "Serve only read operations on the management API")
	f.String("journal-backend", "", "Change journal backend (file or bolt)")
	f.String("journal-dir", "", "Change journal directory")
	f.Bool("watch", false, "Reload zone files changed on disk")
	f.StringSlice("geo-types", nil, "Record types ranked by distance to the client")
	f.Int("max-redirects", 0, "Maximum CNAME hops followed for one question")
	f.Duration("query-timeout", 0, "Deadline for answering one query")
	f.Duration("probe-interval", 0, "Interval of the DNS self-probe, 0 disables it")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.Bool("log-json", false, "Write logs as JSON")
}

// loadServeConfig reads the configuration file and applies the flags the
// user set explicitly
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if f.Changed("zones-dir") {
		cfg.ZonesDir, _ = f.GetString("zones-dir")
	}
	if f.Changed("geoip-db") {
		cfg.GeoIPDB, _ = f.GetString("geoip-db")
	}
	if f.Changed("listen") {
		cfg.Listen, _ = f.GetString("listen")
	}
	if f.Changed("api-listen") {
		cfg.APIListen, _ = f.GetString("api-listen")
	}
	if f.Changed("api-read-only") {
		cfg.APIReadOnly, _ = f.GetBool("api-read-only")
	}
	if f.Changed("journal-backend") {
		cfg.Journal.Backend, _ = f.GetString("journal-backend")
	}
	if f.Changed("journal-dir") {
		cfg.Journal.Dir, _ = f.GetString("journal-dir")
	}
	if f.Changed("watch") {
		cfg.Watch, _ = f.GetBool("watch")
	}
	if f.Changed("geo-types") {
		cfg.GeoTypes, _ = f.GetStringSlice("geo-types")
	}
	if f.Changed("max-redirects") {
		cfg.MaxRedirects, _ = f.GetInt("max-redirects")
	}
	if f.Changed("query-timeout") {
		cfg.QueryTimeout, _ = f.GetDuration("query-timeout")
	}
	if f.Changed("probe-interval") {
		cfg.ProbeEvery, _ = f.GetDuration("probe-interval")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-json") {
		cfg.Log.JSON, _ = f.GetBool("log-json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	log.Init(cfg.LogOptions())
	metrics.SetVersion(Version)

	j, err := journal.Open(cfg.Journal.Backend, cfg.JournalDir())
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	store := zonestore.New(cfg.ZonesDir, j)
	store.SetEvents(broker)
	if err := store.LoadAll(); err != nil {
		return fmt.Errorf("failed to load zones: %w", err)
	}

	var locator geo.Locator
	if cfg.GeoIPDB != "" {
		mm, err := geo.OpenMaxMind(cfg.GeoIPDB)
		if err != nil {
			return fmt.Errorf("failed to open GeoIP database: %w", err)
		}
		defer mm.Close()
		locator = mm
	}
	router := geo.NewRouter(locator, cfg.GeoTypes)

	engine := dns.NewEngine(store, router, cfg.MaxRedirects)
	dnsServer := dns.NewServer(engine, router, &dns.Config{
		ListenAddr:   cfg.Listen,
		QueryTimeout: cfg.QueryTimeout,
	})

	collector := metrics.NewCollector(store, statsInterval)
	collector.Start()
	defer collector.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	sub := broker.Subscribe()
	g.Go(func() error {
		auditEvents(ctx, sub)
		return nil
	})
	g.Go(func() error {
		return dnsServer.Run(ctx)
	})

	if cfg.APIListen != "" {
		apiServer := api.NewServer(hostedzone.NewService(store, j), &api.Config{
			ListenAddr: cfg.APIListen,
			ReadOnly:   cfg.APIReadOnly,
		})
		g.Go(func() error {
			return apiServer.Run(ctx)
		})
	}

	if zones := store.Zones(); cfg.ProbeEvery > 0 && len(zones) > 0 {
		checker := health.NewDNSChecker(cfg.ProbeAddr(), zones[0].Origin)
		monitor := health.NewMonitor(metrics.ComponentProbe, checker, health.Config{
			Interval:    cfg.ProbeEvery,
			StartPeriod: time.Second,
		})
		g.Go(func() error {
			return monitor.Run(ctx)
		})
	}

	if cfg.Watch {
		g.Go(func() error {
			return store.Watch(ctx, cfg.WatchDelay)
		})
	}

	log.Logger.Info().
		Str("version", Version).
		Str("zones_dir", cfg.ZonesDir).
		Bool("geo", router.Enabled()).
		Bool("watch", cfg.Watch).
		Msg("zoned started")

	err = g.Wait()
	log.Logger.Info().Msg("Shutdown complete")
	return err
}

// auditEvents logs every zone event until ctx is done
func auditEvents(ctx context.Context, sub events.Subscriber) {
	logger := log.WithComponent("events")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			entry := logger.Info().
				Str("event", string(ev.Type)).
				Str("zone", ev.Zone).
				Str("detail", ev.Message)
			for k, v := range ev.Metadata {
				entry = entry.Str(k, v)
			}
			entry.Msg("Zone event")
		}
	}
}
