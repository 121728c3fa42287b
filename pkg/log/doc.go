/*
Package log provides structured logging for zoned using zerolog.

A single global Logger is configured once at startup with Init. Packages log
through it directly, tagging every event with a "component" field so output
can be filtered per subsystem:

	log.Logger.Info().
		Str("component", "zonestore").
		Str("zone", "example.com.").
		Msg("zone loaded")

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,  // debug, info, warn, error
		JSONOutput: true,           // false gives human-readable console output
		Output:     os.Stderr,      // defaults to os.Stdout
	})

Until Init is called the Logger discards everything, which keeps tests quiet.

# Child Loggers

WithComponent, WithZone and WithChangeID return loggers carrying the matching
field, for code paths that emit several related events:

	zlog := log.WithZone(zone.Origin)
	zlog.Debug().Int("records", len(zone.Records)).Msg("zone parsed")

# Components

	dns          transport (UDP/TCP listeners, per-query logging at debug)
	dns.engine   resolution decisions (redirects, geo selection)
	zonestore    zone loading, reloads and file mutations
	journal      change journal writes
	geo          GeoIP database loading
	api          management HTTP server
*/
package log
