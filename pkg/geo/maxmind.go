package geo

import (
	"fmt"
	"net"

	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/types"
	"github.com/oschwald/geoip2-golang"
)

// MaxMindLocator resolves locations from a MaxMind City database
type MaxMindLocator struct {
	reader *geoip2.Reader
	path   string
}

// OpenMaxMind opens a GeoLite2/GeoIP2 City database
func OpenMaxMind(path string) (*MaxMindLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", path, err)
	}

	log.Logger.Info().
		Str("component", "geo").
		Str("path", path).
		Str("database", reader.Metadata().DatabaseType).
		Msg("geoip database loaded")

	return &MaxMindLocator{reader: reader, path: path}, nil
}

// Locate implements Locator. Records without coordinates are treated as
// unknown.
func (m *MaxMindLocator) Locate(ip net.IP) (types.Location, bool) {
	record, err := m.reader.City(ip)
	if err != nil {
		return types.Location{}, false
	}
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return types.Location{}, false
	}
	return types.Location{
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		Country:   record.Country.IsoCode,
	}, true
}

// Close releases the database
func (m *MaxMindLocator) Close() error {
	return m.reader.Close()
}
