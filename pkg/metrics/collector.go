package metrics

import (
	"time"
)

// ZoneStats is implemented by stores that can report their size
type ZoneStats interface {
	Stats() (zones, records int)
}

// Collector periodically copies zone store sizes into gauges
type Collector struct {
	source   ZoneStats
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source ZoneStats, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	zones, records := c.source.Stats()
	ZonesLoaded.Set(float64(zones))
	RecordsLoaded.Set(float64(records))
}
