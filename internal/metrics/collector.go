package metrics

import (
	"sync"
	"time"
)

// Source reports point-in-time sizes sampled into gauges.
type Source interface {
	Subscribers() int
	QueueLength() int
	PendingCount() int
}

// Collector periodically samples a Source into gauges.
type Collector struct {
	source   Source
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a collector sampling every interval.
func NewCollector(source Source, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Collector{
		source:   source,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting in the background.
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Collector) collect() {
	Subscribers.Set(float64(c.source.Subscribers()))
	BusQueueLength.Set(float64(c.source.QueueLength()))
	StoreEntries.WithLabelValues("pending").Set(float64(c.source.PendingCount()))
}
