package metrics

import (
	"strconv"
	"time"

	"github.com/cuemby/mona/pkg/handler"
	"github.com/cuemby/mona/pkg/track"
)

// Collector periodically samples ThreadPool and Handler depths into the
// package's gauges. Socket and File byte counters are updated directly by
// those packages as events happen; Collector only covers the metrics
// nothing else pushes on its own.
type Collector struct {
	pool    *track.ThreadPool
	handler *handler.Handler
	name    string

	stopCh chan struct{}
}

// NewCollector creates a collector that samples pool and h, the latter
// labelled name in HandlerQueueDepth. Either pool or h may be nil to
// collect only the other.
func NewCollector(pool *track.ThreadPool, h *handler.Handler, name string) *Collector {
	return &Collector{pool: pool, handler: h, name: name, stopCh: make(chan struct{})}
}

// Start begins sampling on a ticker, once every interval.
func (c *Collector) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
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

// Stop halts sampling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.pool != nil {
		for id, depth := range c.pool.Depths() {
			TrackQueueDepth.WithLabelValues(strconv.Itoa(int(id))).Set(float64(depth))
		}
		ThreadPoolQueuesRunning.Set(float64(c.pool.Running()))
	}
	if c.handler != nil {
		HandlerQueueDepth.WithLabelValues(c.name).Set(float64(c.handler.Pending()))
	}
}
