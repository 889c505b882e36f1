package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HandlerQueueDepth is the number of actions currently waiting on a
	// Handler, keyed by the handler's diagnostic name.
	HandlerQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mona_handler_queue_depth",
			Help: "Number of actions waiting on a Handler",
		},
		[]string{"handler"},
	)

	// TrackQueueDepth is the number of runners currently waiting on a
	// ThreadQueue, keyed by track id.
	TrackQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mona_track_queue_depth",
			Help: "Number of runners waiting on a thread pool track",
		},
		[]string{"track"},
	)

	// ThreadPoolQueuesRunning is the number of ThreadQueues currently
	// running, out of the pool's fixed size.
	ThreadPoolQueuesRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mona_threadpool_queues_running",
			Help: "Number of thread pool queues currently running",
		},
	)

	// SocketQueueingBytes is the number of bytes a socket is holding in
	// its pending send buffer, keyed by subject id.
	SocketQueueingBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mona_socket_queueing_bytes",
			Help: "Bytes currently queued for send on a socket",
		},
		[]string{"subject"},
	)

	// FileQueueingBytes mirrors SocketQueueingBytes for file writes.
	FileQueueingBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mona_file_queueing_bytes",
			Help: "Bytes currently queued for write on a file",
		},
		[]string{"subject"},
	)

	// FileReadenBytesTotal counts bytes read off disk, keyed by subject.
	FileReadenBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mona_file_readen_bytes_total",
			Help: "Total bytes read from a file",
		},
		[]string{"subject"},
	)

	// FileWrittenBytesTotal counts bytes flushed to disk, keyed by
	// subject.
	FileWrittenBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mona_file_written_bytes_total",
			Help: "Total bytes written to a file",
		},
		[]string{"subject"},
	)

	// SocketsConnected is the number of sockets currently in the
	// connected state.
	SocketsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mona_sockets_connected",
			Help: "Number of sockets currently in the connected state",
		},
	)

	// SocketConnectDuration observes the time between Connect and the
	// connect-in-progress descriptor becoming writable.
	SocketConnectDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mona_socket_connect_duration_seconds",
			Help:    "Time from Connect to CompleteConnect",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		HandlerQueueDepth,
		TrackQueueDepth,
		ThreadPoolQueuesRunning,
		SocketQueueingBytes,
		FileQueueingBytes,
		FileReadenBytesTotal,
		FileWrittenBytesTotal,
		SocketsConnected,
		SocketConnectDuration,
	)
}

// Handler returns the Prometheus HTTP handler for an exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
