/*
Package metrics exposes Prometheus gauges and counters for the runtime
itself: handler queue depth, per-track queue depth, thread pool
utilization, socket/file queueing bytes, file read/write totals and the
live socket count. Handler returns an http.Handler suitable for mounting
at /metrics.

Gauges that change on every event (SocketQueueingBytes,
FileQueueingBytes, SocketsConnected) are set directly from pkg/socket and
pkg/file as events happen. Gauges that only make sense as a snapshot
(TrackQueueDepth, ThreadPoolQueuesRunning, HandlerQueueDepth) are
populated by Collector, which polls a ThreadPool and Handler on an
interval.
*/
package metrics
