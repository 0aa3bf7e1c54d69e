// Package metrics exposes the prometheus instrumentation named in
// SPEC_FULL.md §4.13. Of these, only RPCPingLatency is updated, by the
// client translator in cmd/xlatorfsd from its RPC connection's ping
// callback; the inode table, RPC connection and socket transport do not
// update any of the others.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric this repository exports, constructed
// once per process by the daemon and handed to the client translator
// factory at graph-construction time.
type Registry struct {
	InodeTableSize  *prometheus.GaugeVec
	FDTableOpen     prometheus.Gauge
	RPCSavedFrames  *prometheus.GaugeVec
	RPCBailouts     prometheus.Counter
	RPCReconnects   prometheus.Counter
	RPCPingLatency  prometheus.Histogram
	SocketWriteQueue *prometheus.GaugeVec
}

// NewRegistry constructs and registers every metric on reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		InodeTableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xlatorfs_inode_table_size",
			Help: "Inode table occupancy by lifecycle state.",
		}, []string{"state"}),
		FDTableOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xlatorfs_fd_table_open",
			Help: "Currently open file descriptors across all inodes.",
		}),
		RPCSavedFrames: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xlatorfs_rpc_saved_frames",
			Help: "In-flight RPC calls awaiting reply, per connection.",
		}, []string{"peer"}),
		RPCBailouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xlatorfs_rpc_bailouts_total",
			Help: "RPC calls failed by the bailout sweep.",
		}),
		RPCReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xlatorfs_rpc_reconnects_total",
			Help: "RPC connection reconnect attempts.",
		}),
		RPCPingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xlatorfs_rpc_ping_latency_seconds",
			Help:    "Round-trip latency of the null dump liveness ping.",
			Buckets: prometheus.DefBuckets,
		}),
		SocketWriteQueue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "xlatorfs_socket_write_queue_bytes",
			Help: "Bytes queued for write on a socket transport.",
		}, []string{"peer"}),
	}
	reg.MustRegister(
		r.InodeTableSize, r.FDTableOpen, r.RPCSavedFrames,
		r.RPCBailouts, r.RPCReconnects, r.RPCPingLatency, r.SocketWriteQueue,
	)
	return r
}

const (
	StateActive = "active"
	StateLRU    = "lru"
	StatePurge  = "purge"
)
