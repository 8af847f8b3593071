package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics the auction ledger exports.
type Metrics struct {
	// --- Transaction processing ---
	TxApplied  *prometheus.CounterVec
	TxRejected *prometheus.CounterVec
	TxDuration *prometheus.HistogramVec
	Sequence   prometheus.Gauge

	// --- Pricing ---
	BidClearingPrice prometheus.Histogram
	UnitsSold        prometheus.Counter
	NativeCollected  prometheus.Counter

	// --- Dedup ---
	DedupDuplicates prometheus.Counter
	DedupEvictions  prometheus.Counter

	// --- Channels & backpressure ---
	ProjectionDrops prometheus.Counter
	PublishDrops    prometheus.Counter

	// --- Persistence ---
	ReceiptsWritten  prometheus.Counter
	PersistBatchSize prometheus.Histogram
	PersistBatchDur  prometheus.Histogram
	PersistRetry     prometheus.Counter
	PersistErrors    prometheus.Counter
	PersistLastSeq   prometheus.Gauge

	// --- Snapshot ---
	SnapshotTaken    prometheus.Counter
	SnapshotDuration prometheus.Histogram
	SnapshotLastSeq  prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them on the default
// registry. Call once per process; use NewMetricsWith for an isolated
// registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics registered on reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		TxApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_tx_applied_total",
			Help: "Transactions applied and committed",
		}, []string{"kind"}),

		TxRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_tx_rejected_total",
			Help: "Transactions rejected (domain code or ledger failure)",
		}, []string{"kind", "reason"}),

		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auction_tx_apply_duration_seconds",
			Help:    "Time to process a single transaction",
			Buckets: latencyBuckets,
		}, []string{"kind"}),

		Sequence: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_sequence",
			Help: "Current applied-transaction sequence number",
		}),

		BidClearingPrice: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_bid_clearing_price",
			Help:    "Per-unit price of accepted bids",
			Buckets: prometheus.ExponentialBuckets(1, 10, 12),
		}),

		UnitsSold: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_units_sold_total",
			Help: "Units transferred to bidders",
		}),

		NativeCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_native_collected_total",
			Help: "Native currency collected into vaults",
		}),

		DedupDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_dedup_duplicates_total",
			Help: "Resubmitted transactions skipped by the dedup LRU",
		}),

		DedupEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_dedup_lru_evictions_total",
			Help: "Dedup LRU evictions",
		}),

		ProjectionDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_projection_drops_total",
			Help: "Receipts dropped due to full projection channel",
		}),

		PublishDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_publish_drops_total",
			Help: "Receipts dropped due to full publish channel",
		}),

		ReceiptsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_receipts_written_total",
			Help: "Receipts written to Postgres",
		}),

		PersistBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_persist_batch_size",
			Help:    "Receipts per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistRetry: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_persist_errors_total",
			Help: "Persistence errors after retries",
		}),

		PersistLastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		SnapshotTaken: factory.NewCounter(prometheus.CounterOpts{
			Name: "auction_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "auction_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotLastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Name: "auction_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		QueryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "auction_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}
