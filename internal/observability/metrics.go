package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the token ledger.
type Metrics struct {
	// --- Core processing ---
	CoreActionsApplied  *prometheus.CounterVec
	CoreActionsRejected *prometheus.CounterVec
	CoreActionDuration  *prometheus.HistogramVec
	CoreMutations       *prometheus.CounterVec
	CoreStateHashDur    prometheus.Histogram
	CoreSequence        prometheus.Gauge

	// --- Latency ---
	IngestToApply       *prometheus.HistogramVec
	ApplyToPersist      prometheus.Histogram
	QueryFreshnessLag   *prometheus.HistogramVec
	NATSPullLatency     *prometheus.HistogramVec
	PersistBatchDur     prometheus.Histogram
	ProjectionUpdateDur *prometheus.HistogramVec

	// --- Channels & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelUtilization  *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	NotifyDrops         prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency & ordering ---
	IdempotencyDuplicates *prometheus.CounterVec
	DedupLRUSize          prometheus.Gauge
	DedupLRUEvictions     prometheus.Counter
	DedupTier2Duration    prometheus.Histogram
	ActionSequenceGap     *prometheus.CounterVec
	ActionOutOfOrder      *prometheus.CounterVec

	// --- Token domain ---
	TokensCreated     prometheus.Counter
	SupplyIssued      *prometheus.CounterVec
	SupplyRetired     *prometheus.CounterVec
	TransfersApplied  *prometheus.CounterVec
	AllowancesActive  *prometheus.GaugeVec
	AccountRowsOpen   *prometheus.GaugeVec
	InvariantBreaches *prometheus.CounterVec

	// --- Persistence ---
	PersistActionsWritten   prometheus.Counter
	PersistMutationsWritten prometheus.Counter
	PersistBatchSize        prometheus.Histogram
	PersistErrors           *prometheus.CounterVec
	PersistRetry            prometheus.Counter
	PersistLastSequence     prometheus.Gauge

	// --- Snapshot & replay ---
	SnapshotTaken     prometheus.Counter
	SnapshotDuration  prometheus.Histogram
	SnapshotSizeBytes prometheus.Gauge
	SnapshotLastSeq   prometheus.Gauge
	ReplayActionsTotal prometheus.Counter
	ReplayDuration    prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	ingestBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		// Core processing
		CoreActionsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_core_actions_applied_total",
			Help: "Actions successfully applied by core",
		}, []string{"action_type"}),

		CoreActionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_core_actions_rejected_total",
			Help: "Actions rejected (dedup, gap, validation, auth, state, invariant)",
		}, []string{"action_type", "reason"}),

		CoreActionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_core_action_apply_duration_seconds",
			Help:    "Time to apply a single action in core",
			Buckets: latencyBuckets,
		}, []string{"action_type"}),

		CoreMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_core_mutations_generated_total",
			Help: "Table mutations generated",
		}, []string{"op"}),

		CoreStateHashDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_core_state_hash_duration_seconds",
			Help:    "Time to compute state hash",
			Buckets: latencyBuckets,
		}),

		CoreSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_core_sequence",
			Help: "Current global sequence number",
		}),

		// Latency
		IngestToApply: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_ingest_to_apply_seconds",
			Help:    "NATS receive to core apply complete",
			Buckets: ingestBuckets,
		}, []string{"action_type"}),

		ApplyToPersist: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_apply_to_persist_seconds",
			Help:    "Core emit to Postgres commit",
			Buckets: latencyBuckets,
		}),

		QueryFreshnessLag: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_query_freshness_lag_seconds",
			Help:    "Core sequence minus projection sequence (in time)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0},
		}, []string{"endpoint"}),

		NATSPullLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_nats_pull_latency_seconds",
			Help:    "NATS pull request latency",
			Buckets: ingestBuckets,
		}, []string{"subject"}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		ProjectionUpdateDur: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_projection_update_duration_seconds",
			Help:    "Projection table update duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"projection"}),

		// Channels & backpressure
		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "token_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "token_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ChannelUtilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "token_channel_utilization",
			Help: "Channel size / capacity (0.0-1.0)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_projection_drops_total",
			Help: "Actions dropped due to full projection channel",
		}, []string{"projection"}),

		NotifyDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_notify_drops_total",
			Help: "Notifications dropped due to full notify channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_persist_backpressure_total",
			Help: "Times core blocked on persist channel",
		}),

		// Idempotency & ordering
		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_idempotency_duplicates_total",
			Help: "Duplicates caught (lru/postgres)",
		}, []string{"action_type", "tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_dedup_lru_evictions_total",
			Help: "LRU evictions",
		}),

		DedupTier2Duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_dedup_tier2_duration_seconds",
			Help:    "Postgres dedup lookup latency",
			Buckets: latencyBuckets,
		}),

		ActionSequenceGap: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_action_sequence_gap_total",
			Help: "Source sequence gaps",
		}, []string{"partition"}),

		ActionOutOfOrder: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_action_out_of_order_total",
			Help: "Out-of-order rejections",
		}, []string{"partition"}),

		// Token domain
		TokensCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_tokens_created_total",
			Help: "Token symbols created",
		}),

		SupplyIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_supply_issued_total",
			Help: "Raw units issued into circulation",
		}, []string{"symbol"}),

		SupplyRetired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_supply_retired_total",
			Help: "Raw units retired from circulation",
		}, []string{"symbol"}),

		TransfersApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_transfers_applied_total",
			Help: "Transfers applied (direct/delegated)",
		}, []string{"symbol", "kind"}),

		AllowancesActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "token_allowances_active",
			Help: "Live allowance rows",
		}, []string{"symbol"}),

		AccountRowsOpen: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "token_account_rows_open",
			Help: "Live balance rows",
		}, []string{"symbol"}),

		InvariantBreaches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_invariant_breaches_total",
			Help: "Invariant check failures (halts processing)",
		}, []string{"invariant"}),

		// Persistence
		PersistActionsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_persist_actions_written_total",
			Help: "Actions written to Postgres",
		}),

		PersistMutationsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_persist_mutations_written_total",
			Help: "Mutations written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_persist_batch_size",
			Help:    "Actions per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_persist_retry_total",
			Help: "Persistence retries",
		}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		// Snapshot & replay
		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "token_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		}),

		SnapshotSizeBytes: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_snapshot_size_bytes",
			Help: "Last snapshot size",
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		ReplayActionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "token_replay_actions_total",
			Help: "Actions replayed on startup",
		}),

		ReplayDuration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "token_replay_duration_seconds",
			Help: "Total replay time",
		}),

		// Query API
		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "token_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "token_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
