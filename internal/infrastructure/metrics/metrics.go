package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	ChargesApplied      prometheus.Counter
	CreditsApplied      *prometheus.CounterVec
	InsufficientCredits prometheus.Counter
	LedgerOpDuration    *prometheus.HistogramVec
	LedgerErrors        *prometheus.CounterVec

	// Webhook metrics
	WebhookEvents     *prometheus.CounterVec
	DuplicateEvents   prometheus.Counter
	SignatureFailures prometheus.Counter

	// Generation metrics
	GenerationsStarted prometheus.Counter
	GenerationsDone    *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	PollAttempts       prometheus.Histogram

	// Blob store metrics
	BlobUploads *prometheus.CounterVec
	BlobErrors  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		ChargesApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestra_charges_applied_total",
			Help: "Total number of successful credit charges",
		}),
		CreditsApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_credits_applied_total",
				Help: "Total number of successful credit grants by kind",
			},
			[]string{"kind"},
		),
		InsufficientCredits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestra_insufficient_credits_total",
			Help: "Total number of charges rejected for insufficient balance",
		}),
		LedgerOpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vestra_ledger_op_duration_seconds",
				Help:    "Duration of ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LedgerErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_ledger_errors_total",
				Help: "Total number of ledger errors by type",
			},
			[]string{"error_type"},
		),

		WebhookEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_webhook_events_total",
				Help: "Total webhook events by event type and outcome",
			},
			[]string{"event_type", "outcome"},
		),
		DuplicateEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestra_webhook_duplicate_events_total",
			Help: "Total webhook events skipped as already applied",
		}),
		SignatureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestra_webhook_signature_failures_total",
			Help: "Total webhook deliveries rejected for a bad signature",
		}),

		GenerationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestra_generations_started_total",
			Help: "Total generation requests dispatched to a provider",
		}),
		GenerationsDone: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_generations_done_total",
				Help: "Total generation requests reaching a terminal state",
			},
			[]string{"provider", "state"},
		),
		GenerationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vestra_generation_duration_seconds",
				Help:    "End-to-end generation duration",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 240, 480},
			},
			[]string{"provider"},
		),
		PollAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vestra_generation_poll_attempts",
			Help:    "Poll attempts per asynchronous generation",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 240},
		}),

		BlobUploads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_blob_uploads_total",
				Help: "Total blob store uploads by category",
			},
			[]string{"category"},
		),
		BlobErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vestra_blob_errors_total",
				Help: "Total blob store failures by operation",
			},
			[]string{"operation"},
		),
	}
}
