// Package metrics exposes ledger counters and timings for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RejectReason labels a refused submission.
type RejectReason string

const (
	RejectInvalid           RejectReason = "invalid"
	RejectInsufficientStock RejectReason = "insufficient_stock"
	RejectChainInvalid      RejectReason = "chain_invalid"
)

// Registry holds every stockchain collector. It is separate from the
// global default registry so tests and embedders get a clean set.
var Registry = prometheus.NewRegistry()

type ledgerPromMetrics struct {
	sealDuration    prometheus.Histogram
	hashAttempts    prometheus.Counter
	chainHeight     prometheus.Gauge
	pendingTxs      prometheus.Gauge
	txInBlock       prometheus.Histogram
	submittedTx     prometheus.Counter
	rejectedTx      *prometheus.CounterVec
	validations     *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
}

func newLedgerPromMetrics(reg prometheus.Registerer) *ledgerPromMetrics {
	f := promauto.With(reg)
	return &ledgerPromMetrics{
		sealDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockchain_seal_duration_seconds",
				Help:    "Time spent searching for a nonce that meets the difficulty",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		hashAttempts: f.NewCounter(
			prometheus.CounterOpts{
				Name: "stockchain_hash_attempts_total",
				Help: "Total number of nonces tried while sealing",
			},
		),
		chainHeight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockchain_chain_height",
				Help: "Index of the latest block",
			},
		),
		pendingTxs: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockchain_pending_transactions",
				Help: "Adjustments waiting to be mined",
			},
		),
		txInBlock: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stockchain_tx_in_block",
				Help:    "Number of adjustments sealed per block",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		submittedTx: f.NewCounter(
			prometheus.CounterOpts{
				Name: "stockchain_submitted_tx_total",
				Help: "Adjustments accepted into the pending queue",
			},
		),
		rejectedTx: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockchain_rejected_tx_total",
				Help: "Adjustments refused before reaching the pending queue",
			},
			[]string{"reason"},
		),
		validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockchain_validations_total",
				Help: "Full chain validations by result",
			},
			[]string{"result"},
		),
		persistFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockchain_persist_failures_total",
				Help: "Failed load or save operations against the chain store",
			},
			[]string{"op"},
		),
	}
}

var ledgerMetrics = newLedgerPromMetrics(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordSeal(duration time.Duration, attempts uint64) {
	ledgerMetrics.sealDuration.Observe(duration.Seconds())
	ledgerMetrics.hashAttempts.Add(float64(attempts))
}

func SetChainHeight(height uint64) {
	ledgerMetrics.chainHeight.Set(float64(height))
}

func SetPendingCount(n int) {
	ledgerMetrics.pendingTxs.Set(float64(n))
}

func RecordTxInBlock(n int) {
	ledgerMetrics.txInBlock.Observe(float64(n))
}

func IncreaseSubmittedTx() {
	ledgerMetrics.submittedTx.Inc()
}

func RecordRejectedTx(reason RejectReason) {
	ledgerMetrics.rejectedTx.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func RecordValidation(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	ledgerMetrics.validations.With(prometheus.Labels{
		"result": result,
	}).Inc()
}

func RecordPersistFailure(op string) {
	ledgerMetrics.persistFailures.With(prometheus.Labels{
		"op": op,
	}).Inc()
}
