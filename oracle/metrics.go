package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are observability only: nothing in the chain engine reads a
// metric to make a consensus decision. Each Oracle gets its own registry
// rather than registering against the global default, so multiple Oracles
// (as in tests) never collide on collector names.
type metrics struct {
	submissions *prometheus.CounterVec
	reorgs      prometheus.Counter
	reorgDepth  prometheus.Histogram
	proofChecks *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry) *metrics {
	f := promauto.With(reg)
	return &metrics{
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spv_oracle_submissions_total",
			Help: "Header submissions by outcome.",
		}, []string{"outcome"}),
		reorgs: f.NewCounter(prometheus.CounterOpts{
			Name: "spv_oracle_reorgs_total",
			Help: "Number of canonical-chain reorganizations.",
		}),
		reorgDepth: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "spv_oracle_reorg_depth",
			Help:    "Depth of canonical-chain reorganizations, in blocks.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		proofChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "spv_oracle_proof_verifications_total",
			Help: "Merkle proof verifications by result.",
		}, []string{"result"}),
	}
}

func (o *Oracle) recordSubmission(outcome string) {
	o.metrics.submissions.WithLabelValues(outcome).Inc()
}

func (o *Oracle) recordReorg(depth uint64) {
	o.metrics.reorgs.Inc()
	o.metrics.reorgDepth.Observe(float64(depth))
}

func (o *Oracle) recordProofCheck(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	o.metrics.proofChecks.WithLabelValues(result).Inc()
}
