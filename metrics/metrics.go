package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "attestor"

// Metrics holds the issuer's Prometheus collectors.
type Metrics struct {
	Initiations   *prometheus.CounterVec
	Confirmations *prometheus.CounterVec
	Issued        *prometheus.CounterVec
	SignDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Initiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "initiations_total",
			Help:      "Verification initiations by channel and result.",
		}, []string{"channel", "result"}),
		Confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Verification confirmations by channel and result.",
		}, []string{"channel", "result"}),
		Issued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attestations_issued_total",
			Help:      "Signed attestations by channel and verification method.",
		}, []string{"channel", "method"}),
		SignDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sign_duration_seconds",
			Help:      "Time spent canonicalizing and signing attestation data.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	reg.MustRegister(m.Initiations, m.Confirmations, m.Issued, m.SignDuration)
	return m
}
