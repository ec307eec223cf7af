package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects auth gate and JWKS metrics. A nil *Metrics records nothing.
type Metrics struct {
	gateDecisions *prometheus.CounterVec
	jwksFetches   *prometheus.CounterVec
	cachedKeys    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		gateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_gate_decisions_total",
				Help: "Request gate decisions by outcome.",
			},
			[]string{"outcome"},
		),
		jwksFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jwks_fetch_total",
				Help: "JWKS fetches by result.",
			},
			[]string{"result"},
		),
		cachedKeys: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "jwks_cached_keys",
				Help: "Number of signing keys held in the key cache.",
			},
		),
	}
	reg.MustRegister(m.gateDecisions, m.jwksFetches, m.cachedKeys)
	return m
}

// RecordGateDecision counts one request gate outcome
func (m *Metrics) RecordGateDecision(outcome string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome).Inc()
}

// RecordJWKSFetch counts one JWKS fetch; result is "ok" or a failure cause
func (m *Metrics) RecordJWKSFetch(result string) {
	if m == nil {
		return
	}
	m.jwksFetches.WithLabelValues(result).Inc()
}

// SetCachedKeys sets the key cache size gauge
func (m *Metrics) SetCachedKeys(n int) {
	if m == nil {
		return
	}
	m.cachedKeys.Set(float64(n))
}
