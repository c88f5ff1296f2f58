package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal             *prometheus.CounterVec
	PrimaryUnavailableTotal prometheus.Counter
	FailOpenTotal           prometheus.Counter
	LoginDenialsTotal       prometheus.Counter
	SweptRowsTotal          prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChecksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_checks_total",
			Help: "Rate limit checks by backend that served them and outcome",
		}, []string{"backend", "outcome"}),
		PrimaryUnavailableTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_primary_unavailable_total",
			Help: "Times the primary counter store was skipped or failed a check",
		}),
		FailOpenTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_fail_open_total",
			Help: "Checks allowed without counting because every backend failed",
		}),
		LoginDenialsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_login_denials_total",
			Help: "Login attempts denied by the brute force guard",
		}),
		SweptRowsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_swept_rows_total",
			Help: "Expired fallback counter rows removed by the sweeper",
		}),
	}
}

func (m *Metrics) RecordCheck(backend string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	m.ChecksTotal.WithLabelValues(backend, outcome).Inc()
}
