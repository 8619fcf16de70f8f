// Package metrics provides Prometheus metrics for the auth core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the auth core.
type Metrics struct {
	enabled bool

	// Login flow metrics
	loginsTotal        *prometheus.CounterVec
	loginFailuresTotal *prometheus.CounterVec
	logoutsTotal       prometheus.Counter

	// Role resolution metrics
	roleResolutionsTotal  *prometheus.CounterVec
	staleResolutionsTotal prometheus.Counter

	// Gate metrics
	gateDecisionsTotal *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmate_logins_total",
		Help: "Total successful logins",
	}, []string{"role"})

	m.loginFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmate_login_failures_total",
		Help: "Total rejected logins",
	}, []string{"reason"})

	m.logoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelfmate_logouts_total",
		Help: "Total logouts",
	})

	m.roleResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmate_role_resolutions_total",
		Help: "Total role resolutions",
	}, []string{"result"})

	m.staleResolutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shelfmate_stale_resolutions_dropped_total",
		Help: "Role resolutions discarded because the identity changed while they were in flight",
	})

	m.gateDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shelfmate_gate_decisions_total",
		Help: "Access gate decisions",
	}, []string{"action"})

	return m
}

// RecordLogin records a successful login and the role it resolved to.
func (m *Metrics) RecordLogin(isAdmin bool) {
	if !m.enabled {
		return
	}
	role := "user"
	if isAdmin {
		role = "admin"
	}
	m.loginsTotal.WithLabelValues(role).Inc()
}

// RecordLoginFailure records a rejected login.
func (m *Metrics) RecordLoginFailure(reason string) {
	if !m.enabled {
		return
	}
	m.loginFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordLogout records a logout.
func (m *Metrics) RecordLogout() {
	if !m.enabled {
		return
	}
	m.logoutsTotal.Inc()
}

// RecordRoleResolution records a settled role resolution.
func (m *Metrics) RecordRoleResolution(result string) {
	if !m.enabled {
		return
	}
	m.roleResolutionsTotal.WithLabelValues(result).Inc()
}

// RecordStaleResolutionDrop records a resolution discarded for staleness.
func (m *Metrics) RecordStaleResolutionDrop() {
	if !m.enabled {
		return
	}
	m.staleResolutionsTotal.Inc()
}

// RecordGateDecision records a final gate action.
func (m *Metrics) RecordGateDecision(action string) {
	if !m.enabled {
		return
	}
	m.gateDecisionsTotal.WithLabelValues(action).Inc()
}
