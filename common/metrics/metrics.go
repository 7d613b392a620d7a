// Package metrics exposes Prometheus counters for reward grants and store calls.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Grant outcomes recorded on rewards_grants_total.
const (
	OutcomeGranted  = "granted"
	OutcomeSkipped  = "skipped"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

type Manager struct {
	namespace string
	registry  *prometheus.Registry

	grants     *prometheus.CounterVec
	xpGranted  *prometheus.CounterVec
	storeCalls *prometheus.CounterVec
	storeErrs  *prometheus.CounterVec
}

type Option func(*Manager)

func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		m.namespace = namespace
	}
}

func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		m.registry = registry
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "rewards",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)

	m.grants = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "grants_total",
		Help:      "Reward grant requests by reward type and outcome",
	}, []string{"type", "outcome"})

	m.xpGranted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "xp_granted_total",
		Help:      "XP committed to accounts by reward type",
	}, []string{"type"})

	m.storeCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "store_calls_total",
		Help:      "DynamoDB calls issued by the store",
	}, []string{"operation"})

	m.storeErrs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "store_errors_total",
		Help:      "DynamoDB calls that returned an error",
	}, []string{"operation"})

	return m
}

// The recording methods are nil-safe so components can run without metrics.

func (m *Manager) RecordGrant(rewardType, outcome string) {
	if m == nil {
		return
	}
	m.grants.WithLabelValues(rewardType, outcome).Inc()
}

func (m *Manager) RecordXP(rewardType string, xp int) {
	if m == nil || xp <= 0 {
		return
	}
	m.xpGranted.WithLabelValues(rewardType).Add(float64(xp))
}

func (m *Manager) RecordStoreCall(operation string, err error) {
	if m == nil {
		return
	}
	m.storeCalls.WithLabelValues(operation).Inc()
	if err != nil {
		m.storeErrs.WithLabelValues(operation).Inc()
	}
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
