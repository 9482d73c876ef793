package controller

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"golddust/internal/router"
)

var (
	// DecisionsTotal counts successful decisions by selected kind and reason.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "golddust_decisions_total",
			Help: "Total number of routing decisions",
		},
		[]string{"kind", "reason"},
	)

	// DecisionFailuresTotal counts evaluations that produced no decision.
	DecisionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "golddust_decision_failures_total",
			Help: "Total number of evaluations without a routing decision",
		},
		[]string{"error"},
	)

	// Backends tracks enabled/disabled backends per kind as of the last evaluation.
	Backends = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "golddust_backends",
			Help: "Known backends by kind and state",
		},
		[]string{"kind", "state"},
	)
)

func observeSet(set router.SnapshotSet) {
	counts := map[router.Kind][2]int{router.KindRelay: {}, router.KindExit: {}}
	for _, s := range set.All() {
		c := counts[s.Kind]
		if s.Enabled {
			c[0]++
		} else {
			c[1]++
		}
		counts[s.Kind] = c
	}
	for kind, c := range counts {
		Backends.WithLabelValues(kind.String(), "enabled").Set(float64(c[0]))
		Backends.WithLabelValues(kind.String(), "disabled").Set(float64(c[1]))
	}
}

func observeDecision(d router.Decision, err error) {
	switch {
	case err == nil:
		DecisionsTotal.WithLabelValues(d.Kind.String(), d.Reason.String()).Inc()
	case errors.Is(err, router.ErrNoBackendsAvailable):
		DecisionFailuresTotal.WithLabelValues(router.ErrNoBackendsAvailable.Error()).Inc()
	default:
		DecisionFailuresTotal.WithLabelValues("source").Inc()
	}
}
