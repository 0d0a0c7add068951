package kv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stateCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_state_cache_hit",
		Help: "The number of snapshot requests that are present in the cache.",
	})
	stateCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_state_cache_miss",
		Help: "The number of snapshot requests that aren't present in the cache.",
	})
	savedStatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_states_saved_total",
		Help: "The number of finalization states written to disk.",
	})
)
