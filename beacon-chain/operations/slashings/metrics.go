package slashings

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	numPendingSlashings = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "num_pending_vote_slashings",
			Help: "Number of pending vote slashings in the pool",
		},
	)
	numSlashingsIncluded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vote_slashings_included_total",
			Help: "Number of vote slashings included in blocks",
		},
	)
	slashingReattempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vote_slashing_reattempts_total",
			Help: "Times a vote slashing for an already slashed validator is received",
		},
	)
	numSlashingsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vote_slashings_rejected_total",
			Help: "Times a vote slashing was not slashable against the tip state",
		},
	)
)
