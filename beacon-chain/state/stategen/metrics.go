package stategen

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trackedStatesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finalization_tracked_states",
		Help: "Number of block indices with a finalization state in the repository.",
	})
	confirmedStatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_states_confirmed_total",
		Help: "Number of commit-built states confirmed by their full block.",
	})
	stateMismatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_state_mismatches_total",
		Help: "Number of commit-built states that disagreed with their full block.",
	})
	trimmedStatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finalization_states_trimmed_total",
		Help: "Number of states dropped from the repository after finalization.",
	})
	lastFinalizedEpochGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finalization_last_finalized_epoch",
		Help: "Last finalized epoch of the active tip.",
	})
	lastJustifiedEpochGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finalization_last_justified_epoch",
		Help: "Last justified epoch of the active tip.",
	})
	tipHeightGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finalization_tip_height",
		Help: "Height of the active tip.",
	})
)
