package slasher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordedVotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recorded_votes_total",
		Help: "Number of finalizer votes persisted for slashing detection.",
	})
	doubleVotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "double_votes_detected_total",
		Help: "Number of double votes detected.",
	})
	surroundVotesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "surround_votes_detected_total",
		Help: "Number of surround votes detected.",
	})
)
