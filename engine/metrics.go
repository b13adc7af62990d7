package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_ticks_total",
		Help: "Number of periodic point grants performed by this process.",
	})

	tickPointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_tick_points_total",
		Help: "Points granted per team by periodic ticks.",
	})

	debitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_debits_total",
		Help: "Number of successful debit settlements.",
	})

	creditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tally_credits_total",
		Help: "Number of successful ledgered credit settlements.",
	})
)
