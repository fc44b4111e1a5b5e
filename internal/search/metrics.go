package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pathsense",
		Subsystem: "search",
		Name:      "total",
		Help:      "Total grid searches by outcome",
	}, []string{"outcome"})

	searchExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pathsense",
		Subsystem: "search",
		Name:      "expanded_nodes",
		Help:      "Nodes expanded per search",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})
)

const (
	outcomeFound  = "found"
	outcomeNoPath = "no_path"
)
