package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessEventsTotal counts access events by pipeline outcome.
	// Labels:
	//   - outcome: "stored", "failed", "dropped"
	AccessEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mywebsite_access_events_total",
			Help: "Access events by recording outcome",
		},
		[]string{"outcome"},
	)

	// AccessQueueDepth is the number of events waiting for a worker.
	AccessQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mywebsite_access_queue_depth",
			Help: "Access events buffered in the recording queue",
		},
	)

	// RetentionDeletedTotal counts access events removed by retention runs.
	RetentionDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mywebsite_retention_deleted_total",
			Help: "Access events deleted by the retention job",
		},
	)
)

const (
	outcomeStored  = "stored"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)
