package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stream metrics
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moesif_extproc_streams_active",
			Help: "Number of ext_proc streams currently open",
		},
	)

	StreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moesif_extproc_stream_errors_total",
			Help: "Total number of transport errors reading ext_proc streams",
		},
	)

	// Event assembly metrics
	EventsAssembled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moesif_extproc_events_assembled_total",
			Help: "Total number of events assembled from closed streams",
		},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moesif_extproc_events_dropped_total",
			Help: "Total number of events dropped before delivery",
		},
		[]string{"reason"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moesif_extproc_queue_depth",
			Help: "Current depth of the ingestion queue",
		},
	)

	QueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moesif_extproc_queue_capacity",
			Help: "Maximum capacity of the ingestion queue",
		},
	)

	// Delivery metrics
	BatchesFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moesif_extproc_batches_flushed_total",
			Help: "Total number of batches handed to the dispatcher",
		},
	)

	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moesif_extproc_events_delivered_total",
			Help: "Total number of events delivered to the collector",
		},
	)

	DeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moesif_extproc_delivery_failures_total",
			Help: "Total number of failed batch deliveries (batch lost)",
		},
	)
)
