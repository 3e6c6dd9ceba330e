package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Messaging gateway metrics
var (
	// Ingestion counters
	MessagesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "messages_ingested_total",
			Help:      "Messages persisted from network events",
		},
		[]string{"direction"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "events_dropped_total",
			Help:      "Network events dropped by the ingestion pipeline",
		},
		[]string{"reason"},
	)

	DuplicatesSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "duplicates_suppressed_total",
			Help:      "Echo events suppressed by the send dedup guard",
		},
	)

	// Outbound command counters
	SendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "sends_total",
			Help:      "Outbound send commands",
		},
		[]string{"kind", "status"},
	)

	// Session lifecycle counters
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "state_transitions_total",
			Help:      "Session state machine transitions",
		},
		[]string{"state"},
	)

	// Automation counters
	RulesFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zapcrm",
			Subsystem: "messaging_gateway",
			Name:      "rules_fired_total",
			Help:      "Automation rules whose trigger matched",
		},
		[]string{"trigger", "action"},
	)
)
