package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts routing-engine and reconciler outcomes.
type Metrics struct {
	GatewayCalls    prometheus.Counter
	GatewayFailures prometheus.Counter
	Handoffs        prometheus.Counter
	Takeovers       prometheus.Counter
	AutoProvisioned prometheus.Counter
}

// NewMetrics registers the engine counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GatewayCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "routing_gateway_calls_total",
			Help: "Automated responder gateway invocations",
		}),
		GatewayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "routing_gateway_failures_total",
			Help: "Gateway invocations that failed or timed out",
		}),
		Handoffs: factory.NewCounter(prometheus.CounterOpts{
			Name: "routing_handoffs_total",
			Help: "Conversations escalated from the bot to a human",
		}),
		Takeovers: factory.NewCounter(prometheus.CounterOpts{
			Name: "routing_takeovers_total",
			Help: "Explicit or implicit human takeovers",
		}),
		AutoProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "crm_auto_provisioned_contacts_total",
			Help: "Contacts created by the reconciler",
		}),
	}
}
