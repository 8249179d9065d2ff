// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "govportal"

var (
	// ReservationsCreated 按受理路径统计创建的预约 (event / direct / evaluate / immediate)
	ReservationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_created_total",
		Help:      "Reservations accepted at intake, by dispatch path.",
	}, []string{"path"})

	// OutcomesApplied 统计编排器应用的结果事件
	OutcomesApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_outcomes_applied_total",
		Help:      "Outcome events applied by the orchestrator.",
	}, []string{"result"})

	ReservationsOrphaned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_orphaned_total",
		Help:      "Reservations still REQUESTED after every re-drive attempt.",
	})

	InventoryDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_decisions_total",
		Help:      "Check-and-adjust decisions taken by the inventory coordinator.",
	}, []string{"committed", "reason"})

	DuplicateDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_duplicate_deliveries_total",
		Help:      "Reservation events replayed from the idempotency ledger.",
	})

	OpenResultStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "broker_open_result_streams",
		Help:      "Result streams currently open on this node.",
	})

	// BreakerState 0=closed 1=half-open 2=open
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per protected dependency.",
	}, []string{"name"})

	ConsumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consumer_messages_total",
		Help:      "Kafka messages handled by consumer adapters.",
	}, []string{"topic", "status"})
)

// Handler 暴露 /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
