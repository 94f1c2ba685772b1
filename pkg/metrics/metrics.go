// Package metrics métricas Prometheus del bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cafebot"

var (
	// StoreRequestsTotal llamadas al almacén tabular por operación y resultado.
	StoreRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Llamadas al almacén tabular por driver, operación y resultado",
		},
		[]string{"driver", "operation", "status"},
	)

	// StoreRequestDuration latencia de las llamadas al almacén.
	StoreRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Duración de las llamadas al almacén tabular en segundos",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"driver", "operation"},
	)

	// StoreRetriesTotal reintentos por límite de cuota.
	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Reintentos por límite de cuota del almacén",
		},
		[]string{"driver", "operation"},
	)

	// LedgerOperationsTotal operaciones del almacén de café por tipo y resultado.
	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Operaciones de inventario por tipo, fase y resultado",
		},
		[]string{"operation", "phase", "result"},
	)

	// CompensationsTotal restauraciones tras una escritura parcial.
	CompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "compensations_total",
			Help:      "Restauraciones de inventario tras fallos parciales",
		},
		[]string{"operation", "result"},
	)

	// FlowsTotal flujos de conversación por comando y desenlace.
	FlowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "flows_total",
			Help:      "Flujos de conversación por comando y desenlace (completed, cancelled, expired, failed)",
		},
		[]string{"flow", "outcome"},
	)

	// ActiveSessions sesiones abiertas en el almacén de sesiones en memoria.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "active_sessions",
			Help:      "Sesiones de conversación activas",
		},
	)

	// TelegramUpdatesTotal actualizaciones recibidas por tipo.
	TelegramUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram",
			Name:      "updates_total",
			Help:      "Actualizaciones de Telegram recibidas por tipo",
		},
		[]string{"kind"},
	)
)
