package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of successful order status transitions",
	}, []string{"target"})

	OrderTransitionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_failed_total",
		Help: "Total number of rejected order status transitions",
	}, []string{"reason"})

	InventoryDeductionsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_deductions_failed_total",
		Help: "Total number of deduction groups rejected for insufficient stock",
	})

	LowStockSignalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_signals_total",
		Help: "Total number of low-stock threshold crossings signalled",
	})

	RestocksAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restocks_applied_total",
		Help: "Total number of restocks applied",
	})

	RestockDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "restock_duplicates_total",
		Help: "Total number of restocks ignored due to a repeated idempotency key",
	})

	ReorderDraftsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reorder_drafts_total",
		Help: "Total number of purchase orders drafted by the reorder trigger",
	})

	TasksSpawnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tasks_spawned_total",
		Help: "Total number of fulfillment tasks spawned",
	})

	DeductionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_deduction_latency_seconds",
		Help:    "Latency of all-or-nothing inventory deduction groups",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
