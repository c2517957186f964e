package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	HarvestRuns       prometheus.Counter
	HarvestFailures   prometheus.Counter
	MessagesProcessed prometheus.Counter
	ShipmentsInserted prometheus.Counter
	HarvestDuration   prometheus.Histogram
	ImportsAccepted   prometheus.Counter
	ImportsRejected   prometheus.Counter
	ImportRows        prometheus.Counter
	ReportsGenerated  prometheus.Counter
	LastHarvestTime   prometheus.Gauge
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		HarvestRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_harvest_runs_total",
			Help: "Total number of mailbox harvest runs",
		}),
		HarvestFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_harvest_failures_total",
			Help: "Total number of harvest runs that aborted with an error",
		}),
		MessagesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_messages_processed_total",
			Help: "Total number of order-confirmation messages turned into shipment records",
		}),
		ShipmentsInserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_shipments_inserted_total",
			Help: "Total number of shipment records newly inserted",
		}),
		HarvestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_recon_harvest_duration_seconds",
			Help:    "Time spent per harvest run",
			Buckets: prometheus.DefBuckets,
		}),
		ImportsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_imports_accepted_total",
			Help: "Total number of spreadsheet imports fully persisted",
		}),
		ImportsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_imports_rejected_total",
			Help: "Total number of spreadsheet imports rejected by validation",
		}),
		ImportRows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_import_rows_total",
			Help: "Total number of receipt rows persisted across imports",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "order_recon_reports_generated_total",
			Help: "Total number of reconciliation reports generated",
		}),
		LastHarvestTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "order_recon_last_harvest_timestamp_seconds",
			Help: "Unix timestamp of the last successful harvest run",
		}),
	}
}
