// Package metrics holds the Prometheus collectors of the ingestion service.
//
// Exposed series:
//   - kayzen_ingest_runs_total{status} (Counter): finished runs by outcome
//   - kayzen_ingest_run_duration_seconds{status} (Histogram): wall time of a run
//   - kayzen_ingest_campaigns_processed_total (Counter): campaigns appended to the warehouse
//   - kayzen_api_requests_total{endpoint, status} (Counter): upstream calls by HTTP status
//   - kayzen_api_pages_fetched_total (Counter): non-empty listing pages
//   - kayzen_warehouse_operations_total{operation, result} (Counter): BigQuery jobs
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is where every collector of this package is registered.
var Registry = prometheus.DefaultRegisterer

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kayzen_ingest_runs_total",
		Help: "Finished ingestion runs by status",
	}, []string{"status"})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kayzen_ingest_run_duration_seconds",
		Help:    "Ingestion run duration in seconds by status",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"status"})

	CampaignsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kayzen_ingest_campaigns_processed_total",
		Help: "Campaigns appended to the warehouse",
	})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kayzen_api_requests_total",
		Help: "Kayzen API requests by endpoint and HTTP status",
	}, []string{"endpoint", "status"})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kayzen_api_pages_fetched_total",
		Help: "Non-empty campaign listing pages fetched",
	})

	WarehouseOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kayzen_warehouse_operations_total",
		Help: "Warehouse operations by kind and result",
	}, []string{"operation", "result"})
)

// ObserveRun records the outcome of one ingestion run.
func ObserveRun(status string, processed int, elapsed time.Duration) {
	RunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	if processed > 0 {
		CampaignsProcessed.Add(float64(processed))
	}
}

func ObserveAPIRequest(endpoint string, statusCode int) {
	APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

func ObserveWarehouse(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	WarehouseOperations.WithLabelValues(operation, result).Inc()
}
