package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the resolver, cache, reconciler and dashboard.
type Metrics struct {
	Resolutions      *prometheus.CounterVec   // labels: outcome={cache_hit,located,not_found,error,invalid}
	CacheOperations  *prometheus.CounterVec   // labels: op={lookup,store}, result={hit,miss,error,ok,duplicate}
	APIErrors        *prometheus.CounterVec   // labels: kind
	RequestSeconds   *prometheus.HistogramVec // labels: provider
	InFlight         prometheus.Gauge
	StatusWritebacks *prometheus.CounterVec // labels: result={success,failure}
	BackgroundTasks  prometheus.Gauge
	ZoneAssignments  *prometheus.GaugeVec   // labels: collection, zone
	Snapshots        *prometheus.CounterVec // labels: collection
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Resolutions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_address_resolutions_total",
			Help: "Total number of address resolutions by outcome.",
		}, []string{"outcome"}),
		CacheOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_geocode_cache_operations_total",
			Help: "Geocode cache lookups and stores by result.",
		}, []string{"op", "result"}),
		APIErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}, []string{"kind"}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		InFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "compass_resolutions_in_flight",
			Help: "Current number of address resolutions in flight.",
		}),
		StatusWritebacks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_status_writebacks_total",
			Help: "Ticket status corrections written back to the document store.",
		}, []string{"result"}),
		BackgroundTasks: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "compass_background_tasks",
			Help: "Current number of running background writes.",
		}),
		ZoneAssignments: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "compass_zone_records",
			Help: "Number of records per sector zone in the latest snapshot.",
		}, []string{"collection", "zone"}),
		Snapshots: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_snapshots_processed_total",
			Help: "Document store snapshots processed per collection.",
		}, []string{"collection"}),
	}
}
