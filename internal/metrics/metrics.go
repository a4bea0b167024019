package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Identification results.
const (
	ResultSuccess    = "success"
	ResultValidation = "validation_error"
	ResultUpstream   = "upstream_error"
	ResultStorage    = "storage_error"
)

var (
	IdentificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantid_identifications_total",
			Help: "Total number of identification requests by result",
		},
		[]string{"result"},
	)

	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plantid_upstream_duration_seconds",
			Help:    "Duration of calls to the identification service in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantid_extractions_total",
			Help: "Extracted name fields by field and whether a value was found",
		},
		[]string{"field", "found"},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plantid_thumbnails_total",
			Help: "Thumbnail generation attempts by result",
		},
		[]string{"result"},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "plantid_event_publish_failures_total",
			Help: "Detection events that could not be published",
		},
	)
)

// RecordIdentification counts one identify request.
func RecordIdentification(result string) {
	IdentificationsTotal.WithLabelValues(result).Inc()
}

// ObserveUpstream records how long the identification call took.
func ObserveUpstream(d time.Duration) {
	UpstreamDuration.Observe(d.Seconds())
}

// RecordExtraction notes whether each name field was found.
func RecordExtraction(scientificName, commonName string) {
	ExtractionsTotal.WithLabelValues("scientific_name", found(scientificName)).Inc()
	ExtractionsTotal.WithLabelValues("common_name", found(commonName)).Inc()
}

func found(s string) string {
	if s == "" {
		return "false"
	}
	return "true"
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
