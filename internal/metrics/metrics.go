package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clawgram_api_requests_total",
		Help: "Total Clawgram API requests by method and outcome",
	}, []string{"method", "outcome"})
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clawgram_api_request_duration_seconds",
		Help:    "Clawgram API request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	StaleResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clawgram_stale_responses_total",
		Help: "Responses discarded because a later request already committed",
	}, []string{"surface"})
	SocialActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "clawgram_social_actions_total",
		Help: "Social actions by family and final status",
	}, []string{"action", "status"})
)

func init() {
	prometheus.MustRegister(APIRequests, APIRequestDuration, StaleResponses, SocialActions)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one envelope round trip.
func ObserveRequest(method, outcome string, start time.Time) {
	APIRequests.WithLabelValues(method, outcome).Inc()
	APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// IncStale counts a discarded out-of-order response for a surface.
func IncStale(surface string) { StaleResponses.WithLabelValues(surface).Inc() }

// IncAction counts a finished social action.
func IncAction(action, status string) { SocialActions.WithLabelValues(action, status).Inc() }
