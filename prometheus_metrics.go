package mrzworker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	inFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mrz_in_flight_requests",
		Help: "Number of currently pending and processed requests.",
	})
	counter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrz_api_requests_total",
			Help: "A counter for requests to the wrapped handler.",
		},
		[]string{"code", "method"},
	)

	// duration is partitioned by the HTTP method and handler. It uses custom
	// buckets based on the expected request duration.
	duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrz_request_duration_seconds",
			Help:    "A histogram of latencies for requests.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"handler", "method"},
	)

	// requestSize has no labels, making it a zero-dimensional ObserverVec.
	requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrz_request_size_bytes",
			Help:    "A histogram of request sizes for requests.",
			Buckets: []float64{100, 1500, 5000000, 10000000, 25000000, 50000000},
		},
		[]string{},
	)

	engineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mrz_engine_process_seconds",
			Help:    "Time spent in the engine's process call.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"engine"},
	)
	zonesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mrz_zones_total",
			Help: "Number of machine readable zones found.",
		},
		[]string{"engine"},
	)
)

func init() {
	prometheus.MustRegister(inFlightGauge, counter, duration, requestSize, engineDuration, zonesTotal)
}

// InstrumentHandler wraps handler to provide prometheus metrics
func InstrumentHandler(name string, handler http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(inFlightGauge,
		promhttp.InstrumentHandlerDuration(duration.MustCurryWith(prometheus.Labels{"handler": name}),
			promhttp.InstrumentHandlerCounter(counter,
				promhttp.InstrumentHandlerRequestSize(requestSize, handler),
			),
		),
	)
}
