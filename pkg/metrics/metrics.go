// Package metrics provides Prometheus metrics for the oracle observer.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oracle_watch"

var (
	// FramesTotal counts websocket frames received from the observer, by frame kind.
	FramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Total number of websocket frames received from the observer",
		},
		[]string{"kind"},
	)

	// DecodeErrorsTotal counts frames that failed to decode.
	DecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Total number of frames that could not be decoded",
		},
	)

	// ReconnectsTotal counts reconnect attempts to the observer.
	ReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Total number of observer reconnect attempts",
		},
	)

	// ConnectionState is the current ingestion state (0=disconnected, 1=connecting, 2=connected).
	ConnectionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Observer connection state (0=disconnected, 1=connecting, 2=connected)",
		},
	)

	// LastBlockHeight is the height of the last processed block.
	LastBlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_block_height",
			Help:      "Height of the last processed block",
		},
	)

	// EventsPublishedTotal counts bus publications by event kind.
	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published on the bus",
		},
		[]string{"kind"},
	)

	// AggregationDuration is a histogram of aggregation pass durations.
	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of oracle aggregation passes",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
	)

	// VotesTotal counts extracted oracle votes by result.
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Total number of oracle votes seen",
		},
		[]string{"status"},
	)

	// PriceDriftsTotal counts drift detections by denom.
	PriceDriftsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_drifts_total",
			Help:      "Total number of price drift detections",
		},
		[]string{"denom"},
	)

	// PriceAbstainsTotal counts abstain events.
	PriceAbstainsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_abstains_total",
			Help:      "Total number of price abstain events",
		},
	)

	// MissedVotesTotal counts missed vote warnings.
	MissedVotesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missed_votes_total",
			Help:      "Total number of missed vote warnings",
		},
	)

	// TrackedValidators is the number of validators with a last-seen height.
	TrackedValidators = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_validators",
			Help:      "Number of validators currently tracked by the aggregation engine",
		},
	)

	// SinkPublishTotal counts downstream sink writes by sink and status.
	SinkPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_publish_total",
			Help:      "Total number of downstream sink writes",
		},
		[]string{"sink", "status"},
	)

	// LCDRequestsTotal is a counter of LCD requests.
	LCDRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lcd_requests_total",
			Help:      "Total number of LCD requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestsTotal is a counter of total HTTP requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"endpoint", "status"},
	)

	// HTTPRequestDuration is a histogram of HTTP request latencies.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	// WebsocketClients is the number of connected event feed clients.
	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected event feed clients",
		},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FramesTotal,
			DecodeErrorsTotal,
			ReconnectsTotal,
			ConnectionState,
			LastBlockHeight,
			EventsPublishedTotal,
			AggregationDuration,
			VotesTotal,
			PriceDriftsTotal,
			PriceAbstainsTotal,
			MissedVotesTotal,
			TrackedValidators,
			SinkPublishTotal,
			LCDRequestsTotal,
			HTTPRequestsTotal,
			HTTPRequestDuration,
			WebsocketClients,
		)
	})
}

// NewServer builds the metrics HTTP server exposing promhttp on path.
func NewServer(addr, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ServeHTTP serves Prometheus metrics on addr.
func ServeHTTP(addr, path string) error {
	return NewServer(addr, path).ListenAndServe()
}

// RecordFrame records a received websocket frame.
func RecordFrame(kind string) {
	FramesTotal.WithLabelValues(kind).Inc()
}

// RecordDecodeError records a frame decode failure.
func RecordDecodeError() {
	DecodeErrorsTotal.Inc()
}

// RecordReconnect records a reconnect attempt.
func RecordReconnect() {
	ReconnectsTotal.Inc()
}

// RecordConnectionState records the ingestion state as its numeric value.
func RecordConnectionState(state int) {
	ConnectionState.Set(float64(state))
}

// RecordBlock records the height of a processed block.
func RecordBlock(height uint64) {
	LastBlockHeight.Set(float64(height))
}

// RecordEventPublished records a bus publication.
func RecordEventPublished(kind string) {
	EventsPublishedTotal.WithLabelValues(kind).Inc()
}

// RecordAggregation records an aggregation pass.
func RecordAggregation(duration time.Duration) {
	AggregationDuration.Observe(duration.Seconds())
}

// RecordVote records an extracted vote ("accepted" or "rejected").
func RecordVote(status string) {
	VotesTotal.WithLabelValues(status).Inc()
}

// RecordDrift records a drift detection.
func RecordDrift(denom string) {
	PriceDriftsTotal.WithLabelValues(denom).Inc()
}

// RecordAbstain records an abstain event.
func RecordAbstain() {
	PriceAbstainsTotal.Inc()
}

// RecordMissedVote records a missed vote warning.
func RecordMissedVote() {
	MissedVotesTotal.Inc()
}

// RecordTrackedValidators records the number of tracked validators.
func RecordTrackedValidators(n int) {
	TrackedValidators.Set(float64(n))
}

// RecordSinkPublish records a downstream sink write.
func RecordSinkPublish(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SinkPublishTotal.WithLabelValues(sink, status).Inc()
}

// RecordLCDRequest records an LCD request.
func RecordLCDRequest(endpoint, status string) {
	LCDRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
