package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "places"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests served."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	PlacesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "places_emitted_total", Help: "Records written to the output document."},
		[]string{"strategy", "category"},
	)
	ReviewsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "reviews_collected_total", Help: "Reviews attached to emitted records."},
		[]string{"strategy"},
	)
	RecordFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "record_failures_total", Help: "Per-record failures swallowed at the record boundary."},
		[]string{"kind"}, // kind: interaction|enrich|write|mirror
	)
	ScrollAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "scroll_attempts_total", Help: "Scrolls issued by the browser harvesters."},
		[]string{"surface"}, // surface: feed|reviews
	)
	RecordDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "record_duration_seconds",
			Help:    "Time spent enriching and writing one record.",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		PlacesEmitted, ReviewsCollected, RecordFailures, ScrollAttempts, RecordDuration)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. An empty addr
// disables it and returns immediately.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveScroll(surface string) { ScrollAttempts.WithLabelValues(surface).Inc() }

func ObserveRecord(strategy, category string, reviews int, dur time.Duration) {
	PlacesEmitted.WithLabelValues(strategy, category).Inc()
	ReviewsCollected.WithLabelValues(strategy).Add(float64(reviews))
	RecordDuration.Observe(dur.Seconds())
}

func ObserveFailure(kind string) { RecordFailures.WithLabelValues(kind).Inc() }
