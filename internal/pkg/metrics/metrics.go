package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "whispers",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Event bus metrics
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "bus",
		Name:      "events_emitted_total",
		Help:      "Total events emitted on the in-process bus",
	}, []string{"kind"})

	ListenerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "bus",
		Name:      "listener_errors_total",
		Help:      "Total listener errors returned to emitters",
	}, []string{"kind"})

	BridgeMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "bus",
		Name:      "bridge_messages_total",
		Help:      "Events relayed through the broker bridge",
	}, []string{"direction", "result"})

	// Map facade metrics
	MapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "map",
		Name:      "transitions_total",
		Help:      "Map facade readiness transitions",
	}, []string{"state"})

	ActiveMapSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "whispers",
		Subsystem: "map",
		Name:      "active_sessions",
		Help:      "Current number of connected map view sessions",
	})

	// Location metrics
	LocationResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "location",
		Name:      "resolutions_total",
		Help:      "Coordinates adopted per source",
	}, []string{"source"})

	GeolocationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "location",
		Name:      "device_errors_total",
		Help:      "Device geolocation failures (ignored)",
	})

	GeolocationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "whispers",
		Subsystem: "location",
		Name:      "device_latency_seconds",
		Help:      "Time until the device position callback resolved",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whispers",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
