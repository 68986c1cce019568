package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/maktab/core/chat"
)

// Collector holds the Prometheus metrics of the API in its own registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	chatTurns    *prometheus.CounterVec
	chatDuration *prometheus.HistogramVec
	uploads      *prometheus.CounterVec
}

var _ chat.Recorder = (*Collector)(nil)

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		chatTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_turns_total",
				Help:      "Total number of chat turns by grounding and outcome",
			},
			[]string{"grounding", "outcome"},
		),
		chatDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_model_duration_seconds",
				Help:      "Time spent waiting for the model",
				Buckets:   []float64{.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"grounding"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Total number of textbook uploads by outcome",
			},
			[]string{"outcome"},
		),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests,
		c.httpDuration,
		c.chatTurns,
		c.chatDuration,
		c.uploads,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveReply(grounding, outcome string, elapsed time.Duration) {
	c.chatTurns.WithLabelValues(grounding, outcome).Inc()
	c.chatDuration.WithLabelValues(grounding).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveUpload(outcome string) {
	c.uploads.WithLabelValues(outcome).Inc()
}

// Middleware records every request by its route pattern.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				// let the error handler write the response so the real status is recorded
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			status := strconv.Itoa(ctx.Response().Status)
			c.httpRequests.WithLabelValues(method, route, status).Inc()
			c.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
