// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/fleetledger/internal/apperr"
)

var (
	SignupEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetledger_signup_events_total",
			Help: "Signup flow steps by outcome",
		},
		[]string{"step", "outcome"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetledger_notifications_total",
			Help: "Notifications dispatched per channel",
		},
		[]string{"channel", "status"},
	)

	LedgerWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetledger_ledger_writes_total",
			Help: "Ledger records created, by kind",
		},
		[]string{"kind"},
	)

	AlertsRaised = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetledger_alerts_raised_total",
			Help: "Compliance alerts returned by scans",
		},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetledger_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome labels an operation result for counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request latency keyed by the matched route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			status = fe.Code
		case err != nil:
			status = apperr.Status(err)
		}
		HTTPDuration.
			WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
