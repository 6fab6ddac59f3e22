package httpapi

import (
	"errors"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

var (
	ErrNilLoggerSupplied    = errors.New("nil logger supplied")
	ErrNilCollectorSupplied = errors.New("nil collector supplied")
)

// Option defines a functional option for configuring the API.
type Option func(*API) error

// WithLogger sets the basic logger for the API.
func WithLogger(logger cockpit.Logger) Option {
	return func(a *API) error {
		if logger == nil {
			return ErrNilLoggerSupplied
		}

		a.logger = logger

		return nil
	}
}

// WithContextualLogger sets the contextual logger for the API.
// The contextual logger receives log messages with context information,
// enabling automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger cockpit.ContextualLogger) Option {
	return func(a *API) error {
		if logger == nil {
			return ErrNilLoggerSupplied
		}

		a.contextualLogger = logger

		return nil
	}
}

// WithMetrics sets the metrics collector for the API.
// The collector receives per-operation durations and call counts for the
// schema aggregator and the read facades.
func WithMetrics(collector cockpit.MetricsCollector) Option {
	return func(a *API) error {
		if collector == nil {
			return ErrNilCollectorSupplied
		}

		a.metricsCollector = collector

		return nil
	}
}

// WithTracing sets the tracing collector for the API.
// The collector receives one span per read operation.
func WithTracing(collector cockpit.TracingCollector) Option {
	return func(a *API) error {
		if collector == nil {
			return ErrNilCollectorSupplied
		}

		a.tracingCollector = collector

		return nil
	}
}
