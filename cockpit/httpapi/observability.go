package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

const (
	// ReadFacadeDurationMetric tracks read facade execution duration (OpenTelemetry-compatible).
	ReadFacadeDurationMetric = "cockpit_read_duration_seconds"

	// ReadFacadeCallsMetric tracks total read facade calls.
	ReadFacadeCallsMetric = "cockpit_read_calls_total"

	// ReadFacadeCanceledMetric tracks canceled read operations.
	ReadFacadeCanceledMetric = "cockpit_read_canceled_operations_total"

	// ReadFacadeTimeoutMetric tracks timed-out read operations.
	ReadFacadeTimeoutMetric = "cockpit_read_timeout_operations_total"

	// StatusSuccess indicates successful operation completion.
	StatusSuccess = "success"

	// StatusError indicates an operation processing error.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// LogMsgReadStarted is logged when a read facade operation begins.
	LogMsgReadStarted = "read facade started"

	// LogMsgReadCompleted is logged when a read facade operation succeeds.
	LogMsgReadCompleted = "read facade completed"

	// LogMsgReadFailed is logged when a read facade operation fails.
	LogMsgReadFailed = "read facade failed"

	// LogAttrOperation identifies the read operation in logs.
	LogAttrOperation = "operation"

	// LogAttrAggregateType identifies the requested aggregate type in logs.
	LogAttrAggregateType = "aggregate_type"

	// LogAttrStatus indicates the operation processing status.
	LogAttrStatus = "status"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// SpanNameRead is the tracing span name for read facade operations.
	SpanNameRead = "cockpit.read"
)

// BuildReadLabels creates standard metric labels for read facade operations.
func BuildReadLabels(operation, status string) map[string]string {
	return map[string]string{
		LogAttrOperation: operation,
		LogAttrStatus:    status,
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// RecordReadMetrics records duration and call metrics for one read facade
// operation. It uses context-aware collector methods when available and falls
// back to the base interface otherwise.
func RecordReadMetrics(
	ctx context.Context,
	collector cockpit.MetricsCollector,
	operation string,
	status string,
	duration time.Duration,
) {
	if collector == nil {
		return
	}

	labels := BuildReadLabels(operation, status)

	if contextualCollector, ok := collector.(cockpit.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, ReadFacadeDurationMetric, duration, labels)
		contextualCollector.IncrementCounterContext(ctx, ReadFacadeCallsMetric, labels)
	} else {
		collector.RecordDuration(ReadFacadeDurationMetric, duration, labels)
		collector.IncrementCounter(ReadFacadeCallsMetric, labels)
	}

	if status == StatusCanceled {
		incrementCounter(ctx, collector, ReadFacadeCanceledMetric, labels)
	}

	if status == StatusTimeout {
		incrementCounter(ctx, collector, ReadFacadeTimeoutMetric, labels)
	}
}

func incrementCounter(ctx context.Context, collector cockpit.MetricsCollector, metric string, labels map[string]string) {
	if contextualCollector, ok := collector.(cockpit.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		collector.IncrementCounter(metric, labels)
	}
}

// StartReadSpan starts a distributed tracing span for a read facade operation.
// Returns the updated context and span context, or the original context and
// nil if tracing is disabled.
func StartReadSpan(
	ctx context.Context,
	tracingCollector cockpit.TracingCollector,
	operation string,
) (context.Context, cockpit.SpanContext) {
	if tracingCollector == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		LogAttrOperation: operation,
	}

	return tracingCollector.StartSpan(ctx, SpanNameRead, attrs)
}

// FinishReadSpan completes a distributed tracing span with the operation outcome.
func FinishReadSpan(
	tracingCollector cockpit.TracingCollector,
	span cockpit.SpanContext,
	status string,
	duration time.Duration,
	err error,
) {
	if tracingCollector == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: fmt.Sprintf("%.2f", ToMilliseconds(duration)),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracingCollector.FinishSpan(span, status, attrs)
}

// LogReadStart logs the beginning of a read facade operation.
func LogReadStart(
	ctx context.Context,
	logger cockpit.Logger,
	contextualLogger cockpit.ContextualLogger,
	operation string,
) {
	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgReadStarted, LogAttrOperation, operation)
	} else if logger != nil {
		logger.Info(LogMsgReadStarted, LogAttrOperation, operation)
	}
}

// LogReadSuccess logs successful completion of a read facade operation.
func LogReadSuccess(
	ctx context.Context,
	logger cockpit.Logger,
	contextualLogger cockpit.ContextualLogger,
	operation string,
	duration time.Duration,
) {
	args := []any{
		LogAttrOperation, operation,
		LogAttrDurationMS, ToMilliseconds(duration),
	}

	if contextualLogger != nil {
		contextualLogger.InfoContext(ctx, LogMsgReadCompleted, args...)
	} else if logger != nil {
		logger.Info(LogMsgReadCompleted, args...)
	}
}

// LogReadError logs read facade operation failures.
func LogReadError(
	ctx context.Context,
	logger cockpit.Logger,
	contextualLogger cockpit.ContextualLogger,
	operation string,
	err error,
) {
	args := []any{
		LogAttrOperation, operation,
		LogAttrError, err.Error(),
	}

	if contextualLogger != nil {
		contextualLogger.ErrorContext(ctx, LogMsgReadFailed, args...)
	} else if logger != nil {
		logger.Error(LogMsgReadFailed, args...)
	}
}

// IsCancellationError checks if an error is due to context cancellation.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError checks if an error is due to context deadline exceeded.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// statusFromError maps an operation error to a metric status string.
func statusFromError(err error) string {
	switch {
	case IsCancellationError(err):
		return StatusCanceled
	case IsTimeoutError(err):
		return StatusTimeout
	default:
		return StatusError
	}
}
