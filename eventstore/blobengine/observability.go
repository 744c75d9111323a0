package blobengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/instrumentkit/blob-eventstore-go/eventstore"
)

const (
	operationStore     = "store"
	operationStoreMany = "store_many"
	operationFetch     = "fetch"
	operationFetchAll  = "fetch_all"
	operationDelete    = "delete"
	operationDeleteAll = "delete_all"
	operationRotateKey = "rotate_key"

	statusSuccess = "success"
	statusError   = "error"

	spanNamePrefix    = "eventstore."
	spanAttrOperation = "operation"
	spanAttrStatus    = "status"

	metricOperationDuration = "eventstore_operation_duration_seconds"
	metricDeniedBatches     = "eventstore_batches_denied_total"
	metricDirectoryErrors   = "eventstore_directory_errors_total"
)

// logDebug logs per-blob details at debug level if a logger is configured.
func (es *EventStore) logDebug(ctx context.Context, msg string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if es.logger != nil {
		es.logger.Debug(msg, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (es *EventStore) logOperation(ctx context.Context, msg string, args ...any) {
	if es.contextualLogger != nil {
		es.contextualLogger.InfoContext(ctx, logMsgOperation+msg, args...)
		return
	}

	if es.logger != nil {
		es.logger.Info(logMsgOperation+msg, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (es *EventStore) logWarn(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if es.contextualLogger != nil {
		es.contextualLogger.WarnContext(ctx, msg, allArgs...)
		return
	}

	if es.logger != nil {
		es.logger.Warn(msg, allArgs...)
	}
}

// logError logs failures at error level if a logger is configured.
func (es *EventStore) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if es.contextualLogger != nil {
		es.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if es.logger != nil {
		es.logger.Error(msg, allArgs...)
	}
}

// recordOperationMetrics records the duration of a public operation with its
// outcome status if a metrics collector is configured.
func (es *EventStore) recordOperationMetrics(ctx context.Context, operation string, err error, duration time.Duration) {
	if es.metricsCollector == nil {
		return
	}

	status := statusSuccess
	if err != nil {
		status = statusError
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    status,
	}

	if contextualCollector, ok := es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
	} else {
		es.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	}
}

// recordDeniedBatchMetrics counts refused batches if a metrics collector is configured.
func (es *EventStore) recordDeniedBatchMetrics(ctx context.Context) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operationStoreMany,
	}

	if contextualCollector, ok := es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDeniedBatches, labels)
	} else {
		es.metricsCollector.IncrementCounter(metricDeniedBatches, labels)
	}
}

// recordDirectoryErrorMetrics counts failed directory calls if a metrics collector is configured.
func (es *EventStore) recordDirectoryErrorMetrics(ctx context.Context, operation string) {
	if es.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrStatus:    statusError,
	}

	if contextualCollector, ok := es.metricsCollector.(eventstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDirectoryErrors, labels)
	} else {
		es.metricsCollector.IncrementCounter(metricDirectoryErrors, labels)
	}
}

// startOperationSpan starts a tracing span for a public operation if a
// tracing collector is configured.
func (es *EventStore) startOperationSpan(ctx context.Context, operation string) (context.Context, eventstore.SpanContext) {
	if es.tracingCollector == nil {
		return ctx, nil
	}

	return es.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
		spanAttrOperation: operation,
	})
}

// finishOperationSpan finishes an operation span with its outcome status.
func (es *EventStore) finishOperationSpan(span eventstore.SpanContext, err error, duration time.Duration) {
	if es.tracingCollector == nil || span == nil {
		return
	}

	status := statusSuccess
	attrs := map[string]string{
		logAttrDurationMS: formatMilliseconds(duration),
	}

	if err != nil {
		status = statusError
		attrs[logAttrError] = err.Error()
	}

	es.tracingCollector.FinishSpan(span, status, attrs)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return strconv.FormatFloat(toMilliseconds(d), 'f', -1, 64)
}
