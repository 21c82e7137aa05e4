package simulator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/casparschwa/beaconrunner/validator"
)

const (
	observabilityComponentName      = "github.com/casparschwa/beaconrunner/simulator"
	observabilityComponentNamespace = "beaconrunner.simulator"
)

var (
	meter  = otel.Meter(observabilityComponentName)
	tracer = otel.Tracer(observabilityComponentName)

	slotDelayHistogram      metric.Float64Histogram
	decisionsCounter        metric.Int64Counter
	producerFailuresCounter metric.Int64Counter
)

func init() {
	var err error

	logger := zap.L().With(zap.String("component", observabilityComponentName))

	slotDelayMetricName := fmt.Sprintf("%s.scheduler.slot_ticker.delay.duration", observabilityComponentNamespace)
	slotDelayHistogram, err = meter.Float64Histogram(
		slotDelayMetricName,
		metric.WithUnit("s"),
		metric.WithDescription("The delay of the slot ticker"),
		metric.WithExplicitBucketBoundaries([]float64{0.005, 0.01, 0.02, 0.1, 0.5, 5}...))
	if err != nil {
		logger.Error("failed to instantiate metric",
			zap.String("metric_name", slotDelayMetricName),
			zap.Error(err))
	}

	decisionsMetricName := fmt.Sprintf("%s.scheduler.decisions", observabilityComponentNamespace)
	decisionsCounter, err = meter.Int64Counter(
		decisionsMetricName,
		metric.WithUnit("{decision}"),
		metric.WithDescription("Total number of duty decisions that resulted in an emitted artifact"))
	if err != nil {
		logger.Error("failed to instantiate metric",
			zap.String("metric_name", decisionsMetricName),
			zap.Error(err))
	}

	producerFailuresMetricName := fmt.Sprintf("%s.scheduler.producer_failures", observabilityComponentNamespace)
	producerFailuresCounter, err = meter.Int64Counter(
		producerFailuresMetricName,
		metric.WithUnit("{failure}"),
		metric.WithDescription("Total number of artifact producer failures"))
	if err != nil {
		logger.Error("failed to instantiate metric",
			zap.String("metric_name", producerFailuresMetricName),
			zap.Error(err))
	}
}

func dutyKindAttribute(kind validator.DutyKind) attribute.KeyValue {
	const dutyKindAttrName = "beaconrunner.duty.kind"
	return attribute.String(dutyKindAttrName, kind.String())
}

func behaviorAttribute(name string) attribute.KeyValue {
	const behaviorAttrName = "beaconrunner.behavior"
	return attribute.String(behaviorAttrName, name)
}

func recordSlotDelay(ctx context.Context, delay time.Duration) {
	slotDelayHistogram.Record(ctx, delay.Seconds())
}

func recordDecision(ctx context.Context, behaviorName string, kind validator.DutyKind) {
	decisionsCounter.Add(ctx, 1,
		metric.WithAttributes(dutyKindAttribute(kind), behaviorAttribute(behaviorName)))
}

func recordProducerFailure(ctx context.Context, kind validator.DutyKind) {
	producerFailuresCounter.Add(ctx, 1, metric.WithAttributes(dutyKindAttribute(kind)))
}

func spanName(operation string) string {
	return fmt.Sprintf("%s.%s", observabilityComponentNamespace, operation)
}

func traceError(span trace.Span, err error) error {
	span.SetStatus(codes.Error, err.Error())
	return err
}
