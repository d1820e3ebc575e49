package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 扫描决策指标
	ScanDecisionTotal   metric.Int64Counter
	FaceCompareTotal    metric.Int64Counter
	FaceCompareDuration metric.Float64Histogram

	// 对账指标
	ReconcileArchivedTotal metric.Int64Counter
	ReconcileSweptTotal    metric.Int64Counter
	ReconcileDuration      metric.Float64Histogram
}

var (
	// 全局指标实例，未初始化时所有记录函数为 no-op
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("facetrack")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.ScanDecisionTotal, err = meter.Int64Counter(
		"scan_decision_total",
		metric.WithDescription("Total number of scan decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return err
	}

	metrics.FaceCompareTotal, err = meter.Int64Counter(
		"face_compare_total",
		metric.WithDescription("Total number of face comparison calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	metrics.FaceCompareDuration, err = meter.Float64Histogram(
		"face_compare_duration_seconds",
		metric.WithDescription("Time spent on a single face comparison call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.ReconcileArchivedTotal, err = meter.Int64Counter(
		"reconcile_archived_total",
		metric.WithDescription("Total number of attendance records archived"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	metrics.ReconcileSweptTotal, err = meter.Int64Counter(
		"reconcile_swept_total",
		metric.WithDescription("Total number of records flagged as no_checkout"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	metrics.ReconcileDuration, err = meter.Float64Histogram(
		"reconcile_duration_seconds",
		metric.WithDescription("Duration of a full reconciliation pass"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordScanDecision 记录一次扫描决策结果
func RecordScanDecision(ctx context.Context, outcome, status string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("outcome", outcome),
	}
	if status != "" {
		attrs = append(attrs, attribute.String("status", status))
	}

	metrics.ScanDecisionTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFaceCompare 记录一次比对调用
func RecordFaceCompare(ctx context.Context, provider, result string, duration float64) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("result", result),
	}

	metrics.FaceCompareTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.FaceCompareDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordReconcile 记录一次对账结果
func RecordReconcile(ctx context.Context, archived, swept int64, duration float64) {
	if metrics == nil {
		return
	}

	metrics.ReconcileArchivedTotal.Add(ctx, archived)
	metrics.ReconcileSweptTotal.Add(ctx, swept)
	metrics.ReconcileDuration.Record(ctx, duration)
}
