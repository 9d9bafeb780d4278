package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesScanned    = "pyimports.files.scanned.total"
	metricFilesMatched    = "pyimports.files.matched.total"
	metricFilesRewritten  = "pyimports.files.rewritten.total"
	metricStyleViolations = "pyimports.style.violations.total"
	metricParseFailures   = "pyimports.parse.failures.total"
	metricRunDuration     = "pyimports.run.duration.seconds"

	attrOp       = "op"
	attrStrategy = "strategy"
	attrStatus   = "status"

	// StatusOK marks a run that completed.
	StatusOK = "ok"
	// StatusError marks a run that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 120s: single files up to large
// monorepo walks.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// RunStats are the counts of one find or rename run.
type RunStats struct {
	Op              string
	Strategy        string
	Status          string
	FilesScanned    int
	FilesMatched    int
	FilesRewritten  int
	StyleViolations int
	ParseFailures   int
	Duration        time.Duration
}

// RunMetrics holds the OTel instruments recorded once per run.
type RunMetrics struct {
	scanned     metric.Int64Counter
	matched     metric.Int64Counter
	rewritten   metric.Int64Counter
	violations  metric.Int64Counter
	parseErrors metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from mt.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	counters := []struct {
		name, desc, unit string
		dst              *metric.Int64Counter
	}{
		{metricFilesScanned, "Candidate files read", "{file}", nil},
		{metricFilesMatched, "Files importing the target module", "{file}", nil},
		{metricFilesRewritten, "Files whose imports were rewritten", "{file}", nil},
		{metricStyleViolations, "Rewritten lines over the length limit", "{line}", nil},
		{metricParseFailures, "Files that failed to parse", "{file}", nil},
	}

	rm := &RunMetrics{}
	counters[0].dst = &rm.scanned
	counters[1].dst = &rm.matched
	counters[2].dst = &rm.rewritten
	counters[3].dst = &rm.violations
	counters[4].dst = &rm.parseErrors

	for _, c := range counters {
		counter, err := mt.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}

		*c.dst = counter
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	rm.duration = duration

	return rm, nil
}

// Record adds the stats of a completed run. Safe to call on a nil receiver.
func (rm *RunMetrics) Record(ctx context.Context, stats RunStats) {
	if rm == nil {
		return
	}

	opAttrs := metric.WithAttributes(
		attribute.String(attrOp, stats.Op),
		attribute.String(attrStrategy, stats.Strategy),
	)

	rm.scanned.Add(ctx, int64(stats.FilesScanned), opAttrs)
	rm.matched.Add(ctx, int64(stats.FilesMatched), opAttrs)
	rm.rewritten.Add(ctx, int64(stats.FilesRewritten), opAttrs)
	rm.violations.Add(ctx, int64(stats.StyleViolations), opAttrs)
	rm.parseErrors.Add(ctx, int64(stats.ParseFailures), opAttrs)

	status := stats.Status
	if status == "" {
		status = StatusOK
	}

	rm.duration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(
		attribute.String(attrOp, stats.Op),
		attribute.String(attrStatus, status),
	))
}
