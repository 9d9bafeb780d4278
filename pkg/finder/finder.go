// Package finder lists the source files under a tree that import a module.
package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pyimports/pkg/detect"
	"github.com/Sumatoshi-tech/pyimports/pkg/observability"
	"github.com/Sumatoshi-tech/pyimports/pkg/textutil"
	"github.com/Sumatoshi-tech/pyimports/pkg/walk"
)

const (
	tracerName = "pyimports"
	spanFind   = "pyimports.find"
	opFind     = "find"
)

// ErrNoDetector is returned when a Finder has no detector configured.
var ErrNoDetector = errors.New("finder: no detector configured")

// Warning is a file that could not be inspected. Warnings never abort a run.
type Warning struct {
	Path string
	Err  error
}

// Result is the outcome of one Find call.
type Result struct {
	Root     string
	Module   string
	Strategy string
	// Paths are root-relative, slash separated, sorted and unique.
	Paths    []string
	Warnings []Warning
	// Scanned counts the files read and inspected.
	Scanned   int
	BytesRead int64
}

// Finder detects importing files under a root.
type Finder struct {
	Walker   *walk.Walker
	Detector detect.Detector
	// Workers bounds concurrent file analysis; values below 1 mean 1.
	Workers int
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
}

type fileOutcome struct {
	found bool
	read  int64
	err   error
}

// Find walks root and returns the files that import the detector's module.
func (f *Finder) Find(ctx context.Context, root string) (*Result, error) {
	if f.Detector == nil {
		return nil, ErrNoDetector
	}

	start := time.Now()
	logger := f.logger()

	ctx, span := f.tracer().Start(ctx, spanFind, trace.WithAttributes(
		attribute.String("pyimports.module", f.Detector.Module().String()),
		attribute.String("find.strategy", f.Detector.Name()),
	))
	defer span.End()

	listing, err := f.walker().Walk(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "walk failed")
		f.record(ctx, observability.RunStats{Status: observability.StatusError, Duration: time.Since(start)})

		return nil, fmt.Errorf("find: %w", err)
	}

	outcomes := make([]fileOutcome, len(listing.Files))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(max(f.Workers, 1))

	for idx, file := range listing.Files {
		grp.Go(func() error {
			err := grpCtx.Err()
			if err != nil {
				return fmt.Errorf("find: %w", err)
			}

			outcomes[idx] = f.inspect(grpCtx, file)

			return nil
		})
	}

	err = grp.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")

		return nil, err
	}

	res := &Result{
		Root:     listing.Root,
		Module:   f.Detector.Module().String(),
		Strategy: f.Detector.Name(),
		Warnings: skippedWarnings(listing),
	}

	for _, w := range res.Warnings {
		logger.WarnContext(ctx, "path skipped", slog.String("path", w.Path), slog.Any("error", w.Err))
	}

	parseFailures := 0

	for idx, outcome := range outcomes {
		rel := listing.Rel(listing.Files[idx])

		if outcome.err != nil {
			if errors.Is(outcome.err, detect.ErrParse) {
				parseFailures++
			}

			res.Warnings = append(res.Warnings, Warning{Path: rel, Err: outcome.err})
			logger.WarnContext(ctx, "file skipped", slog.String("path", rel), slog.Any("error", outcome.err))

			continue
		}

		res.Scanned++
		res.BytesRead += outcome.read

		if outcome.found {
			res.Paths = append(res.Paths, rel)
			logger.DebugContext(ctx, "import found", slog.String("path", rel))
		}
	}

	slices.Sort(res.Paths)
	res.Paths = slices.Compact(res.Paths)

	span.SetAttributes(
		attribute.Int("find.scanned", res.Scanned),
		attribute.Int("find.matched", len(res.Paths)),
	)

	f.record(ctx, observability.RunStats{
		FilesScanned:  res.Scanned,
		FilesMatched:  len(res.Paths),
		ParseFailures: parseFailures,
		Duration:      time.Since(start),
	})

	return res, nil
}

func (f *Finder) inspect(ctx context.Context, file string) fileOutcome {
	src, err := textutil.ReadText(file)
	if err != nil {
		return fileOutcome{err: err}
	}

	findings, err := f.Detector.Detect(ctx, file, src)
	if err != nil {
		return fileOutcome{err: err}
	}

	return fileOutcome{found: findings.Found(), read: int64(len(src))}
}

func (f *Finder) record(ctx context.Context, stats observability.RunStats) {
	stats.Op = opFind
	stats.Strategy = f.Detector.Name()
	f.Metrics.Record(ctx, stats)
}

func (f *Finder) walker() *walk.Walker {
	if f.Walker == nil {
		return walk.New()
	}

	return f.Walker
}

func (f *Finder) logger() *slog.Logger {
	if f.Logger == nil {
		return observability.Discard()
	}

	return f.Logger
}

func (f *Finder) tracer() trace.Tracer {
	if f.Tracer == nil {
		return otel.Tracer(tracerName)
	}

	return f.Tracer
}

func skippedWarnings(listing *walk.Listing) []Warning {
	warnings := make([]Warning, 0, len(listing.Skipped))
	for _, skip := range listing.Skipped {
		warnings = append(warnings, Warning{Path: listing.Rel(skip.Path), Err: skip.Err})
	}

	return warnings
}
