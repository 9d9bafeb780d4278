// Package renamer rewrites the imports of one module to another across a
// source tree.
package renamer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/pyimports/pkg/detect"
	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/observability"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
	"github.com/Sumatoshi-tech/pyimports/pkg/report"
	"github.com/Sumatoshi-tech/pyimports/pkg/rewrite"
	"github.com/Sumatoshi-tech/pyimports/pkg/textutil"
	"github.com/Sumatoshi-tech/pyimports/pkg/walk"
)

const (
	tracerName = "pyimports"
	spanRename = "pyimports.rename"
	opRename   = "rename"
)

// Sentinel errors for renamer configuration.
var (
	ErrNoModule         = errors.New("renamer: old and new module are required")
	ErrDetectorMismatch = errors.New("renamer: detector targets a different module")
)

// Renamer rewrites plain and from-imports of Old to New.
type Renamer struct {
	Walker *walk.Walker
	// Detector selects the files and lines to rewrite. Nil uses the textual
	// detector for Old.
	Detector detect.Detector
	// Patterns caches compiled matchers. Nil compiles them per run.
	Patterns *pattern.Cache

	Old module.Identifier
	New module.Identifier

	// MaxLineLength is the style limit; non-positive means 79.
	MaxLineLength int
	// DryRun computes the report without writing files.
	DryRun bool
	// Diff attaches a line diff to each report entry.
	Diff bool
	// FirstMatchOnly skips the from-import pass when plain imports changed.
	FirstMatchOnly bool
	// Workers bounds concurrent file processing; values below 1 mean 1.
	Workers int

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
}

type fileOutcome struct {
	entry   *report.Entry
	found   bool
	scanned bool
	read    int64
	err     error
}

// Rename walks root and rewrites every file importing Old. Entries are
// reported in visitation order. Files that cannot be read or parsed are
// reported as warnings and left untouched.
func (r *Renamer) Rename(ctx context.Context, root string) (*report.Rewrite, error) {
	det, err := r.detector()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger := r.logger()

	ctx, span := r.tracer().Start(ctx, spanRename, trace.WithAttributes(
		attribute.String("pyimports.module", r.Old.String()),
		attribute.String("rename.new", r.New.String()),
		attribute.String("rename.strategy", det.Name()),
		attribute.Bool("rename.dry_run", r.DryRun),
	))
	defer span.End()

	listing, err := r.walker().Walk(ctx, root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "walk failed")
		r.record(ctx, det, observability.RunStats{Status: observability.StatusError, Duration: time.Since(start)})

		return nil, fmt.Errorf("rename: %w", err)
	}

	set := r.patternSet()
	outcomes := make([]fileOutcome, len(listing.Files))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(max(r.Workers, 1))

	for idx, file := range listing.Files {
		grp.Go(func() error {
			err := grpCtx.Err()
			if err != nil {
				return fmt.Errorf("rename: %w", err)
			}

			outcomes[idx] = r.process(grpCtx, det, set, file, listing.Rel(file))

			return nil
		})
	}

	err = grp.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancelled")

		return nil, err
	}

	rep := &report.Rewrite{
		Root:     listing.Root,
		Old:      r.Old.String(),
		New:      r.New.String(),
		Strategy: det.Name(),
		DryRun:   r.DryRun,
		Entries:  []report.Entry{},
	}

	stats := r.collect(ctx, logger, listing, outcomes, rep)
	stats.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("rename.rewritten", len(rep.Entries)),
		attribute.Int("rename.style", rep.StyleCount()),
	)

	r.record(ctx, det, stats)

	return rep, nil
}

// collect folds per-file outcomes into rep in visitation order.
func (r *Renamer) collect(
	ctx context.Context, logger *slog.Logger, listing *walk.Listing, outcomes []fileOutcome, rep *report.Rewrite,
) observability.RunStats { //nolint:whitespace // multi-line signature
	var stats observability.RunStats

	for _, skip := range listing.Skipped {
		rel := listing.Rel(skip.Path)
		rep.Warnings = append(rep.Warnings, report.NewWarning(rel, skip.Err))
		logger.WarnContext(ctx, "path skipped", slog.String("path", rel), slog.Any("error", skip.Err))
	}

	for idx, outcome := range outcomes {
		rel := listing.Rel(listing.Files[idx])

		if outcome.err != nil {
			if errors.Is(outcome.err, detect.ErrParse) {
				stats.ParseFailures++
			}

			rep.Warnings = append(rep.Warnings, report.NewWarning(rel, outcome.err))
			logger.WarnContext(ctx, "file skipped", slog.String("path", rel), slog.Any("error", outcome.err))
		}

		if outcome.scanned {
			stats.FilesScanned++
			rep.Stats.BytesRead += outcome.read
		}

		if outcome.found {
			stats.FilesMatched++
		}

		if outcome.entry == nil {
			continue
		}

		stats.FilesRewritten++
		stats.StyleViolations += len(outcome.entry.Violations)
		rep.Entries = append(rep.Entries, *outcome.entry)

		logger.DebugContext(ctx, "imports rewritten",
			slog.String("path", rel),
			slog.Int("edits", len(outcome.entry.Edits)),
			slog.Bool("style", outcome.entry.Style),
		)
	}

	rep.Stats.Scanned = stats.FilesScanned
	rep.Stats.Matched = stats.FilesMatched
	rep.Stats.Rewritten = stats.FilesRewritten

	return stats
}

// process reads one file once, rewrites it and writes it back when changed.
func (r *Renamer) process(
	ctx context.Context, det detect.Detector, set *pattern.Set, file, rel string,
) fileOutcome { //nolint:whitespace // multi-line signature
	src, err := textutil.ReadText(file)
	if err != nil {
		return fileOutcome{err: err}
	}

	outcome := fileOutcome{scanned: true, read: int64(len(src))}

	findings, err := det.Detect(ctx, file, src)
	if err != nil {
		outcome.err = err

		return outcome
	}

	if !findings.Found() {
		return outcome
	}

	outcome.found = true

	res := rewrite.Apply(src, set, r.New, rewrite.Options{
		Lines:          findings.Lines(),
		FirstMatchOnly: r.FirstMatchOnly,
	})
	if !res.Changed {
		return outcome
	}

	entry := &report.Entry{
		Path:       rel,
		Edits:      res.Edits,
		Violations: rewrite.CheckLineLength(res.Edits, r.MaxLineLength),
	}
	entry.Style = len(entry.Violations) > 0

	if r.Diff {
		entry.Diff = report.LineDiff(rel, src, res.Source)
	}

	if !r.DryRun {
		err = WriteFileAtomic(file, res.Source)
		if err != nil {
			outcome.err = err

			return outcome
		}
	}

	outcome.entry = entry

	return outcome
}

func (r *Renamer) detector() (detect.Detector, error) {
	if r.Old == "" || r.New == "" {
		return nil, ErrNoModule
	}

	if r.Detector == nil {
		return detect.NewTextual(r.patternSet()), nil
	}

	if r.Detector.Module() != r.Old {
		return nil, fmt.Errorf("%w: %s != %s", ErrDetectorMismatch, r.Detector.Module(), r.Old)
	}

	return r.Detector, nil
}

func (r *Renamer) patternSet() *pattern.Set {
	if r.Patterns == nil {
		return pattern.New(r.Old)
	}

	return r.Patterns.Get(r.Old)
}

func (r *Renamer) record(ctx context.Context, det detect.Detector, stats observability.RunStats) {
	stats.Op = opRename
	stats.Strategy = det.Name()
	r.Metrics.Record(ctx, stats)
}

func (r *Renamer) walker() *walk.Walker {
	if r.Walker == nil {
		return walk.New()
	}

	return r.Walker
}

func (r *Renamer) logger() *slog.Logger {
	if r.Logger == nil {
		return observability.Discard()
	}

	return r.Logger
}

func (r *Renamer) tracer() trace.Tracer {
	if r.Tracer == nil {
		return otel.Tracer(tracerName)
	}

	return r.Tracer
}
