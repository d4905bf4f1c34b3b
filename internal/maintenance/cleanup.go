// Package maintenance holds one-shot data maintenance jobs run by operators.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/metrics"
	"nyc-kinder-workers/pkg/geography"
)

// DefaultBatchSize bounds the number of identifiers in one delete statement.
const DefaultBatchSize = 100

// Store is the record store the cleanup reads from and deletes in.
type Store interface {
	ListSchoolDBNs(ctx context.Context) ([]string, error)
	DeleteSchools(ctx context.Context, dbns []string) (int64, error)
}

// CacheInvalidator drops derived data cached for deleted schools.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, dbns []string) error
}

// Notifier receives the run summary.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// Report describes one cleanup run. On failure it holds the progress made
// before the failing batch.
type Report struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	DryRun     bool      `json:"dryRun"`
	Scanned    int       `json:"scanned"`
	Kept       int       `json:"kept"`
	Targeted   int       `json:"targeted"`
	Deleted    int64     `json:"deleted"`
	Batches    int       `json:"batches"`
	Targets    []string  `json:"targets,omitempty"`
}

// Duration is the wall time of the run.
func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Cleaner removes school records whose DBN does not classify into one of
// the five boroughs.
type Cleaner struct {
	store     Store
	cache     CacheInvalidator
	notifier  Notifier
	logger    logger.Logger
	clock     clockwork.Clock
	batchSize int
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithBatchSize overrides DefaultBatchSize; non-positive sizes are ignored.
func WithBatchSize(n int) Option {
	return func(c *Cleaner) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithCacheInvalidator drops cached scores for each deleted batch.
func WithCacheInvalidator(ci CacheInvalidator) Option {
	return func(c *Cleaner) { c.cache = ci }
}

// WithNotifier publishes the run summary when the run ends.
func WithNotifier(n Notifier) Option {
	return func(c *Cleaner) { c.notifier = n }
}

// WithClock replaces the real clock, mainly in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Cleaner) { c.clock = clock }
}

func NewCleaner(store Store, log logger.Logger, opts ...Option) *Cleaner {
	c := &Cleaner{
		store:     store,
		logger:    log.WithFields(map[string]interface{}{"job": "borough-cleanup"}),
		clock:     clockwork.NewRealClock(),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NonNYC returns the identifiers that do not classify into a borough, in
// input order, without duplicates.
func NonNYC(dbns []string) []string {
	seen := make(map[string]struct{}, len(dbns))
	var out []string
	for _, dbn := range dbns {
		if geography.IsNYC5Borough(dbn) {
			continue
		}
		if _, dup := seen[dbn]; dup {
			continue
		}
		seen[dbn] = struct{}{}
		out = append(out, dbn)
	}
	return out
}

// Batches splits items into consecutive chunks of at most size elements.
func Batches(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

// Run reads every DBN, classifies it and deletes the non-NYC ones in
// sequential batches. The first failing batch stops the run; batches
// already deleted stay deleted, and a rerun picks up the remainder.
func (c *Cleaner) Run(ctx context.Context, dryRun bool) (Report, error) {
	report := Report{StartedAt: c.clock.Now(), DryRun: dryRun}

	dbns, err := c.store.ListSchoolDBNs(ctx)
	if err != nil {
		report.FinishedAt = c.clock.Now()
		c.logger.Error("failed to list schools", map[string]interface{}{"error": err})
		return report, apperrors.NewQueryExecutionFailedError("list_school_dbns", err)
	}

	targets := NonNYC(dbns)
	report.Scanned = len(dbns)
	report.Targeted = len(targets)
	for _, dbn := range dbns {
		if geography.IsNYC5Borough(dbn) {
			report.Kept++
		}
	}
	batches := Batches(targets, c.batchSize)

	c.logger.Info("borough cleanup scan complete", map[string]interface{}{
		"scanned":   report.Scanned,
		"kept":      report.Kept,
		"targeted":  report.Targeted,
		"batches":   len(batches),
		"batchSize": c.batchSize,
		"dryRun":    dryRun,
	})

	if dryRun {
		report.Targets = targets
		report.FinishedAt = c.clock.Now()
		c.logger.Info("dry run, nothing deleted", map[string]interface{}{"targets": targets})
		return report, nil
	}

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return c.abort(ctx, report, i+1, err)
		}

		n, err := c.store.DeleteSchools(ctx, batch)
		if err != nil {
			metrics.CleanupBatches.WithLabelValues("failed").Inc()
			return c.abort(ctx, report, i+1, err)
		}

		report.Deleted += n
		report.Batches++
		metrics.CleanupBatches.WithLabelValues("deleted").Inc()
		metrics.CleanupSchoolsDeleted.Add(float64(n))

		c.logger.Info("deleted batch", map[string]interface{}{
			"batch":        i + 1,
			"of":           len(batches),
			"size":         len(batch),
			"deleted":      n,
			"totalDeleted": report.Deleted,
		})

		c.invalidate(ctx, batch)
	}

	report.FinishedAt = c.clock.Now()
	c.logger.Info("borough cleanup finished", map[string]interface{}{
		"deleted":  report.Deleted,
		"batches":  report.Batches,
		"kept":     report.Kept,
		"duration": report.Duration().String(),
	})
	c.notify(ctx, "Borough cleanup finished", summary(report, nil))

	return report, nil
}

func (c *Cleaner) abort(ctx context.Context, report Report, batch int, cause error) (Report, error) {
	report.FinishedAt = c.clock.Now()
	stdErr := apperrors.NewCleanupBatchFailedError(batch, int(report.Deleted), cause)

	c.logger.Error("borough cleanup aborted", map[string]interface{}{
		"batch":        batch,
		"deletedSoFar": report.Deleted,
		"error":        cause,
	})
	// The abort summary must go out even when ctx was the cause.
	c.notify(context.WithoutCancel(ctx), "Borough cleanup aborted", summary(report, stdErr))

	return report, stdErr
}

func (c *Cleaner) invalidate(ctx context.Context, batch []string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, batch); err != nil {
		c.logger.Warn("score cache invalidation failed", map[string]interface{}{
			"size":  len(batch),
			"error": err,
		})
	}
}

func (c *Cleaner) notify(ctx context.Context, subject, message string) {
	if c.notifier == nil {
		return
	}
	if _, err := c.notifier.Publish(ctx, subject, message); err != nil {
		c.logger.Warn("cleanup summary not published", map[string]interface{}{"error": err})
	}
}

func summary(r Report, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "scanned=%d kept=%d targeted=%d deleted=%d batches=%d duration=%s",
		r.Scanned, r.Kept, r.Targeted, r.Deleted, r.Batches, r.Duration())
	if err != nil {
		fmt.Fprintf(&b, "\nerror: %v", err)
	}
	return b.String()
}
