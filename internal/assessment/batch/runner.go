// Package batch runs an assessment over many entities. A failing entity is
// recorded and skipped; it never stops its siblings.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// ErrOmit is returned by an entity function to leave the entity out of the
// results without counting it as a failure.
var ErrOmit = errors.New("entity omitted")

// ErrNotProcessed marks an entity the run never reached when no context
// error explains why
var ErrNotProcessed = errors.New("not processed")

// DefaultConcurrency is used when a Runner is built with a non-positive limit
const DefaultConcurrency = 8

// Skipped is an entity that failed or was never processed
type Skipped struct {
	EntityID string `json:"entity_id"`
	Err      error  `json:"-"`
	Reason   string `json:"reason"`
}

// Report is the outcome of one batch run. Results and Skipped follow the
// order of the input items.
type Report[R any] struct {
	Job       string        `json:"job"`
	Results   []R           `json:"results"`
	Skipped   []Skipped     `json:"skipped"`
	Omitted   int           `json:"omitted"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Total is the number of entities the run was given
func (r *Report[R]) Total() int {
	return len(r.Results) + len(r.Skipped) + r.Omitted
}

// Runner holds the shared settings of batch runs
type Runner struct {
	concurrency int
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// NewRunner creates a runner that processes at most concurrency entities at once
func NewRunner(concurrency int, log *logger.Logger, m *metrics.Metrics) *Runner {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{concurrency: concurrency, logger: log, metrics: m}
}

type outcome int

const (
	pending outcome = iota
	succeeded
	skipped
	omitted
)

type slot[R any] struct {
	outcome outcome
	result  R
	err     error
}

// Run applies fn to every item. Once ctx is done no further items are
// started; those items are reported as skipped with the context error.
func Run[T, R any](
	ctx context.Context,
	r *Runner,
	job string,
	items []T,
	idOf func(T) string,
	fn func(context.Context, T) (R, error),
) *Report[R] {
	started := time.Now()
	slots := make([]slot[R], len(items))

	// A plain Group: entity errors are kept in slots, never returned, so one
	// failure cannot cancel the rest.
	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			break
		}
		i, item := i, item
		g.Go(func() error {
			slots[i] = process(ctx, item, fn)
			return nil
		})
	}
	g.Wait()

	report := &Report[R]{Job: job, StartedAt: started, Results: []R{}, Skipped: []Skipped{}}
	log := r.logger.WithJob(job)

	for i, s := range slots {
		switch s.outcome {
		case succeeded:
			report.Results = append(report.Results, s.result)
		case omitted:
			report.Omitted++
		case skipped, pending:
			err := s.err
			if s.outcome == pending {
				err = ctx.Err()
			}
			if err == nil {
				err = ErrNotProcessed
			}
			id := idOf(items[i])
			report.Skipped = append(report.Skipped, Skipped{EntityID: id, Err: err, Reason: err.Error()})
			log.Error().Err(err).Str("entity_id", id).Msg("batch item skipped")
		}
	}
	report.Duration = time.Since(started)

	r.metrics.BatchItems(job, metrics.OutcomeSucceeded, len(report.Results))
	r.metrics.BatchItems(job, metrics.OutcomeSkipped, len(report.Skipped))
	r.metrics.BatchItems(job, metrics.OutcomeOmitted, report.Omitted)

	log.Info().
		Int("total", len(items)).
		Int("succeeded", len(report.Results)).
		Int("skipped", len(report.Skipped)).
		Int("omitted", report.Omitted).
		Dur("duration", report.Duration).
		Msg("batch run finished")

	return report
}

func process[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (s slot[R]) {
	if err := ctx.Err(); err != nil {
		return slot[R]{outcome: skipped, err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			s = slot[R]{outcome: skipped, err: fmt.Errorf("panic: %v", p)}
		}
	}()

	res, err := fn(ctx, item)
	switch {
	case errors.Is(err, ErrOmit):
		return slot[R]{outcome: omitted}
	case err != nil:
		return slot[R]{outcome: skipped, err: err}
	default:
		return slot[R]{outcome: succeeded, result: res}
	}
}
