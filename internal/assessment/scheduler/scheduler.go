// Package scheduler starts the recurring batch jobs on cron schedules
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/config"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Disabled turns a job off when used as its expression. An empty expression
// does the same; Disabled exists because empty environment values are ignored.
const Disabled = "off"

// Triggerer runs a named job
type Triggerer interface {
	RunTrigger(ctx context.Context, kind service.TriggerKind, data service.TriggerData) (*service.TriggerResult, error)
}

// Scheduler runs the daily risk and weekly performance jobs
type Scheduler struct {
	cron      *cron.Cron
	triggerer Triggerer
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[service.TriggerKind]cron.EntryID
}

// New parses the configured five-field expressions and registers the jobs.
// It returns an error for an invalid expression.
func New(cfg config.SchedulerConfig, triggerer Triggerer, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("scheduler")

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:      c,
		triggerer: triggerer,
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      map[service.TriggerKind]cron.EntryID{},
	}

	if err := s.add(cfg.DailyRisk, service.TriggerDailyRiskScoring); err != nil {
		cancel()
		return nil, err
	}
	if err := s.add(cfg.WeeklyPerformance, service.TriggerWeeklyPerformanceScoring); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(expr string, kind service.TriggerKind) error {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, Disabled) {
		s.logger.Info().Str("job", string(kind)).Msg("scheduled job disabled")
		return nil
	}

	id, err := s.cron.AddFunc(expr, func() { s.run(kind) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", expr, kind, err)
	}
	s.jobs[kind] = id
	s.logger.Info().Str("job", string(kind)).Str("schedule", expr).Msg("scheduled job registered")
	return nil
}

func (s *Scheduler) run(kind service.TriggerKind) {
	log := s.logger.WithJob(string(kind))
	log.Info().Msg("scheduled job started")

	result, err := s.triggerer.RunTrigger(s.ctx, kind, service.TriggerData{})
	if err != nil {
		log.Error().Err(err).Msg("scheduled job failed")
		return
	}
	log.Info().Int("processed", result.Processed).Int("skipped", result.Skipped).Msg("scheduled job finished")
}

// Start begins firing jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out")
	}
}

// Next returns when a job fires next; ok is false for a disabled job
func (s *Scheduler) Next(kind service.TriggerKind) (time.Time, bool) {
	id, ok := s.jobs[kind]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Schedule.Next(time.Now().UTC()), true
}

// cronLogger routes cron's own messages to zerolog
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
