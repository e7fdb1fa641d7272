// Package service assembles engine inputs from storage, runs the engines,
// persists results with an audit trail and publishes result events.
package service

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/batch"
	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/engine"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/metrics"
)

// Defaults for Options fields left zero
const (
	DefaultLookback  = 90 * 24 * time.Hour
	DefaultLateGrace = 15 * time.Minute
)

// PatientStore loads patients and stores risk results
type PatientStore interface {
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	ListActive(ctx context.Context, organizationID string) ([]*domain.Patient, error)
	UpdateRisk(ctx context.Context, patientID string, result domain.RiskAssessmentResult, assessedAt time.Time) error
}

// CaregiverStore loads caregivers and stores performance results
type CaregiverStore interface {
	engine.RateLookup
	GetByID(ctx context.Context, id string) (*domain.Caregiver, error)
	ListActive(ctx context.Context, organizationID string) ([]*domain.Caregiver, error)
	UpdatePerformance(ctx context.Context, caregiverID string, u repository.PerformanceUpdate) error
}

// VisitStore serves visit history and stores fraud verdicts
type VisitStore interface {
	engine.HistoryLookup
	engine.CompletedVisitLookup
	GetByID(ctx context.Context, id string) (*domain.VisitDetail, error)
	CountByPatientStatusSince(ctx context.Context, patientID string, status domain.VisitStatus, since time.Time) (int, error)
	ListByCaregiverSince(ctx context.Context, caregiverID string, since time.Time) ([]domain.VisitRecord, error)
	FlagFraud(ctx context.Context, visitID string, result domain.FraudCheckResult) error
}

// IncidentStore counts incidents
type IncidentStore interface {
	CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int, error)
	CountByCaregiverSince(ctx context.Context, caregiverID string, since time.Time) (int, error)
}

// PayrollStore persists payroll rows
type PayrollStore interface {
	Create(ctx context.Context, rec *domain.PayrollRecord) error
	ListRecent(ctx context.Context, organizationID string, limit int) ([]*domain.PayrollRecord, error)
}

// AuditStore writes audit entries
type AuditStore interface {
	Create(ctx context.Context, entry domain.AuditEntry) error
}

// EventPublisher publishes assessment results
type EventPublisher interface {
	PublishRiskAssessed(ctx context.Context, organizationID, patientID string, result domain.RiskAssessmentResult, advisory bool) error
	PublishPerformanceAssessed(ctx context.Context, organizationID, caregiverID string, result domain.PerformanceAssessmentResult) error
	PublishVisitFraudFlagged(ctx context.Context, organizationID string, visit domain.VisitRecord, result domain.FraudCheckResult) error
	PublishPayrollGenerated(ctx context.Context, organizationID string, start, end time.Time, generated, omitted, skipped int) error
}

// Transactor runs fn in a transaction; *database.DB satisfies it
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores groups the storage collaborators
type Stores struct {
	Patients   PatientStore
	Caregivers CaregiverStore
	Visits     VisitStore
	Incidents  IncidentStore
	Payroll    PayrollStore
	Audit      AuditStore
}

// Engines groups the assessment engines
type Engines struct {
	Risk        *engine.RiskEngine
	Performance *engine.PerformanceEngine
	Fraud       *engine.FraudDetector
	Payroll     *engine.PayrollCalculator
}

// Options tunes the service
type Options struct {
	// Lookback bounds the incident and visit history an assessment reads
	Lookback  time.Duration
	LateGrace time.Duration
	Now       func() time.Time
}

// AssessmentService runs single-entity and batch assessments
type AssessmentService struct {
	stores    Stores
	engines   Engines
	publisher EventPublisher
	runner    *batch.Runner
	tx        Transactor
	opts      Options
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// NewAssessmentService creates a new assessment service. tx may be nil, in
// which case writes are not grouped.
func NewAssessmentService(
	stores Stores,
	engines Engines,
	publisher EventPublisher,
	runner *batch.Runner,
	tx Transactor,
	opts Options,
	log *logger.Logger,
	m *metrics.Metrics,
) *AssessmentService {
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.LateGrace <= 0 {
		opts.LateGrace = DefaultLateGrace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	if runner == nil {
		runner = batch.NewRunner(batch.DefaultConcurrency, log, m)
	}

	return &AssessmentService{
		stores:    stores,
		engines:   engines,
		publisher: publisher,
		runner:    runner,
		tx:        tx,
		opts:      opts,
		logger:    log.WithComponent("assessment-service"),
		metrics:   m,
	}
}

func (s *AssessmentService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.Transaction(ctx, fn)
}

func (s *AssessmentService) now() time.Time {
	return s.opts.Now().UTC()
}

// lookupError keeps application errors such as a missing organization and
// reports any other history read failure as a failed lookup
func lookupError(lookup string, err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return errors.LookupFailure(lookup, err)
}
