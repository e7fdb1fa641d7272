// Package events publishes assessment results to the assessment.events exchange
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
)

// Publisher is the transport the events are sent through
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// AssessmentEventPublisher publishes assessment result events
type AssessmentEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewAssessmentEventPublisher declares the exchange and returns a publisher on it
func NewAssessmentEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*AssessmentEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeAssessmentEvents, "assessment-service", log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps an existing transport
func New(publisher Publisher, log *logger.Logger) *AssessmentEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &AssessmentEventPublisher{publisher: publisher, logger: log}
}

func (p *AssessmentEventPublisher) publish(ctx context.Context, eventType string, data interface{}) error {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

// PublishRiskAssessed publishes a stored risk assessment
func (p *AssessmentEventPublisher) PublishRiskAssessed(ctx context.Context, organizationID, patientID string, result domain.RiskAssessmentResult, advisory bool) error {
	return p.publish(ctx, messaging.EventRiskAssessed, messaging.RiskAssessedEvent{
		OrganizationID: organizationID,
		PatientID:      patientID,
		RiskScore:      result.RiskScore,
		RiskLevel:      string(result.RiskLevel),
		Factors:        result.Factors,
		Advisory:       advisory,
	})
}

// PublishPerformanceAssessed publishes a stored performance assessment
func (p *AssessmentEventPublisher) PublishPerformanceAssessed(ctx context.Context, organizationID, caregiverID string, result domain.PerformanceAssessmentResult) error {
	return p.publish(ctx, messaging.EventPerformanceAssessed, messaging.PerformanceAssessedEvent{
		OrganizationID:   organizationID,
		CaregiverID:      caregiverID,
		PerformanceScore: result.PerformanceScore,
		Grade:            string(result.Grade),
	})
}

// PublishVisitFraudFlagged publishes a suspicious fraud verdict. Verdicts
// below the suspicion threshold are not published.
func (p *AssessmentEventPublisher) PublishVisitFraudFlagged(ctx context.Context, organizationID string, visit domain.VisitRecord, result domain.FraudCheckResult) error {
	if !result.IsSuspicious {
		return nil
	}
	return p.publish(ctx, messaging.EventVisitFraudFlagged, messaging.VisitFraudFlaggedEvent{
		OrganizationID: organizationID,
		VisitID:        visit.ID,
		CaregiverID:    visit.CaregiverID,
		Confidence:     result.Confidence,
		Reasons:        result.Reasons,
	})
}

// PublishPayrollGenerated summarizes a payroll generation run
func (p *AssessmentEventPublisher) PublishPayrollGenerated(ctx context.Context, organizationID string, start, end time.Time, generated, omitted, skipped int) error {
	return p.publish(ctx, messaging.EventPayrollGenerated, messaging.PayrollGeneratedEvent{
		OrganizationID: organizationID,
		PeriodStart:    start,
		PeriodEnd:      end,
		Generated:      generated,
		Omitted:        omitted,
		Skipped:        skipped,
	})
}
