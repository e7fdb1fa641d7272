// Package consumers starts assessment jobs from schedule.* events
package consumers

import (
	"context"
	"fmt"

	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
)

// TriggerQueue is the queue bound to the schedule exchange
const TriggerQueue = "assessment-service.triggers"

// Triggerer runs a named job
type Triggerer interface {
	RunTrigger(ctx context.Context, kind service.TriggerKind, data service.TriggerData) (*service.TriggerResult, error)
}

var eventKinds = map[string]service.TriggerKind{
	messaging.EventScheduleDailyRisk:         service.TriggerDailyRiskScoring,
	messaging.EventScheduleWeeklyPerformance: service.TriggerWeeklyPerformanceScoring,
	messaging.EventScheduleFraudCheck:        service.TriggerVisitFraudDetection,
	messaging.EventSchedulePayroll:           service.TriggerPayrollGeneration,
}

// TriggerHandler maps schedule events to assessment jobs
type TriggerHandler struct {
	triggerer Triggerer
	logger    *logger.Logger
}

// NewTriggerHandler creates a handler that runs jobs through triggerer
func NewTriggerHandler(triggerer Triggerer, log *logger.Logger) *TriggerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TriggerHandler{triggerer: triggerer, logger: log.WithComponent("trigger-consumer")}
}

// TriggerConsumer consumes schedule events
type TriggerConsumer struct {
	consumer *messaging.Consumer
}

// NewTriggerConsumer declares the trigger queue, binds it to schedule.# and
// registers a handler per schedule event
func NewTriggerConsumer(rmq *messaging.RabbitMQ, triggerer Triggerer, log *logger.Logger) (*TriggerConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, TriggerQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeScheduleEvents, "schedule.#"); err != nil {
		return nil, err
	}

	h := NewTriggerHandler(triggerer, log)
	for eventType := range eventKinds {
		consumer.RegisterHandler(eventType, h.Handle)
	}

	return &TriggerConsumer{consumer: consumer}, nil
}

// Start starts consuming messages
func (c *TriggerConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Handle runs the job for one schedule event. Payloads that cannot be decoded
// and job errors no retry can fix are wrapped in messaging.ErrMalformed.
func (h *TriggerHandler) Handle(ctx context.Context, event *messaging.Event) error {
	kind, ok := eventKinds[event.Type]
	if !ok {
		return fmt.Errorf("%w: unsupported event type %s", messaging.ErrMalformed, event.Type)
	}

	data, err := decodeTrigger(event)
	if err != nil {
		return fmt.Errorf("%w: %v", messaging.ErrMalformed, err)
	}

	result, err := h.triggerer.RunTrigger(ctx, kind, data)
	if err != nil {
		// Retrying cannot fix bad parameters or a missing entity.
		if errors.Is(err, errors.ErrValidation) || errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrBadRequest) {
			return fmt.Errorf("%w: %v", messaging.ErrMalformed, err)
		}
		return err
	}

	h.logger.Info().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("omitted", result.Omitted).
		Msg("scheduled job finished")

	return nil
}

// decodeTrigger reads the payload of events that carry parameters; the
// batch scoring events carry none and their data is ignored.
func decodeTrigger(event *messaging.Event) (service.TriggerData, error) {
	switch event.Type {
	case messaging.EventSchedulePayroll:
		var p messaging.PayrollTrigger
		if err := event.UnmarshalData(&p); err != nil {
			return service.TriggerData{}, err
		}
		return service.TriggerData{OrganizationID: p.OrganizationID, PeriodStart: p.PeriodStart, PeriodEnd: p.PeriodEnd}, nil

	case messaging.EventScheduleFraudCheck:
		var p messaging.FraudCheckTrigger
		if err := event.UnmarshalData(&p); err != nil {
			return service.TriggerData{}, err
		}
		return service.TriggerData{OrganizationID: p.OrganizationID, VisitID: p.VisitID}, nil
	}
	return service.TriggerData{}, nil
}
