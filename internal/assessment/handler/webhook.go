package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
)

// WebhookHandler lets an external scheduler start batch jobs over HTTP
type WebhookHandler struct {
	service Assessor
	secret  []byte
	logger  *logger.Logger
	jobs    sync.WaitGroup
}

// NewWebhookHandler creates a webhook handler that accepts calls carrying secret.
// An empty secret rejects every call.
func NewWebhookHandler(svc Assessor, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: svc,
		secret:  []byte(secret),
		logger:  log.WithComponent("webhook"),
	}
}

type triggerRequest struct {
	Secret    string              `json:"secret" validate:"required"`
	EventType string              `json:"event_type" validate:"required,oneof=daily_risk_scoring weekly_performance_scoring visit_fraud_detection payroll_generation"`
	Data      service.TriggerData `json:"data"`
}

// Trigger runs the job named by event_type. The all-organization scoring
// runs outlive the request: they are started in the background and answered
// with 202. Fraud checks and payroll runs answer with their summary.
func (h *WebhookHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if !h.authorized(req.Secret) {
		h.logger.Warn().
			Str("request_id", httputil.GetRequestID(r.Context())).
			Str("event_type", req.EventType).
			Msg("webhook secret mismatch")
		httputil.Error(w, errors.Unauthorized("invalid webhook secret"))
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	kind := service.TriggerKind(req.EventType)
	if background(kind) {
		h.jobs.Add(1)
		go func() {
			defer h.jobs.Done()
			h.run(context.WithoutCancel(r.Context()), kind, req.Data)
		}()
		httputil.Accepted(w, map[string]string{
			"event_type": req.EventType,
			"status":     "accepted",
		})
		return
	}

	result, err := h.run(r.Context(), kind, req.Data)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, result)
}

// Wait blocks until background runs finish or ctx is done
func (h *WebhookHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WebhookHandler) run(ctx context.Context, kind service.TriggerKind, data service.TriggerData) (*service.TriggerResult, error) {
	result, err := h.service.RunTrigger(ctx, kind, data)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(kind)).Msg("webhook trigger failed")
		return nil, err
	}

	h.logger.Info().
		Str("event_type", string(kind)).
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("omitted", result.Omitted).
		Msg("webhook trigger completed")
	return result, nil
}

func background(kind service.TriggerKind) bool {
	return kind == service.TriggerDailyRiskScoring || kind == service.TriggerWeeklyPerformanceScoring
}

func (h *WebhookHandler) authorized(secret string) bool {
	if len(h.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), h.secret) == 1
}
