package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// Assessor is the part of the assessment service the HTTP layer drives
type Assessor interface {
	AssessPatientRisk(ctx context.Context, patientID string) (*service.RiskAssessment, error)
	AssessCaregiverPerformance(ctx context.Context, caregiverID string) (*service.PerformanceAssessment, error)
	CheckVisitFraud(ctx context.Context, visitID string) (*service.FraudCheck, error)
	CalculatePayroll(ctx context.Context, caregiverID string, start, end time.Time) (*domain.PayrollPeriodCalculation, error)
	GeneratePayroll(ctx context.Context, organizationID string, start, end time.Time) (*service.PayrollRun, error)
	ListPayroll(ctx context.Context, organizationID string) ([]*domain.PayrollRecord, error)
	RunTrigger(ctx context.Context, kind service.TriggerKind, data service.TriggerData) (*service.TriggerResult, error)
}

// AssessmentHandler handles single-entity assessment and payroll endpoints
type AssessmentHandler struct {
	service Assessor
	logger  *logger.Logger
}

// NewAssessmentHandler creates a new assessment handler
func NewAssessmentHandler(svc Assessor, log *logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		service: svc,
		logger:  log,
	}
}

// ============================================================================
// REQUESTS
// ============================================================================

type riskRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
}

type performanceRequest struct {
	CaregiverID string `json:"caregiver_id" validate:"required,uuid"`
}

type fraudCheckRequest struct {
	VisitID string `json:"visit_id" validate:"required,uuid"`
}

type payrollPeriodRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

type payrollCalculateRequest struct {
	CaregiverID string `json:"caregiver_id" validate:"required,uuid"`
	payrollPeriodRequest
}

// ============================================================================
// ASSESSMENTS
// ============================================================================

// AssessRisk scores one patient and stores the result
func (h *AssessmentHandler) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req riskRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.AssessPatientRisk(r.Context(), req.PatientID)
	if err != nil {
		h.fail(w, r, err, "risk assessment failed")
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// AssessPerformance scores one caregiver and stores the result
func (h *AssessmentHandler) AssessPerformance(w http.ResponseWriter, r *http.Request) {
	var req performanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.AssessCaregiverPerformance(r.Context(), req.CaregiverID)
	if err != nil {
		h.fail(w, r, err, "performance assessment failed")
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// CheckFraud runs fraud detection against one visit
func (h *AssessmentHandler) CheckFraud(w http.ResponseWriter, r *http.Request) {
	var req fraudCheckRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.CheckVisitFraud(r.Context(), req.VisitID)
	if err != nil {
		h.fail(w, r, err, "fraud check failed")
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ============================================================================
// PAYROLL
// ============================================================================

// CalculatePayroll previews one caregiver's pay for a period
func (h *AssessmentHandler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req payrollCalculateRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, end, err := service.ParsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	calc, err := h.service.CalculatePayroll(r.Context(), req.CaregiverID, start, end)
	if err != nil {
		h.fail(w, r, err, "payroll calculation failed")
		return
	}

	httputil.JSON(w, http.StatusOK, calc)
}

// GeneratePayroll stores draft payroll for the caller's organization
func (h *AssessmentHandler) GeneratePayroll(w http.ResponseWriter, r *http.Request) {
	var req payrollPeriodRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, end, err := service.ParsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	orgID, err := tenant.OrganizationID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing organization context"))
		return
	}

	run, err := h.service.GeneratePayroll(r.Context(), orgID, start, end)
	if err != nil {
		h.fail(w, r, err, "payroll generation failed")
		return
	}

	httputil.Created(w, run)
}

// ListPayroll returns the organization's most recent payroll rows
func (h *AssessmentHandler) ListPayroll(w http.ResponseWriter, r *http.Request) {
	orgID, err := tenant.OrganizationID(r.Context())
	if err != nil {
		httputil.Error(w, errors.BadRequest("missing organization context"))
		return
	}

	records, err := h.service.ListPayroll(r.Context(), orgID)
	if err != nil {
		h.fail(w, r, err, "list payroll failed")
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, records, &httputil.Meta{
		Total: len(records),
		Limit: repository.DefaultPayrollListLimit,
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func (h *AssessmentHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.Error(w, err)
		return false
	}
	if err := httputil.Validate(v); err != nil {
		httputil.Error(w, err)
		return false
	}
	return true
}

// fail logs failures that surface as server errors; client errors are only returned
func (h *AssessmentHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) || appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.WithRequestID(httputil.GetRequestID(r.Context())).Error().Err(err).Msg(msg)
	}
	httputil.Error(w, err)
}
