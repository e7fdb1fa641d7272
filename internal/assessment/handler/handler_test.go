package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/handler"
	"github.com/careflow/careflow-backend/internal/assessment/service"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/tenant"
	"github.com/careflow/careflow-backend/pkg/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	orgID       = "11111111-1111-1111-1111-111111111111"
	userID      = "22222222-2222-2222-2222-222222222222"
	patientID   = "33333333-3333-3333-3333-333333333333"
	caregiverID = "44444444-4444-4444-4444-444444444444"
	visitID     = "55555555-5555-5555-5555-555555555555"
	secret      = "s3cret"
)

type stubAssessor struct {
	err error

	gotOrg   string
	gotActor string
	gotID    string
	gotStart time.Time
	gotEnd   time.Time
	gotKind  service.TriggerKind
	gotData  service.TriggerData
	records  []*domain.PayrollRecord
}

func (s *stubAssessor) capture(ctx context.Context, id string) {
	s.gotOrg, _ = tenant.OrganizationID(ctx)
	s.gotActor = tenant.ActorID(ctx)
	s.gotID = id
}

func (s *stubAssessor) AssessPatientRisk(ctx context.Context, id string) (*service.RiskAssessment, error) {
	s.capture(ctx, id)
	if s.err != nil {
		return nil, s.err
	}
	return &service.RiskAssessment{
		PatientID: id,
		RiskAssessmentResult: domain.RiskAssessmentResult{
			RiskScore: 65,
			RiskLevel: domain.RiskHigh,
		},
		Path: "deterministic",
	}, nil
}

func (s *stubAssessor) AssessCaregiverPerformance(ctx context.Context, id string) (*service.PerformanceAssessment, error) {
	s.capture(ctx, id)
	if s.err != nil {
		return nil, s.err
	}
	return &service.PerformanceAssessment{CaregiverID: id}, nil
}

func (s *stubAssessor) CheckVisitFraud(ctx context.Context, id string) (*service.FraudCheck, error) {
	s.capture(ctx, id)
	if s.err != nil {
		return nil, s.err
	}
	return &service.FraudCheck{VisitID: id}, nil
}

func (s *stubAssessor) CalculatePayroll(ctx context.Context, id string, start, end time.Time) (*domain.PayrollPeriodCalculation, error) {
	s.capture(ctx, id)
	s.gotStart, s.gotEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	return &domain.PayrollPeriodCalculation{CaregiverID: id, PeriodStart: start, PeriodEnd: end, GrossPay: 150}, nil
}

func (s *stubAssessor) GeneratePayroll(ctx context.Context, org string, start, end time.Time) (*service.PayrollRun, error) {
	s.capture(ctx, org)
	s.gotStart, s.gotEnd = start, end
	if s.err != nil {
		return nil, s.err
	}
	return &service.PayrollRun{OrganizationID: org, PeriodStart: start, PeriodEnd: end, Count: 2}, nil
}

func (s *stubAssessor) ListPayroll(ctx context.Context, org string) ([]*domain.PayrollRecord, error) {
	s.capture(ctx, org)
	return s.records, s.err
}

func (s *stubAssessor) RunTrigger(ctx context.Context, kind service.TriggerKind, data service.TriggerData) (*service.TriggerResult, error) {
	s.gotKind, s.gotData = kind, data
	if s.err != nil {
		return nil, s.err
	}
	return &service.TriggerResult{Kind: kind, Processed: 3, Skipped: 1}, nil
}

func newRouter(t *testing.T, svc handler.Assessor) http.Handler {
	t.Helper()
	log := logger.Nop()
	r := chi.NewRouter()
	r.Use(httputil.RequestID)
	handler.Mount(r,
		handler.NewAssessmentHandler(svc, log),
		handler.NewWebhookHandler(svc, secret, log),
		prometheus.NewRegistry(),
	)
	return r
}

func orgRequest(method, path string, body interface{}) *http.Request {
	return testutil.WithOrganizationHeaders(testutil.NewHTTPRequest(method, path, body), orgID, userID)
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *httputil.ErrorBody    `json:"error"`
	Meta    *httputil.Meta         `json:"meta"`
}

func TestAssessRisk(t *testing.T) {
	svc := &stubAssessor{}
	rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/risk", map[string]string{"patient_id": patientID}))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.True(t, body.Success)
	assert.Equal(t, patientID, body.Data["patient_id"])
	assert.EqualValues(t, 65, body.Data["risk_score"])
	assert.Equal(t, "high", body.Data["risk_level"])

	assert.Equal(t, orgID, svc.gotOrg)
	assert.Equal(t, userID, svc.gotActor)
}

func TestAssessRisk_MissingOrganization(t *testing.T) {
	svc := &stubAssessor{}
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/assessments/risk", map[string]string{"patient_id": patientID})
	rr := testutil.ExecuteRequest(newRouter(t, svc), req)

	testutil.AssertStatus(t, rr, http.StatusForbidden)
	assert.Empty(t, svc.gotID)
}

func TestAssessRisk_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing id", map[string]string{}},
		{"not a uuid", map[string]string{"patient_id": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAssessor{}
			rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/risk", tt.body))

			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			var body envelope
			testutil.ParseJSONBody(t, rr, &body)
			require.NotNil(t, body.Error)
			assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
			assert.Contains(t, body.Error.Details, "PatientID")
			assert.Empty(t, svc.gotID)
		})
	}
}

func TestAssessRisk_MalformedJSON(t *testing.T) {
	req := testutil.NewHTTPRequest(http.MethodPost, "/api/v1/assessments/risk", nil)
	rr := testutil.ExecuteRequest(newRouter(t, &stubAssessor{}), testutil.WithOrganizationHeaders(req, orgID, ""))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestServiceErrorsUseEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NotFound("patient"), http.StatusNotFound, "NOT_FOUND"},
		{"lookup failure", errors.LookupFailure("visit history", context.DeadlineExceeded), http.StatusBadGateway, "LOOKUP_FAILURE"},
		{"configuration", errors.Configuration("caregiver has no hourly rate"), http.StatusUnprocessableEntity, "CONFIGURATION_ERROR"},
		{"plain error", assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAssessor{err: tt.err}
			rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/performance", map[string]string{"caregiver_id": caregiverID}))

			testutil.AssertStatus(t, rr, tt.status)
			var body envelope
			testutil.ParseJSONBody(t, rr, &body)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestCheckFraud(t *testing.T) {
	svc := &stubAssessor{}
	rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/fraud-checks", map[string]string{"visit_id": visitID}))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, visitID, svc.gotID)
}

func TestCalculatePayroll(t *testing.T) {
	svc := &stubAssessor{}
	rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/payroll/calculate", map[string]string{
		"caregiver_id": caregiverID,
		"period_start": "2024-03-01",
		"period_end":   "2024-03-15",
	}))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, caregiverID, svc.gotID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), svc.gotStart)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), svc.gotEnd)
}

func TestCalculatePayroll_InvalidPeriod(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		field string
	}{
		{"bad start format", "03/01/2024", "2024-03-15", "PeriodStart"},
		{"end before start", "2024-03-15", "2024-03-01", "period_end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAssessor{}
			rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/payroll/calculate", map[string]string{
				"caregiver_id": caregiverID,
				"period_start": tt.start,
				"period_end":   tt.end,
			}))

			testutil.AssertStatus(t, rr, http.StatusBadRequest)
			var body envelope
			testutil.ParseJSONBody(t, rr, &body)
			require.NotNil(t, body.Error)
			assert.Contains(t, body.Error.Details, tt.field)
			assert.Empty(t, svc.gotID)
		})
	}
}

func TestGeneratePayroll_UsesCallerOrganization(t *testing.T) {
	svc := &stubAssessor{}
	rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodPost, "/api/v1/assessments/payroll", map[string]string{
		"period_start": "2024-03-01",
		"period_end":   "2024-03-31",
	}))

	testutil.AssertStatus(t, rr, http.StatusCreated)
	assert.Equal(t, orgID, svc.gotID)

	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.EqualValues(t, 2, body.Data["count"])
}

func TestListPayroll(t *testing.T) {
	svc := &stubAssessor{records: []*domain.PayrollRecord{
		{ID: "p1", CaregiverID: caregiverID, Status: domain.PayrollDraft},
		{ID: "p2", CaregiverID: caregiverID, Status: domain.PayrollDraft},
	}}
	rr := testutil.ExecuteRequest(newRouter(t, svc), orgRequest(http.MethodGet, "/api/v1/assessments/payroll", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	var body struct {
		Data []domain.PayrollRecord `json:"data"`
		Meta httputil.Meta          `json:"meta"`
	}
	testutil.ParseJSONBody(t, rr, &body)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Meta.Total)
	assert.Equal(t, 50, body.Meta.Limit)
	assert.Equal(t, orgID, svc.gotOrg)
}

func TestWebhookTrigger(t *testing.T) {
	svc := &stubAssessor{}
	rr := testutil.ExecuteRequest(newRouter(t, svc), testutil.NewHTTPRequest(http.MethodPost, "/api/v1/webhooks/trigger", map[string]interface{}{
		"secret":     secret,
		"event_type": "payroll_generation",
		"data": map[string]string{
			"organization_id": orgID,
			"period_start":    "2024-03-01",
			"period_end":      "2024-03-31",
		},
	}))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, service.TriggerPayrollGeneration, svc.gotKind)
	assert.Equal(t, orgID, svc.gotData.OrganizationID)
	assert.Equal(t, "2024-03-31", svc.gotData.PeriodEnd)

	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "payroll_generation", body.Data["event_type"])
	assert.EqualValues(t, 3, body.Data["processed"])
}

func TestWebhookTrigger_ScoringRunsInBackground(t *testing.T) {
	svc := &stubAssessor{}
	webhooks := handler.NewWebhookHandler(svc, secret, logger.Nop())
	r := chi.NewRouter()
	handler.Mount(r, handler.NewAssessmentHandler(svc, logger.Nop()), webhooks, prometheus.NewRegistry())

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/webhooks/trigger", map[string]string{
		"secret":     secret,
		"event_type": "daily_risk_scoring",
	}))

	testutil.AssertStatus(t, rr, http.StatusAccepted)
	var body envelope
	testutil.ParseJSONBody(t, rr, &body)
	assert.Equal(t, "daily_risk_scoring", body.Data["event_type"])
	assert.Equal(t, "accepted", body.Data["status"])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, webhooks.Wait(ctx))
	assert.Equal(t, service.TriggerDailyRiskScoring, svc.gotKind)
}

func TestWebhookTrigger_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"wrong secret", map[string]interface{}{"secret": "nope", "event_type": "daily_risk_scoring"}, http.StatusUnauthorized},
		{"missing secret", map[string]interface{}{"event_type": "daily_risk_scoring"}, http.StatusUnauthorized},
		{"unknown event", map[string]interface{}{"secret": secret, "event_type": "monthly_cleanup"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAssessor{}
			rr := testutil.ExecuteRequest(newRouter(t, svc), testutil.NewHTTPRequest(http.MethodPost, "/api/v1/webhooks/trigger", tt.body))

			testutil.AssertStatus(t, rr, tt.status)
			assert.Empty(t, svc.gotKind)
		})
	}
}

func TestWebhookTrigger_EmptySecretRejectsAll(t *testing.T) {
	svc := &stubAssessor{}
	r := chi.NewRouter()
	handler.Mount(r,
		handler.NewAssessmentHandler(svc, logger.Nop()),
		handler.NewWebhookHandler(svc, "", logger.Nop()),
		prometheus.NewRegistry(),
	)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodPost, "/api/v1/webhooks/trigger", map[string]string{
		"secret":     "",
		"event_type": "daily_risk_scoring",
	}))

	testutil.AssertStatus(t, rr, http.StatusUnauthorized)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "careflow_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r := chi.NewRouter()
	svc := &stubAssessor{}
	handler.Mount(r, handler.NewAssessmentHandler(svc, logger.Nop()), handler.NewWebhookHandler(svc, secret, logger.Nop()), reg)

	rr := testutil.ExecuteRequest(r, testutil.NewHTTPRequest(http.MethodGet, "/metrics", nil))

	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.True(t, strings.Contains(rr.Body.String(), "careflow_test_total 1"))
}
