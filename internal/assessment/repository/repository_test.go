package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/tenant"
	"github.com/careflow/careflow-backend/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	orgID       = "3f1c2a9e-8a54-4c53-9d6a-0c1b2e3f4a5b"
	patientID   = "7d0f5e2c-1b4a-4e8f-9a3c-2d1e0f9b8c7a"
	caregiverID = "a2b3c4d5-e6f7-4a8b-9c0d-1e2f3a4b5c6d"
	visitID     = "c9d8e7f6-a5b4-4c3d-8e2f-1a0b9c8d7e6f"
)

func orgContext() context.Context {
	return tenant.WithOrganizationID(context.Background(), orgID)
}

// ============================================================================
// PATIENTS
// ============================================================================

func TestPatientRepository_GetByID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	dob := time.Date(1941, 5, 2, 0, 0, 0, 0, time.UTC)
	rows := testutil.MockRows("id", "organization_id", "date_of_birth", "medical_history",
		"medication_compliance", "mobility_level", "cognitive_status", "lives_alone",
		"latitude", "longitude").
		AddRow(patientID, orgID, dob, "{diabetes,\"heart disease\"}", 62.5, "assisted", nil, true, 40.7128, -74.006)

	mockDB.ExpectQuery("FROM patients WHERE id = $1 AND organization_id = $2").
		WithArgs(patientID, orgID).
		WillReturnRows(rows)

	patient, err := repo.GetByID(orgContext(), patientID)
	require.NoError(t, err)

	assert.Equal(t, patientID, patient.ID)
	assert.Equal(t, dob, patient.DateOfBirth)
	assert.Equal(t, []string{"diabetes", "heart disease"}, patient.MedicalHistory)
	require.NotNil(t, patient.MedicationCompliance)
	assert.Equal(t, 62.5, *patient.MedicationCompliance)
	require.NotNil(t, patient.MobilityLevel)
	assert.Equal(t, "assisted", *patient.MobilityLevel)
	assert.Nil(t, patient.CognitiveStatus)
	require.NotNil(t, patient.LivesAlone)
	assert.True(t, *patient.LivesAlone)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_GetByID_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	mockDB.ExpectQuery("FROM patients WHERE id = $1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(orgContext(), patientID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_RequiresOrganization(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	_, err := repo.GetByID(context.Background(), patientID)
	assert.ErrorIs(t, err, tenant.ErrNoOrganizationInContext)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_ListActive_AllOrganizations(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	rows := testutil.MockRows("id", "organization_id", "date_of_birth", "medical_history",
		"medication_compliance", "mobility_level", "cognitive_status", "lives_alone",
		"latitude", "longitude").
		AddRow(patientID, orgID, time.Now(), "{}", nil, nil, nil, nil, nil, nil).
		AddRow("p-2", "org-2", time.Now(), "{}", nil, nil, nil, nil, nil, nil)

	mockDB.ExpectQuery("WHERE status = 'active'").
		WithArgs("").
		WillReturnRows(rows)

	patients, err := repo.ListActive(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "org-2", patients[1].OrganizationID)
	assert.Empty(t, patients[0].MedicalHistory)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_UpdateRisk(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	result := domain.RiskAssessmentResult{
		RiskScore:       55,
		RiskLevel:       domain.RiskHigh,
		Factors:         []string{"Advanced age (85+)"},
		Recommendations: []string{"Increase visit frequency"},
	}
	assessedAt := time.Date(2026, 10, 1, 2, 0, 0, 0, time.UTC)

	mockDB.ExpectExec("UPDATE patients SET").
		WithArgs(patientID, orgID, 55, "high",
			pq.StringArray(result.Factors), pq.StringArray(result.Recommendations), assessedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateRisk(orgContext(), patientID, result, assessedAt)
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_UpdateRisk_NoRow(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	mockDB.ExpectExec("UPDATE patients SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateRisk(orgContext(), patientID, domain.RiskAssessmentResult{RiskLevel: domain.RiskLow}, time.Now())
	assert.ErrorIs(t, err, errors.ErrNotFound)
	mockDB.ExpectationsWereMet(t)
}

func TestPatientRepository_UpdateRisk_CheckViolation(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPatientRepository(mockDB.DB)

	mockDB.ExpectExec("UPDATE patients SET").
		WillReturnError(&pq.Error{Code: "23514", Constraint: "patients_risk_level_valid"})

	err := repo.UpdateRisk(orgContext(), patientID, domain.RiskAssessmentResult{RiskLevel: "extreme"}, time.Now())

	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Details, "risk_level")
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// CAREGIVERS
// ============================================================================

func TestCaregiverRepository_GetByID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewCaregiverRepository(mockDB.DB)

	rows := testutil.MockRows("id", "organization_id", "hourly_rate", "satisfaction_scores", "compliance_issues").
		AddRow(caregiverID, orgID, []byte("22.50"), "{4.5,4.8}", 1)

	mockDB.ExpectQuery("FROM caregivers WHERE id = $1 AND organization_id = $2").
		WithArgs(caregiverID, orgID).
		WillReturnRows(rows)

	caregiver, err := repo.GetByID(orgContext(), caregiverID)
	require.NoError(t, err)
	require.NotNil(t, caregiver.HourlyRate)
	assert.Equal(t, 22.5, *caregiver.HourlyRate)
	assert.Equal(t, []float64{4.5, 4.8}, caregiver.SatisfactionScores)
	assert.Equal(t, 1, caregiver.ComplianceIssues)
	mockDB.ExpectationsWereMet(t)
}

func TestCaregiverRepository_HourlyRate(t *testing.T) {
	t.Run("configured", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := repository.NewCaregiverRepository(mockDB.DB)

		mockDB.ExpectQuery("SELECT hourly_rate FROM caregivers").
			WithArgs(caregiverID, orgID).
			WillReturnRows(testutil.MockRows("hourly_rate").AddRow(20.0))

		rate, err := repo.HourlyRate(orgContext(), caregiverID)
		require.NoError(t, err)
		require.NotNil(t, rate)
		assert.Equal(t, 20.0, *rate)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("not configured", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := repository.NewCaregiverRepository(mockDB.DB)

		mockDB.ExpectQuery("SELECT hourly_rate FROM caregivers").
			WillReturnRows(testutil.MockRows("hourly_rate").AddRow(nil))

		rate, err := repo.HourlyRate(orgContext(), caregiverID)
		require.NoError(t, err)
		assert.Nil(t, rate)
		mockDB.ExpectationsWereMet(t)
	})

	t.Run("unknown caregiver", func(t *testing.T) {
		mockDB := testutil.NewMockDB(t)
		repo := repository.NewCaregiverRepository(mockDB.DB)

		mockDB.ExpectQuery("SELECT hourly_rate FROM caregivers").
			WillReturnRows(testutil.MockRows("hourly_rate"))

		_, err := repo.HourlyRate(orgContext(), caregiverID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		mockDB.ExpectationsWereMet(t)
	})
}

func TestCaregiverRepository_UpdatePerformance(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewCaregiverRepository(mockDB.DB)

	reviewed := time.Date(2026, 10, 5, 3, 0, 0, 0, time.UTC)
	mockDB.ExpectExec("UPDATE caregivers SET").
		WithArgs(caregiverID, orgID, 85, "B", 40, 95.0, reviewed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdatePerformance(orgContext(), caregiverID, repository.PerformanceUpdate{
		Score:            85,
		Grade:            domain.GradeB,
		TotalVisits:      40,
		OnTimePercentage: 95,
		ReviewedAt:       reviewed,
	})
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// VISITS
// ============================================================================

var visitRowColumns = []string{"id", "patient_id", "caregiver_id", "scheduled_start", "scheduled_end",
	"actual_start", "actual_end", "status"}

func TestVisitRepository_RecentCompletedVisits(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	start := time.Date(2026, 9, 30, 9, 0, 0, 0, time.UTC)
	rows := testutil.MockRows(visitRowColumns...).
		AddRow("v-2", patientID, caregiverID, start, start.Add(time.Hour), start, start.Add(55*time.Minute), "completed").
		AddRow("v-1", patientID, caregiverID, start.Add(-24*time.Hour), start.Add(-23*time.Hour), nil, nil, "completed")

	mockDB.ExpectQuery("status = 'completed' ORDER BY scheduled_start DESC LIMIT $3").
		WithArgs(orgID, caregiverID, 10).
		WillReturnRows(rows)

	visits, err := repo.RecentCompletedVisits(orgContext(), caregiverID, 10)
	require.NoError(t, err)
	require.Len(t, visits, 2)

	d, ok := visits[0].Duration()
	assert.True(t, ok)
	assert.Equal(t, 55*time.Minute, d)
	assert.Equal(t, domain.VisitCompleted, visits[0].Status)

	_, ok = visits[1].Duration()
	assert.False(t, ok)
	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_OverlappingVisits(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	window := domain.TimeWindow{
		Start: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
	}

	mockDB.ExpectQuery("AND actual_start < $5 AND actual_end > $4").
		WithArgs(orgID, caregiverID, visitID, window.Start, window.End).
		WillReturnRows(testutil.MockRows(visitRowColumns...))

	visits, err := repo.OverlappingVisits(orgContext(), caregiverID, visitID, window)
	require.NoError(t, err)
	assert.NotNil(t, visits)
	assert.Empty(t, visits)
	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_CompletedVisits(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC)

	mockDB.ExpectQuery("scheduled_start >= $3 AND scheduled_start <= $4").
		WithArgs(orgID, caregiverID, start, end).
		WillReturnRows(testutil.MockRows(visitRowColumns...).
			AddRow("v-1", patientID, caregiverID, start.Add(9*time.Hour), start.Add(10*time.Hour),
				start.Add(9*time.Hour), start.Add(16*time.Hour+30*time.Minute), "completed"))

	visits, err := repo.CompletedVisits(orgContext(), caregiverID, start, end)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	d, _ := visits[0].Duration()
	assert.Equal(t, 7.5, d.Hours())
	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_GetByID(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	columns := append(append([]string{}, visitRowColumns...), "organization_id", "check_in_latitude", "check_in_longitude")
	mockDB.ExpectQuery("FROM visits WHERE id = $1 AND organization_id = $2").
		WithArgs(visitID, orgID).
		WillReturnRows(testutil.MockRows(columns...).
			AddRow(visitID, patientID, caregiverID, start, start.Add(time.Hour), start, nil, "in_progress",
				orgID, 40.7128, -74.006))

	visit, err := repo.GetByID(orgContext(), visitID)
	require.NoError(t, err)
	assert.Equal(t, visitID, visit.ID)
	assert.Equal(t, domain.VisitInProgress, visit.Status)
	assert.Nil(t, visit.ActualEnd)
	require.NotNil(t, visit.CheckInLatitude)
	assert.Equal(t, 40.7128, *visit.CheckInLatitude)
	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_CountByPatientStatusSince(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	since := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT COUNT(*) FROM visits").
		WithArgs(orgID, patientID, "missed", since).
		WillReturnRows(testutil.MockRows("count").AddRow(3))

	count, err := repo.CountByPatientStatusSince(orgContext(), patientID, domain.VisitMissed, since)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	mockDB.ExpectationsWereMet(t)
}

func TestVisitRepository_FlagFraud(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewVisitRepository(mockDB.DB)

	result := domain.FraudCheckResult{
		IsSuspicious: true,
		Confidence:   60,
		Reasons:      []string{"Visit duration significantly shorter than average"},
	}
	mockDB.ExpectExec("UPDATE visits SET fraud_flagged = $3").
		WithArgs(visitID, orgID, true, 60, pq.StringArray(result.Reasons)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.FlagFraud(orgContext(), visitID, result))
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// INCIDENTS
// ============================================================================

func TestIncidentRepository_Counts(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewIncidentRepository(mockDB.DB)

	since := time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("AND patient_id = $2 AND occurred_at >= $3").
		WithArgs(orgID, patientID, since).
		WillReturnRows(testutil.MockRows("count").AddRow(2))
	mockDB.ExpectQuery("AND caregiver_id = $2 AND occurred_at >= $3").
		WithArgs(orgID, caregiverID, since).
		WillReturnRows(testutil.MockRows("count").AddRow(0))

	n, err := repo.CountByPatientSince(orgContext(), patientID, since)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountByCaregiverSince(orgContext(), caregiverID, since)
	require.NoError(t, err)
	assert.Zero(t, n)
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// PAYROLL
// ============================================================================

func samplePayroll() *domain.PayrollRecord {
	return &domain.PayrollRecord{
		OrganizationID: orgID,
		CaregiverID:    caregiverID,
		PeriodStart:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:      time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		TotalHours:     7.5,
		HourlyRate:     20,
		GrossPay:       150,
		FederalTax:     18,
		StateTax:       7.5,
		FICA:           11.48,
		Deductions:     36.98,
		NetPay:         113.02,
		Status:         domain.PayrollApproved,
	}
}

func TestPayrollRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPayrollRepository(mockDB.DB)

	created := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("INSERT INTO payroll").
		WithArgs(testutil.AnyUUID{}, orgID, caregiverID, testutil.AnyTime{}, testutil.AnyTime{},
			7.5, 20.0, 150.0, 18.0, 7.5, 11.48, 36.98, 113.02, "draft").
		WillReturnRows(testutil.MockRows("created_at").AddRow(created))

	rec := samplePayroll()
	require.NoError(t, repo.Create(context.Background(), rec))

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.PayrollDraft, rec.Status)
	assert.Equal(t, created, rec.CreatedAt)
	mockDB.ExpectationsWereMet(t)
}

func TestPayrollRepository_Create_DuplicatePeriod(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPayrollRepository(mockDB.DB)

	mockDB.ExpectQuery("INSERT INTO payroll").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "payroll_period"})

	err := repo.Create(context.Background(), samplePayroll())
	assert.ErrorIs(t, err, errors.ErrConflict)
	mockDB.ExpectationsWereMet(t)
}

func TestPayrollRepository_ListRecent(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewPayrollRepository(mockDB.DB)

	rec := samplePayroll()
	rows := testutil.MockRows("id", "organization_id", "caregiver_id", "period_start", "period_end",
		"total_hours", "hourly_rate", "gross_pay", "federal_tax", "state_tax", "fica",
		"deductions", "net_pay", "status", "created_at").
		AddRow("pr-1", orgID, caregiverID, rec.PeriodStart, rec.PeriodEnd,
			[]byte("7.50"), []byte("20.00"), []byte("150.00"), []byte("18.00"), []byte("7.50"), []byte("11.48"),
			[]byte("36.98"), []byte("113.02"), "draft", time.Now())

	mockDB.ExpectQuery("FROM payroll").
		WithArgs(orgID, repository.DefaultPayrollListLimit).
		WillReturnRows(rows)

	records, err := repo.ListRecent(context.Background(), orgID, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 113.02, records[0].NetPay)
	assert.Equal(t, domain.PayrollDraft, records[0].Status)
	mockDB.ExpectationsWereMet(t)
}

// ============================================================================
// AUDIT
// ============================================================================

func TestAuditRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	repo := repository.NewAuditRepository(mockDB.DB)

	mockDB.ExpectExec("INSERT INTO audit_logs").
		WithArgs(testutil.AnyUUID{}, orgID, "user-1", "RISK_ASSESSMENT", "patient", patientID,
			[]byte(`{"risk_level":"high","risk_score":55}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), domain.AuditEntry{
		OrganizationID: orgID,
		ActorID:        "user-1",
		Action:         domain.AuditRiskAssessment,
		Resource:       "patient",
		ResourceID:     patientID,
		Details:        map[string]any{"risk_score": 55, "risk_level": "high"},
	})
	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}
