package service

import (
	"context"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/batch"
	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/metrics"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

// Values assumed for clinical fields a patient record does not carry
const (
	defaultMedicationCompliance = 80.0
	defaultMobility             = domain.MobilityIndependent
	defaultCognitive            = domain.CognitiveAlert
)

// RiskAssessment is a stored patient risk assessment
type RiskAssessment struct {
	PatientID string `json:"patient_id"`
	domain.RiskAssessmentResult
	Path       string    `json:"path"`
	AssessedAt time.Time `json:"assessed_at"`
}

// AssessPatientRisk scores one patient of the current organization
func (s *AssessmentService) AssessPatientRisk(ctx context.Context, patientID string) (*RiskAssessment, error) {
	patient, err := s.stores.Patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.assessPatient(ctx, patient)
}

// RunDailyRiskScoring scores every active patient of every organization
func (s *AssessmentService) RunDailyRiskScoring(ctx context.Context) (*batch.Report[*RiskAssessment], error) {
	patients, err := s.stores.Patients.ListActive(ctx, "")
	if err != nil {
		return nil, err
	}

	return batch.Run(ctx, s.runner, "daily_risk_scoring", patients,
		func(p *domain.Patient) string { return p.ID },
		func(ctx context.Context, p *domain.Patient) (*RiskAssessment, error) {
			return s.assessPatient(tenant.WithOrganizationID(ctx, p.OrganizationID), p)
		},
	), nil
}

func (s *AssessmentService) assessPatient(ctx context.Context, patient *domain.Patient) (*RiskAssessment, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	in, err := s.riskInput(ctx, patient, now)
	if err != nil {
		return nil, err
	}

	outcome := s.engines.Risk.Evaluate(ctx, in)
	result := outcome.Result

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Patients.UpdateRisk(ctx, patient.ID, result, now); err != nil {
			return err
		}
		return s.stores.Audit.Create(ctx, domain.AuditEntry{
			OrganizationID: orgID,
			ActorID:        tenant.ActorID(ctx),
			Action:         domain.AuditRiskAssessment,
			Resource:       "patient",
			ResourceID:     patient.ID,
			Details: map[string]any{
				"risk_score": result.RiskScore,
				"risk_level": result.RiskLevel,
				"path":       outcome.Path,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	advisory := outcome.Path == metrics.PathAdvisory
	if err := s.publisher.PublishRiskAssessed(ctx, orgID, patient.ID, result, advisory); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", patient.ID).
		Int("risk_score", result.RiskScore).
		Str("risk_level", string(result.RiskLevel)).
		Str("path", outcome.Path).
		Msg("patient risk assessed")

	return &RiskAssessment{
		PatientID:            patient.ID,
		RiskAssessmentResult: result,
		Path:                 outcome.Path,
		AssessedAt:           now,
	}, nil
}

func (s *AssessmentService) riskInput(ctx context.Context, p *domain.Patient, now time.Time) (domain.RiskAssessmentInput, error) {
	since := now.Add(-s.opts.Lookback)

	incidents, err := s.stores.Incidents.CountByPatientSince(ctx, p.ID, since)
	if err != nil {
		return domain.RiskAssessmentInput{}, lookupError("patient incident history", err)
	}
	missed, err := s.stores.Visits.CountByPatientStatusSince(ctx, p.ID, domain.VisitMissed, since)
	if err != nil {
		return domain.RiskAssessmentInput{}, lookupError("missed visit history", err)
	}

	in := domain.RiskAssessmentInput{
		PatientID:            p.ID,
		Age:                  p.AgeAt(now),
		MedicalHistory:       append([]string{}, p.MedicalHistory...),
		RecentIncidents:      incidents,
		MissedVisits:         missed,
		MedicationCompliance: defaultMedicationCompliance,
		MobilityLevel:        defaultMobility,
		CognitiveStatus:      defaultCognitive,
	}
	if p.MedicationCompliance != nil {
		in.MedicationCompliance = *p.MedicationCompliance
	}
	if p.MobilityLevel != nil {
		in.MobilityLevel = domain.MobilityLevel(*p.MobilityLevel)
	}
	if p.CognitiveStatus != nil {
		in.CognitiveStatus = domain.CognitiveStatus(*p.CognitiveStatus)
	}
	if p.LivesAlone != nil {
		in.LivingAlone = *p.LivesAlone
	}

	if err := in.Validate(); err != nil {
		return domain.RiskAssessmentInput{}, err
	}
	return in, nil
}
