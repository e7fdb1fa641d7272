package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/internal/assessment/repository"
	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/careflow/careflow-backend/pkg/tenant"
)

type fakePatients struct {
	mu      sync.Mutex
	byID    map[string]*domain.Patient
	updates map[string]domain.RiskAssessmentResult
	orgs    map[string]string
}

func newFakePatients(patients ...*domain.Patient) *fakePatients {
	f := &fakePatients{
		byID:    map[string]*domain.Patient{},
		updates: map[string]domain.RiskAssessmentResult{},
		orgs:    map[string]string{},
	}
	for _, p := range patients {
		f.byID[p.ID] = p
	}
	return f
}

func (f *fakePatients) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := f.byID[id]
	if !ok || p.OrganizationID != orgID {
		return nil, errors.NotFound("patient")
	}
	return p, nil
}

func (f *fakePatients) ListActive(ctx context.Context, organizationID string) ([]*domain.Patient, error) {
	out := []*domain.Patient{}
	for _, p := range f.byID {
		if organizationID == "" || p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePatients) UpdateRisk(ctx context.Context, patientID string, result domain.RiskAssessmentResult, _ time.Time) error {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[patientID] = result
	f.orgs[patientID] = orgID
	return nil
}

type fakeCaregivers struct {
	mu      sync.Mutex
	byID    map[string]*domain.Caregiver
	updates map[string]repository.PerformanceUpdate
}

func newFakeCaregivers(caregivers ...*domain.Caregiver) *fakeCaregivers {
	f := &fakeCaregivers{
		byID:    map[string]*domain.Caregiver{},
		updates: map[string]repository.PerformanceUpdate{},
	}
	for _, c := range caregivers {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCaregivers) GetByID(ctx context.Context, id string) (*domain.Caregiver, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := f.byID[id]
	if !ok || c.OrganizationID != orgID {
		return nil, errors.NotFound("caregiver")
	}
	return c, nil
}

func (f *fakeCaregivers) HourlyRate(ctx context.Context, caregiverID string) (*float64, error) {
	c, err := f.GetByID(ctx, caregiverID)
	if err != nil {
		return nil, err
	}
	return c.HourlyRate, nil
}

func (f *fakeCaregivers) ListActive(ctx context.Context, organizationID string) ([]*domain.Caregiver, error) {
	out := []*domain.Caregiver{}
	for _, c := range f.byID {
		if organizationID == "" || c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCaregivers) UpdatePerformance(ctx context.Context, caregiverID string, u repository.PerformanceUpdate) error {
	if _, err := tenant.OrganizationID(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[caregiverID] = u
	return nil
}

type fakeVisits struct {
	mu     sync.Mutex
	visits []domain.VisitDetail
	flags  map[string]domain.FraudCheckResult
	// historyErr fails caregiver history reads
	historyErr error
}

func newFakeVisits(visits ...domain.VisitDetail) *fakeVisits {
	return &fakeVisits{visits: visits, flags: map[string]domain.FraudCheckResult{}}
}

func (f *fakeVisits) filter(ctx context.Context, keep func(v domain.VisitDetail) bool) ([]domain.VisitRecord, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.VisitRecord{}
	for _, v := range f.visits {
		if v.OrganizationID == orgID && keep(v) {
			out = append(out, v.VisitRecord)
		}
	}
	return out, nil
}

func (f *fakeVisits) RecentCompletedVisits(ctx context.Context, caregiverID string, limit int) ([]domain.VisitRecord, error) {
	out, err := f.filter(ctx, func(v domain.VisitDetail) bool {
		return v.CaregiverID == caregiverID && v.Status == domain.VisitCompleted
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.After(out[j].ScheduledStart) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeVisits) OverlappingVisits(ctx context.Context, caregiverID, excludeVisitID string, w domain.TimeWindow) ([]domain.VisitRecord, error) {
	return f.filter(ctx, func(v domain.VisitDetail) bool {
		return v.CaregiverID == caregiverID && v.ID != excludeVisitID &&
			v.ActualStart != nil && v.ActualEnd != nil &&
			v.ActualStart.Before(w.End) && v.ActualEnd.After(w.Start)
	})
}

func (f *fakeVisits) CompletedVisits(ctx context.Context, caregiverID string, start, end time.Time) ([]domain.VisitRecord, error) {
	return f.filter(ctx, func(v domain.VisitDetail) bool {
		return v.CaregiverID == caregiverID && v.Status == domain.VisitCompleted &&
			v.ActualStart != nil && v.ActualEnd != nil &&
			!v.ScheduledStart.Before(start) && !v.ScheduledStart.After(end)
	})
}

func (f *fakeVisits) GetByID(ctx context.Context, id string) (*domain.VisitDetail, error) {
	orgID, err := tenant.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range f.visits {
		if v.ID == id && v.OrganizationID == orgID {
			v := v
			return &v, nil
		}
	}
	return nil, errors.NotFound("visit")
}

func (f *fakeVisits) CountByPatientStatusSince(ctx context.Context, patientID string, status domain.VisitStatus, since time.Time) (int, error) {
	out, err := f.filter(ctx, func(v domain.VisitDetail) bool {
		return v.PatientID == patientID && v.Status == status && !v.ScheduledStart.Before(since)
	})
	return len(out), err
}

func (f *fakeVisits) ListByCaregiverSince(ctx context.Context, caregiverID string, since time.Time) ([]domain.VisitRecord, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.filter(ctx, func(v domain.VisitDetail) bool {
		return v.CaregiverID == caregiverID && !v.ScheduledStart.Before(since)
	})
}

func (f *fakeVisits) FlagFraud(ctx context.Context, visitID string, result domain.FraudCheckResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[visitID] = result
	return nil
}

type fakeIncidents struct {
	counts map[string]int
	errs   map[string]error
}

func (f *fakeIncidents) count(id string) (int, error) {
	if err := f.errs[id]; err != nil {
		return 0, err
	}
	return f.counts[id], nil
}

func (f *fakeIncidents) CountByPatientSince(_ context.Context, patientID string, _ time.Time) (int, error) {
	return f.count(patientID)
}

func (f *fakeIncidents) CountByCaregiverSince(_ context.Context, caregiverID string, _ time.Time) (int, error) {
	return f.count(caregiverID)
}

type fakePayroll struct {
	mu   sync.Mutex
	rows []*domain.PayrollRecord
}

func (f *fakePayroll) Create(_ context.Context, rec *domain.PayrollRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = "payroll-" + rec.CaregiverID
	rec.Status = domain.PayrollDraft
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakePayroll) ListRecent(_ context.Context, organizationID string, limit int) ([]*domain.PayrollRecord, error) {
	out := []*domain.PayrollRecord{}
	for _, r := range f.rows {
		if r.OrganizationID == organizationID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (f *fakeAudit) Create(_ context.Context, entry domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

// recordingTx counts transactions and fails them when err is set
type recordingTx struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (t *recordingTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	return fn(ctx)
}
