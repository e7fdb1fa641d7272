package domain

import (
	"time"

	"github.com/careflow/careflow-backend/pkg/errors"
)

// VisitStatus is the lifecycle state of a care visit
type VisitStatus string

const (
	VisitScheduled  VisitStatus = "scheduled"
	VisitInProgress VisitStatus = "in_progress"
	VisitCompleted  VisitStatus = "completed"
	VisitMissed     VisitStatus = "missed"
	VisitCancelled  VisitStatus = "cancelled"
)

// VisitRecord is a historical visit as returned by the storage lookups
type VisitRecord struct {
	ID             string      `json:"id" db:"id"`
	PatientID      string      `json:"patient_id" db:"patient_id"`
	CaregiverID    string      `json:"caregiver_id" db:"caregiver_id"`
	ScheduledStart time.Time   `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   time.Time   `json:"scheduled_end" db:"scheduled_end"`
	ActualStart    *time.Time  `json:"actual_start,omitempty" db:"actual_start"`
	ActualEnd      *time.Time  `json:"actual_end,omitempty" db:"actual_end"`
	Status         VisitStatus `json:"status" db:"status"`
}

// Duration returns actual end minus actual start; ok is false unless both are recorded
func (v VisitRecord) Duration() (time.Duration, bool) {
	return actualDuration(v.ActualStart, v.ActualEnd)
}

func actualDuration(start, end *time.Time) (time.Duration, bool) {
	if start == nil || end == nil {
		return 0, false
	}
	return end.Sub(*start), true
}

// TimeWindow is a closed interval of time
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate rejects windows whose end precedes their start
func (w TimeWindow) Validate(field string) error {
	if w.End.Before(w.Start) {
		return errors.ValidationField(field, "end must not precede start")
	}
	return nil
}
