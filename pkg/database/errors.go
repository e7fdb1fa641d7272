package database

import (
	"strings"

	"github.com/careflow/careflow-backend/pkg/errors"
	"github.com/lib/pq"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	case "23514":
		return mapCheckConstraint(pqErr)

	case "23505":
		if strings.Contains(pqErr.Constraint, "payroll_period") {
			return errors.Conflict("a payroll row for this caregiver and period already exists")
		}
		return errors.Conflict("a record with these values already exists")

	case "23503":
		return errors.BadRequest("referenced record does not exist")

	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.ValidationField(col, "must not be empty")

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "risk_level_valid"):
		return errors.ValidationField("risk_level", "must be one of: low, medium, high, critical")
	case strings.Contains(constraint, "payroll_status_valid"):
		return errors.ValidationField("status", "must be one of: draft, approved, paid")
	case strings.Contains(constraint, "hourly_rate_positive"):
		return errors.ValidationField("hourly_rate", "must be positive")
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}
