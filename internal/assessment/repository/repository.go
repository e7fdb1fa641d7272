// Package repository persists and loads the entities the assessment engines
// read and write. Every query is scoped to the organization carried by the
// request context unless an organization id is passed explicitly.
package repository

import (
	"database/sql"

	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// mapError turns driver errors into AppErrors: no rows becomes NotFound,
// constraint violations go through MapPQError, anything else is returned as is.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// requireAffected returns NotFound when an update touched no row
func requireAffected(result sql.Result, resource string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound(resource)
	}
	return nil
}
