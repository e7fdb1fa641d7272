package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careflow/careflow-backend/internal/assessment/domain"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/google/uuid"
)

// AuditRepository writes audit log entries
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts an audit entry
func (r *AuditRepository) Create(ctx context.Context, entry domain.AuditEntry) error {
	var details []byte
	if entry.Details != nil {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, organization_id, actor_id, action, resource, resource_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		uuid.New().String(), entry.OrganizationID, entry.ActorID, string(entry.Action),
		entry.Resource, entry.ResourceID, details,
	)
	return mapError(err, "audit log")
}
