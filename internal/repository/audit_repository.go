package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

// AuditRepository persists audit trail entries for record mutations.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog stores an audit log entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	prepareAuditLog(log)
	const query = `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, old_values, new_values, reason, ip_address, user_agent, created_at)
VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :reason, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// MemoryAuditRepository keeps audit entries in process for the memory store driver.
type MemoryAuditRepository struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

// NewMemoryAuditRepository constructs an empty in-process audit trail.
func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

// CreateAuditLog appends an audit log entry.
func (r *MemoryAuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepareAuditLog(log)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

// Entries returns a copy of the recorded entries in insertion order.
func (r *MemoryAuditRepository) Entries() []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditLog(nil), r.entries...)
}

func prepareAuditLog(log *models.AuditLog) {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
}
