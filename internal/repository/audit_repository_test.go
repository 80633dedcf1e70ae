package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	defer sqlxDB.Close()

	reason := "duplicate account"
	resourceID := "7"
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), nil, models.AuditActionRecordDelete, "accounts", &resourceID, sqlmock.AnyArg(), sqlmock.AnyArg(), &reason, "10.0.0.1", "curl", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{
		Action:     models.AuditActionRecordDelete,
		Resource:   "accounts",
		ResourceID: &resourceID,
		Reason:     &reason,
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl",
	}
	require.NoError(t, NewAuditRepository(sqlxDB).CreateAuditLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryAuditRepositoryKeepsOrder(t *testing.T) {
	repo := NewMemoryAuditRepository()
	require.NoError(t, repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionRecordUpdate}))
	require.NoError(t, repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: models.AuditActionBulkUpdate}))

	entries := repo.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionRecordUpdate, entries[0].Action)
	assert.Equal(t, models.AuditActionBulkUpdate, entries[1].Action)
}
