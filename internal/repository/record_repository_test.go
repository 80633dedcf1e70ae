package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

var accountColumns = []string{"id", "email", "full_name", "phone", "role", "status", "created_at", "updated_at", "version"}

func newRecordRepoMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewRecordRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func accountsDef(t *testing.T) *models.EntityDefinition {
	def, ok := models.LookupEntity("accounts")
	require.True(t, ok)
	return def
}

func TestRecordRepositoryGet(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	updated := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(accountColumns).
		AddRow(int64(7), "ana@example.com", "Ana", nil, "STUDENT", "ACTIVE", updated, updated, int64(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, phone, role, status, created_at, updated_at, version FROM accounts WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	record, err := repo.Get(context.Background(), accountsDef(t), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), record.ID)
	assert.Equal(t, int64(3), record.Version)
	assert.Equal(t, updated, record.UpdatedAt)
	assert.Equal(t, "Ana", record.Fields["full_name"])
	assert.Nil(t, record.Fields["phone"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryGetNotFound(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM accounts WHERE id").WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.Get(context.Background(), accountsDef(t), 9)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestRecordRepositoryListBuildsFilteredOrderedWindow(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	def := accountsDef(t)
	plan := models.QueryPlan{
		Entity:       def,
		Filters:      []models.FilterClause{{Field: "status", Value: "ACTIVE"}},
		Search:       "50%_off",
		SearchFields: []string{"email", "full_name"},
		Sort:         []models.SortKey{{Field: "email", Direction: models.SortDesc}, {Field: "id", Direction: models.SortDesc}},
		Page:         2,
		PageSize:     10,
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM accounts WHERE status = $1 AND (email ILIKE $2 ESCAPE '\' OR full_name ILIKE $2 ESCAPE '\')`)).
		WithArgs("ACTIVE", `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY email DESC, id DESC LIMIT 10 OFFSET 10")).
		WithArgs("ACTIVE", `%50\%\_off%`).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(11), "k@example.com", "K", "+6281", "STUDENT", "ACTIVE", now, now, int64(1)))

	records, total, err := repo.List(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, records, 1)
	assert.Equal(t, int64(11), records[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryListEmptySkipsSelect(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM accounts")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	records, total, err := repo.List(context.Background(), models.QueryPlan{
		Entity:   accountsDef(t),
		Sort:     []models.SortKey{{Field: "id", Direction: models.SortAsc}},
		Page:     1,
		PageSize: 20,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryWriteGuardedByVersion(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	expected := int64(3)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE accounts SET full_name = $2, status = $3, version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $4 RETURNING")).
		WithArgs(int64(7), "Ana B", "PENDING", int64(3)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(7), "ana@example.com", "Ana B", nil, "STUDENT", "PENDING", now, now, int64(4)))

	record, err := repo.Write(context.Background(), accountsDef(t), 7, map[string]interface{}{"status": "PENDING", "full_name": "Ana B"}, &expected)
	require.NoError(t, err)
	assert.Equal(t, int64(4), record.Version)
	assert.Equal(t, "PENDING", record.Fields["status"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryWriteVersionMismatch(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	expected := int64(2)
	mock.ExpectQuery("UPDATE accounts SET").
		WithArgs(int64(7), "Ana", int64(2)).
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.Write(context.Background(), accountsDef(t), 7, map[string]interface{}{"full_name": "Ana"}, &expected)
	assert.True(t, errors.Is(err, ErrVersionMismatch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUnguardedWriteMissing(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("UPDATE accounts SET status = \\$2, version = version \\+ 1, updated_at = NOW\\(\\) WHERE id = \\$1 RETURNING").
		WithArgs(int64(404), "ACTIVE").
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.Write(context.Background(), accountsDef(t), 404, map[string]interface{}{"status": "ACTIVE"}, nil)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositorySoftDelete(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	expected := int64(5)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1 AND version = $3")).
		WithArgs(int64(7), "SUSPENDED", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), accountsDef(t), 7, &expected))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryHardDeleteMissing(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	def, _ := models.LookupEntity("schedules")
	expected := int64(1)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules WHERE id = $1 AND version = $2")).
		WithArgs(int64(3), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Delete(context.Background(), def, 3, &expected)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeNumericColumn(t *testing.T) {
	def, _ := models.LookupEntity("instructor-profiles")
	field, ok := def.Field("hourly_rate")
	require.True(t, ok)

	value, err := normalizeColumn(field, []byte("125.50"))
	require.NoError(t, err)
	assert.Equal(t, 125.5, value)

	_, err = normalizeColumn(field, true)
	assert.Error(t, err)
}
