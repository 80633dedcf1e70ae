package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

const versionColumn = "version"

// RecordRepository is the Postgres persistence capability for every catalog entity.
// Column and table names come from the entity catalog; values are always bound.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Ping checks database connectivity.
func (r *RecordRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get fetches a single record by id.
func (r *RecordRepository) Get(ctx context.Context, def *models.EntityDefinition, id int64) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectColumns(def), def.Table)
	row := r.db.QueryRowxContext(ctx, query, id)
	record, err := scanRecord(def, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get %s: %w", def.Type, err)
	}
	return record, nil
}

// List returns the page window described by the plan and the total number of matches.
func (r *RecordRepository) List(ctx context.Context, plan models.QueryPlan) ([]models.Record, int, error) {
	def := plan.Entity
	where, args := buildWhere(plan)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", def.Table, where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", def.Type, err)
	}
	if total == 0 {
		return []models.Record{}, 0, nil
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM %s", selectColumns(def), def.Table))
	builder.WriteString(where)
	builder.WriteString(" ORDER BY ")
	builder.WriteString(orderBy(plan.Sort))
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", plan.Limit(), plan.Offset()))

	rows, err := r.db.QueryxContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", def.Type, err)
	}
	defer rows.Close()

	records := make([]models.Record, 0, plan.Limit())
	for rows.Next() {
		record, err := scanRecord(def, rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", def.Type, err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", def.Type, err)
	}
	return records, total, nil
}

// Write applies patch to the row and bumps its version. When expected is not nil
// the row is only written if its version still equals *expected.
func (r *RecordRepository) Write(ctx context.Context, def *models.EntityDefinition, id int64, patch map[string]interface{}, expected *int64) (*models.Record, error) {
	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	args := []interface{}{id}
	sets := make([]string, 0, len(keys)+2)
	for _, key := range keys {
		args = append(args, patch[key])
		sets = append(sets, fmt.Sprintf("%s = $%d", key, len(args)))
	}
	sets = append(sets, "version = version + 1", "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", def.Table, strings.Join(sets, ", "))
	if expected != nil {
		args = append(args, *expected)
		query += fmt.Sprintf(" AND version = $%d", len(args))
	}
	query += " RETURNING " + selectColumns(def)

	record, err := scanRecord(def, r.db.QueryRowxContext(ctx, query, args...))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("write %s: %w", def.Type, err)
	}
	return nil, r.missReason(ctx, def, id, expected)
}

// Delete applies the entity delete policy guarded by the expected version.
func (r *RecordRepository) Delete(ctx context.Context, def *models.EntityDefinition, id int64, expected *int64) error {
	var (
		query string
		args  []interface{}
	)
	if def.Delete.Soft {
		query = fmt.Sprintf("UPDATE %s SET %s = $2, version = version + 1, updated_at = NOW() WHERE id = $1", def.Table, def.Delete.StatusField)
		args = []interface{}{id, def.Delete.StatusValue}
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = $1", def.Table)
		args = []interface{}{id}
	}
	if expected != nil {
		args = append(args, *expected)
		query += fmt.Sprintf(" AND version = $%d", len(args))
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", def.Type, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s delete rows: %w", def.Type, err)
	}
	if affected == 0 {
		return r.missReason(ctx, def, id, expected)
	}
	return nil
}

// missReason tells a missing row apart from a version mismatch after a guarded statement matched nothing.
func (r *RecordRepository) missReason(ctx context.Context, def *models.EntityDefinition, id int64, expected *int64) error {
	if expected == nil {
		return sql.ErrNoRows
	}
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", def.Table)
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return fmt.Errorf("check %s existence: %w", def.Type, err)
	}
	if exists {
		return ErrVersionMismatch
	}
	return sql.ErrNoRows
}

func selectColumns(def *models.EntityDefinition) string {
	return strings.Join(append(def.FieldNames(), versionColumn), ", ")
}

func buildWhere(plan models.QueryPlan) (string, []interface{}) {
	args := make([]interface{}, 0, len(plan.Filters)+1)
	conditions := make([]string, 0, len(plan.Filters)+1)
	for _, filter := range plan.Filters {
		args = append(args, filter.Value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", filter.Field, len(args)))
	}
	if plan.Search != "" && len(plan.SearchFields) > 0 {
		args = append(args, "%"+escapeLike(plan.Search)+"%")
		placeholder := len(args)
		ors := make([]string, len(plan.SearchFields))
		for i, field := range plan.SearchFields {
			ors[i] = fmt.Sprintf("%s ILIKE $%d ESCAPE '\\'", field, placeholder)
		}
		conditions = append(conditions, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func orderBy(keys []models.SortKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		direction := "ASC"
		if key.Direction == models.SortDesc {
			direction = "DESC"
		}
		parts[i] = key.Field + " " + direction
	}
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

type mapScanner interface {
	MapScan(dest map[string]interface{}) error
}

func scanRecord(def *models.EntityDefinition, row mapScanner) (*models.Record, error) {
	raw := make(map[string]interface{}, len(def.Fields)+1)
	if err := row.MapScan(raw); err != nil {
		return nil, err
	}
	record := &models.Record{Fields: make(map[string]interface{}, len(def.Fields))}
	for _, field := range def.Fields {
		value, err := normalizeColumn(field, raw[field.Name])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", field.Name, err)
		}
		record.Fields[field.Name] = value
	}
	id, ok := record.Fields[models.PrimaryKey].(int64)
	if !ok {
		return nil, fmt.Errorf("column id: unexpected type %T", record.Fields[models.PrimaryKey])
	}
	record.ID = id
	version, err := toInt64(raw[versionColumn])
	if err != nil {
		return nil, fmt.Errorf("column version: %w", err)
	}
	record.Version = version
	if updatedAt, ok := record.Fields["updated_at"].(time.Time); ok {
		record.UpdatedAt = updatedAt
	}
	return record, nil
}

// normalizeColumn converts driver values into the types the rest of the service compares and encodes.
func normalizeColumn(field models.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch field.Type {
	case models.FieldInt:
		return toInt64(value)
	case models.FieldNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case string:
			return strconv.ParseFloat(v, 64)
		}
	case models.FieldBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case models.FieldTime:
		if v, ok := value.(time.Time); ok {
			return v.UTC(), nil
		}
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for %s field", value, field.Type)
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, fmt.Errorf("unexpected %T for integer", value)
}
