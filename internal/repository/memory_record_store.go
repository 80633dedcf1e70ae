package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/tutor-admin-api/internal/models"
)

// MemoryRecordStore is an in-process persistence capability with the same
// version and delete semantics as RecordRepository. It backs local runs and tests.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[models.EntityType]map[int64]*models.Record
	now     func() time.Time
}

// NewMemoryRecordStore constructs an empty store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[models.EntityType]map[int64]*models.Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LoadSeedFile reads a JSON document keyed by entity type, each holding an array of rows.
func (s *MemoryRecordStore) LoadSeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed map[string][]map[string]interface{}
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed file: %w", err)
	}
	for key, rows := range seed {
		def, ok := models.LookupEntity(key)
		if !ok {
			return fmt.Errorf("seed file: unknown entity %q", key)
		}
		for i, row := range rows {
			if err := s.Seed(def, row); err != nil {
				return fmt.Errorf("seed %s[%d]: %w", key, i, err)
			}
		}
	}
	return nil
}

// Seed inserts or replaces a row at version 1.
func (s *MemoryRecordStore) Seed(def *models.EntityDefinition, row map[string]interface{}) error {
	now := s.now()
	fields := make(map[string]interface{}, len(def.Fields))
	for _, field := range def.Fields {
		value, err := seedValue(field, row[field.Name])
		if err != nil {
			return err
		}
		fields[field.Name] = value
	}
	id, ok := fields[models.PrimaryKey].(int64)
	if !ok || id < 1 {
		return fmt.Errorf("row requires a positive id")
	}
	for _, name := range []string{"created_at", "updated_at"} {
		if _, declared := def.Field(name); declared && fields[name] == nil {
			fields[name] = now
		}
	}
	record := &models.Record{ID: id, Fields: fields, Version: 1}
	if updatedAt, ok := fields["updated_at"].(time.Time); ok {
		record.UpdatedAt = updatedAt
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.records[def.Type]
	if table == nil {
		table = make(map[int64]*models.Record)
		s.records[def.Type] = table
	}
	table[id] = record
	return nil
}

// Ping always succeeds.
func (s *MemoryRecordStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Get fetches a single record by id.
func (s *MemoryRecordStore) Get(ctx context.Context, def *models.EntityDefinition, id int64) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[def.Type][id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := record.Clone()
	return &clone, nil
}

// List filters, searches, sorts and windows the entity rows.
func (s *MemoryRecordStore) List(ctx context.Context, plan models.QueryPlan) ([]models.Record, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	matched := make([]models.Record, 0, len(s.records[plan.Entity.Type]))
	for _, record := range s.records[plan.Entity.Type] {
		if matchesPlan(record, plan) {
			matched = append(matched, record.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		for _, key := range plan.Sort {
			cmp := compareValues(matched[i].Fields[key.Field], matched[j].Fields[key.Field])
			if cmp == 0 {
				continue
			}
			if key.Direction == models.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	total := len(matched)
	start := plan.Offset()
	if start < 0 || start >= total {
		return []models.Record{}, total, nil
	}
	end := start + plan.Limit()
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// Write applies patch and bumps the version, optionally guarded by expected.
func (s *MemoryRecordStore) Write(ctx context.Context, def *models.EntityDefinition, id int64, patch map[string]interface{}, expected *int64) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.guarded(def, id, expected)
	if err != nil {
		return nil, err
	}
	next := record.Clone()
	for key, value := range patch {
		next.Fields[key] = value
	}
	s.touch(&next)
	s.records[def.Type][id] = &next
	out := next.Clone()
	return &out, nil
}

// Delete applies the entity delete policy, optionally guarded by expected.
func (s *MemoryRecordStore) Delete(ctx context.Context, def *models.EntityDefinition, id int64, expected *int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.guarded(def, id, expected)
	if err != nil {
		return err
	}
	if !def.Delete.Soft {
		delete(s.records[def.Type], id)
		return nil
	}
	next := record.Clone()
	next.Fields[def.Delete.StatusField] = def.Delete.StatusValue
	s.touch(&next)
	s.records[def.Type][id] = &next
	return nil
}

// guarded must be called with the write lock held.
func (s *MemoryRecordStore) guarded(def *models.EntityDefinition, id int64, expected *int64) (*models.Record, error) {
	record, ok := s.records[def.Type][id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if expected != nil && record.Version != *expected {
		return nil, ErrVersionMismatch
	}
	return record, nil
}

func (s *MemoryRecordStore) touch(record *models.Record) {
	now := s.now()
	if !now.After(record.UpdatedAt) {
		now = record.UpdatedAt.Add(time.Microsecond)
	}
	record.Version++
	record.UpdatedAt = now
	record.Fields["updated_at"] = now
}

func matchesPlan(record *models.Record, plan models.QueryPlan) bool {
	for _, filter := range plan.Filters {
		if compareValues(record.Fields[filter.Field], filter.Value) != 0 || record.Fields[filter.Field] == nil {
			return false
		}
	}
	if plan.Search == "" || len(plan.SearchFields) == 0 {
		return true
	}
	term := strings.ToLower(plan.Search)
	for _, field := range plan.SearchFields {
		if value, ok := record.Fields[field].(string); ok && strings.Contains(strings.ToLower(value), term) {
			return true
		}
	}
	return false
}

// compareValues orders nil after every value, matching Postgres NULLS LAST for ascending sorts.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch av := a.(type) {
	case int64:
		if bv, ok := asFloat(b); ok {
			return compareFloat(float64(av), bv)
		}
	case float64:
		if bv, ok := asFloat(b); ok {
			return compareFloat(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func seedValue(field models.Field, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch field.Type {
	case models.FieldInt:
		if v, ok := value.(float64); ok && v == float64(int64(v)) {
			return int64(v), nil
		}
	case models.FieldNumber:
		if v, ok := value.(float64); ok {
			return v, nil
		}
	case models.FieldBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case models.FieldTime:
		if v, ok := value.(string); ok {
			parsed, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field.Name, err)
			}
			return parsed.UTC(), nil
		}
	default:
		if v, ok := value.(string); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("field %s: unexpected %T for %s", field.Name, value, field.Type)
}
