package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/internal/repository"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

type recordStore interface {
	Get(ctx context.Context, def *models.EntityDefinition, id int64) (*models.Record, error)
	List(ctx context.Context, plan models.QueryPlan) ([]models.Record, int, error)
	Write(ctx context.Context, def *models.EntityDefinition, id int64, patch map[string]interface{}, expected *int64) (*models.Record, error)
	Delete(ctx context.Context, def *models.EntityDefinition, id int64, expected *int64) error
	Ping(ctx context.Context) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordServiceConfig tunes runtime behaviour.
type RecordServiceConfig struct {
	StoreTimeout time.Duration
	AuditEnabled bool
}

// RecordService is the gateway between transport and the persistence capability.
// Every mutation goes through a version check and issues a fresh token.
type RecordService struct {
	store     recordStore
	audit     auditLogger
	queries   *QueryBuilder
	codec     *VersionCodec
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       RecordServiceConfig
}

// NewRecordService constructs a RecordService.
func NewRecordService(store recordStore, audit auditLogger, queries *QueryBuilder, codec *VersionCodec, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg RecordServiceConfig) *RecordService {
	if validate == nil {
		validate = validator.New()
	}
	if queries == nil {
		queries = NewQueryBuilder(validate, QueryBuilderConfig{})
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{
		store:     store,
		audit:     audit,
		queries:   queries,
		codec:     codec,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Entity resolves an entity key.
func (s *RecordService) Entity(key string) (*models.EntityDefinition, error) {
	def, ok := models.LookupEntity(key)
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "unknown entity %q", key)
	}
	return def, nil
}

// Catalog describes every entity and its allow-lists.
func (s *RecordService) Catalog() []models.EntityDescription {
	defs := models.EntityDefinitions()
	out := make([]models.EntityDescription, len(defs))
	for i, def := range defs {
		out[i] = def.Describe()
	}
	return out
}

// Ping checks the persistence capability.
func (s *RecordService) Ping(ctx context.Context) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "record store unreachable")
	}
	return nil
}

// Get returns one record with its version token.
func (s *RecordService) Get(ctx context.Context, entity string, id int64) (*models.DetailResult, error) {
	def, err := s.Entity(entity)
	if err != nil {
		return nil, err
	}
	record, err := s.fetch(ctx, def, id)
	if err != nil {
		return nil, err
	}
	return s.detail(record)
}

// List returns a page of records matching params.
func (s *RecordService) List(ctx context.Context, entity string, params url.Values) (*models.ListResult, error) {
	def, err := s.Entity(entity)
	if err != nil {
		return nil, err
	}
	plan, err := s.queries.Build(def, params)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	start := time.Now()
	records, total, err := s.store.List(storeCtx, plan)
	s.metrics.ObserveStoreOperation(string(def.Type), "list", err, time.Since(start))
	if err != nil {
		return nil, s.storeError(err, def, 0, "failed to list records")
	}

	items := make([]map[string]interface{}, len(records))
	for i, record := range records {
		items[i] = record.Project(plan.Fields)
	}
	return &models.ListResult{Records: items, Meta: s.queries.Meta(plan, total)}, nil
}

// Update applies the writable part of patch if token still matches the stored record.
func (s *RecordService) Update(ctx context.Context, entity string, id int64, patch map[string]interface{}, token string, actor models.Actor) (*models.DetailResult, error) {
	def, err := s.Entity(entity)
	if err != nil {
		return nil, err
	}
	if def.RequiresVersion && token == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionRequired, "If-Match header with the record version is required")
	}
	current, err := s.fetch(ctx, def, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkToken(def, token, current); err != nil {
		return nil, err
	}

	changes, err := s.writablePatch(def, patch)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	start := time.Now()
	updated, err := s.store.Write(storeCtx, def, id, changes, &current.Version)
	s.metrics.ObserveStoreOperation(string(def.Type), "write", err, time.Since(start))
	if err != nil {
		return nil, s.storeError(err, def, id, "failed to update record")
	}

	s.emitAudit(ctx, actor, models.AuditActionRecordUpdate, def, &id, snapshot(current, changes), changes, nil)
	return s.detail(updated)
}

// Delete removes the record according to the entity delete policy if token still matches.
func (s *RecordService) Delete(ctx context.Context, entity string, id int64, token, reason string, actor models.Actor) error {
	def, err := s.Entity(entity)
	if err != nil {
		return err
	}
	if def.RequiresVersion && token == "" {
		return appErrors.Clone(appErrors.ErrPreconditionRequired, "If-Match header with the record version is required")
	}
	current, err := s.fetch(ctx, def, id)
	if err != nil {
		return err
	}
	if err := s.checkToken(def, token, current); err != nil {
		return err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	start := time.Now()
	err = s.store.Delete(storeCtx, def, id, &current.Version)
	s.metrics.ObserveStoreOperation(string(def.Type), "delete", err, time.Since(start))
	if err != nil {
		return s.storeError(err, def, id, "failed to delete record")
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	s.emitAudit(ctx, actor, models.AuditActionRecordDelete, def, &id, current.Fields, nil, reasonPtr)
	return nil
}

func (s *RecordService) fetch(ctx context.Context, def *models.EntityDefinition, id int64) (*models.Record, error) {
	if id < 1 {
		return nil, appErrors.Clonef(appErrors.ErrNotFound, "%s %d not found", def.Type, id)
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	start := time.Now()
	record, err := s.store.Get(storeCtx, def, id)
	s.metrics.ObserveStoreOperation(string(def.Type), "get", err, time.Since(start))
	if err != nil {
		return nil, s.storeError(err, def, id, "failed to load record")
	}
	return record, nil
}

func (s *RecordService) checkToken(def *models.EntityDefinition, token string, current *models.Record) error {
	if token == "" {
		return nil
	}
	if err := s.codec.Validate(token, current); err != nil {
		if errors.Is(err, appErrors.ErrVersionConflict) {
			s.metrics.RecordVersionConflict(string(def.Type))
		}
		return err
	}
	return nil
}

// writablePatch keeps writable keys, drops the rest and validates the kept values.
func (s *RecordService) writablePatch(def *models.EntityDefinition, patch map[string]interface{}) (map[string]interface{}, error) {
	changes := make(map[string]interface{}, len(patch))
	dropped := make([]string, 0)
	for key, value := range patch {
		if !def.IsWritable(key) {
			dropped = append(dropped, key)
			continue
		}
		field, _ := def.Field(key)
		coerced, err := coerceWriteValue(s.validator, field, value)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, err.Error())
		}
		changes[key] = coerced
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		s.logger.Debug("dropped non-writable fields", zap.String("entity", string(def.Type)), zap.Strings("fields", dropped))
	}
	return changes, nil
}

func (s *RecordService) detail(record *models.Record) (*models.DetailResult, error) {
	token, err := s.codec.Issue(record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue version token")
	}
	return &models.DetailResult{Record: record.Fields, Version: token, LastModified: record.UpdatedAt}, nil
}

func (s *RecordService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *RecordService) storeError(err error, def *models.EntityDefinition, id int64, message string) error {
	mapped := mapStoreError(err, def, id, message, s.metrics)
	if appErrors.IsServerError(mapped) {
		s.logger.Error(message, zap.String("entity", string(def.Type)), zap.Int64("id", id), zap.Error(err))
	}
	return mapped
}

func mapStoreError(err error, def *models.EntityDefinition, id int64, message string, metrics *MetricsService) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clonef(appErrors.ErrNotFound, "%s %d not found", def.Type, id)
	case errors.Is(err, repository.ErrVersionMismatch):
		metrics.RecordVersionConflict(string(def.Type))
		return appErrors.Clonef(appErrors.ErrVersionConflict, "%s %d was modified concurrently", def.Type, id)
	case repository.IsUnavailable(err):
		return appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}

func (s *RecordService) emitAudit(ctx context.Context, actor models.Actor, action string, def *models.EntityDefinition, id *int64, oldValues, newValues map[string]interface{}, reason *string) {
	if !s.cfg.AuditEnabled || s.audit == nil {
		return
	}
	var resourceID *string
	if id != nil {
		formatted := strconv.FormatInt(*id, 10)
		resourceID = &formatted
	}
	log := &models.AuditLog{
		UserID:     actorID(actor),
		Action:     action,
		Resource:   string(def.Type),
		ResourceID: resourceID,
		OldValues:  marshalAudit(oldValues),
		NewValues:  marshalAudit(newValues),
		Reason:     reason,
		IPAddress:  actor.IP,
		UserAgent:  actor.UserAgent,
	}
	if err := s.audit.CreateAuditLog(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.String("entity", string(def.Type)), zap.Error(err))
	}
}

func snapshot(record *models.Record, keys map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keys))
	for key := range keys {
		out[key] = record.Fields[key]
	}
	return out
}

func marshalAudit(values map[string]interface{}) []byte {
	if values == nil {
		return nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return payload
}

func actorID(actor models.Actor) *string {
	if actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}
