package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/internal/dto"
	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

type bulkWriter interface {
	Write(ctx context.Context, def *models.EntityDefinition, id int64, patch map[string]interface{}, expected *int64) (*models.Record, error)
}

// BulkServiceConfig tunes bulk limits.
type BulkServiceConfig struct {
	MaxIDs       int
	StoreTimeout time.Duration
	AuditEnabled bool
}

// BulkService applies one field change to many records with per-record outcomes.
// Writes are not version checked and are never rolled back.
type BulkService struct {
	store     bulkWriter
	audit     auditLogger
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       BulkServiceConfig
}

// NewBulkService constructs a BulkService.
func NewBulkService(store bulkWriter, audit auditLogger, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger, cfg BulkServiceConfig) *BulkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIDs <= 0 {
		cfg.MaxIDs = 100
	}
	return &BulkService{
		store:     store,
		audit:     audit,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Validate checks the whole request before anything is written.
func (s *BulkService) Validate(req dto.BulkUpdateRequest) (*models.BulkMutation, error) {
	def, ok := models.LookupEntity(req.Entity)
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrBulkRequest, "unknown entity %q", req.Entity)
	}
	if len(req.IDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrBulkRequest, "ids must not be empty")
	}
	if len(req.IDs) > s.cfg.MaxIDs {
		return nil, appErrors.Clonef(appErrors.ErrBulkRequest, "at most %d ids may be updated at once, got %d", s.cfg.MaxIDs, len(req.IDs))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk update payload")
	}
	seen := make(map[int64]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clonef(appErrors.ErrBulkRequest, "id %d is listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	if !def.IsWritable(req.Field) {
		return nil, appErrors.Clonef(appErrors.ErrBulkRequest, "%s is not writable on %s", req.Field, def.Type)
	}
	field, _ := def.Field(req.Field)
	value, err := coerceWriteValue(s.validator, field, req.Value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBulkRequest.Code, appErrors.ErrBulkRequest.Status, err.Error())
	}
	return &models.BulkMutation{
		Entity: def,
		IDs:    append([]int64(nil), req.IDs...),
		Field:  req.Field,
		Value:  value,
	}, nil
}

// Apply validates req, then writes every id in request order and aggregates the outcome.
func (s *BulkService) Apply(ctx context.Context, req dto.BulkUpdateRequest, actor models.Actor) (*models.BulkResult, error) {
	mutation, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	result := &models.BulkResult{FailedIDs: make([]int64, 0)}
	for i, id := range mutation.IDs {
		if ctx.Err() != nil {
			result.FailedIDs = append(result.FailedIDs, mutation.IDs[i:]...)
			s.logger.Warn("bulk update interrupted",
				zap.String("entity", string(mutation.Entity.Type)),
				zap.Int("remaining", len(mutation.IDs)-i),
				zap.Error(ctx.Err()))
			break
		}
		if err := s.writeOne(ctx, mutation, id); err != nil {
			result.FailedIDs = append(result.FailedIDs, id)
			continue
		}
		result.UpdatedCount++
	}
	result.Message = bulkMessage(result, len(mutation.IDs))

	s.metrics.ObserveBulk(string(mutation.Entity.Type), result.UpdatedCount, len(result.FailedIDs))
	s.emitAudit(ctx, actor, mutation, result)
	return result, nil
}

func (s *BulkService) writeOne(ctx context.Context, mutation *models.BulkMutation, id int64) error {
	writeCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.StoreTimeout > 0 {
		writeCtx, cancel = context.WithTimeout(ctx, s.cfg.StoreTimeout)
	}
	defer cancel()

	start := time.Now()
	_, err := s.store.Write(writeCtx, mutation.Entity, id, map[string]interface{}{mutation.Field: mutation.Value}, nil)
	s.metrics.ObserveStoreOperation(string(mutation.Entity.Type), "bulk_write", err, time.Since(start))
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("bulk target missing", zap.String("entity", string(mutation.Entity.Type)), zap.Int64("id", id))
	} else {
		s.logger.Warn("bulk write failed", zap.String("entity", string(mutation.Entity.Type)), zap.Int64("id", id), zap.Error(err))
	}
	return err
}

func (s *BulkService) emitAudit(ctx context.Context, actor models.Actor, mutation *models.BulkMutation, result *models.BulkResult) {
	if !s.cfg.AuditEnabled || s.audit == nil || result.UpdatedCount == 0 {
		return
	}
	log := &models.AuditLog{
		UserID:   actorID(actor),
		Action:   models.AuditActionBulkUpdate,
		Resource: string(mutation.Entity.Type),
		NewValues: marshalAudit(map[string]interface{}{
			"ids":           mutation.IDs,
			"field":         mutation.Field,
			"value":         mutation.Value,
			"updated_count": result.UpdatedCount,
			"failed_ids":    result.FailedIDs,
		}),
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	// The request context may already be cancelled; the trail entry still has to land.
	if err := s.audit.CreateAuditLog(context.WithoutCancel(ctx), log); err != nil {
		s.logger.Warn("failed to record bulk audit log", zap.Error(err))
	}
}

func bulkMessage(result *models.BulkResult, requested int) string {
	if len(result.FailedIDs) == 0 {
		return fmt.Sprintf("updated %d of %d records", result.UpdatedCount, requested)
	}
	return fmt.Sprintf("updated %d of %d records, %d failed", result.UpdatedCount, requested, len(result.FailedIDs))
}
