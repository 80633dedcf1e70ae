package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/internal/repository"
	"github.com/noah-isme/tutor-admin-api/internal/service"
	"github.com/noah-isme/tutor-admin-api/pkg/cache"
	"github.com/noah-isme/tutor-admin-api/pkg/config"
	"github.com/noah-isme/tutor-admin-api/pkg/database"
)

// RecordStore is the persistence capability shared by the record and bulk services.
type RecordStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, def *models.EntityDefinition, id int64) (*models.Record, error)
	List(ctx context.Context, plan models.QueryPlan) ([]models.Record, int, error)
	Write(ctx context.Context, def *models.EntityDefinition, id int64, patch map[string]interface{}, expected *int64) (*models.Record, error)
	Delete(ctx context.Context, def *models.EntityDefinition, id int64, expected *int64) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Services is the wired service graph used by the HTTP server and the CLI.
type Services struct {
	Validator *validator.Validate
	Metrics   *service.MetricsService
	Records   *service.RecordService
	Bulk      *service.BulkService
	Auth      *service.AuthService
	RateLimit *service.RateLimitService

	closers []func() error
}

// Close releases database and cache connections.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// New opens the configured store and builds every service on top of it.
func New(cfg *config.Config, logger *zap.Logger) (*Services, error) {
	services := &Services{
		Validator: validator.New(),
		Metrics:   service.NewMetricsService(),
	}

	store, audit, err := services.openStore(cfg, logger)
	if err != nil {
		services.Close()
		return nil, err
	}

	queries := service.NewQueryBuilder(services.Validator, service.QueryBuilderConfig{
		DefaultPageSize: cfg.Admin.DefaultPageSize,
		MaxPageSize:     cfg.Admin.MaxPageSize,
	})
	codec := service.NewVersionCodec(cfg.Admin.VersionTokenSecret)

	services.Records = service.NewRecordService(store, audit, queries, codec, services.Validator, services.Metrics, logger, service.RecordServiceConfig{
		StoreTimeout: cfg.Store.Timeout,
		AuditEnabled: cfg.Audit.Enabled,
	})
	services.Bulk = service.NewBulkService(store, audit, services.Validator, services.Metrics, logger, service.BulkServiceConfig{
		MaxIDs:       cfg.Admin.BulkMaxIDs,
		StoreTimeout: cfg.Store.Timeout,
		AuditEnabled: cfg.Audit.Enabled,
	})
	services.Auth = service.NewAuthService(logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	if cfg.RateLimit.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("connect rate limit cache: %w", err)
		}
		services.closers = append(services.closers, client.Close)
		services.RateLimit = service.NewRateLimitService(repository.NewRateLimitRepository(client), services.Metrics, logger, service.RateLimitConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		})
	}

	return services, nil
}

func (s *Services) openStore(cfg *config.Config, logger *zap.Logger) (RecordStore, auditWriter, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		store := repository.NewMemoryRecordStore()
		if cfg.Store.SeedFile != "" {
			if err := store.LoadSeedFile(cfg.Store.SeedFile); err != nil {
				return nil, nil, fmt.Errorf("load seed file: %w", err)
			}
		}
		logger.Info("using in-memory record store", zap.String("seed_file", cfg.Store.SeedFile))
		return store, repository.NewMemoryAuditRepository(), nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	s.closers = append(s.closers, db.Close)
	logger.Info("using postgres record store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	return repository.NewRecordRepository(db), repository.NewAuditRepository(db), nil
}
