package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type rateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig sets the fixed window quota per caller.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateDecision is the limiter verdict for one request.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// RateLimitService applies a fixed-window quota backed by a shared counter store.
// Counter failures let the request through.
type RateLimitService struct {
	counter rateCounter
	metrics *MetricsService
	logger  *zap.Logger
	cfg     RateLimitConfig
}

// NewRateLimitService constructs a RateLimitService.
func NewRateLimitService(counter rateCounter, metrics *MetricsService, logger *zap.Logger, cfg RateLimitConfig) *RateLimitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Requests <= 0 {
		cfg.Requests = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimitService{counter: counter, metrics: metrics, logger: logger, cfg: cfg}
}

// Allow counts one request for key.
func (s *RateLimitService) Allow(ctx context.Context, key string) RateDecision {
	count, ttl, err := s.counter.Increment(ctx, key, s.cfg.Window)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
		return RateDecision{Allowed: true, Limit: s.cfg.Requests, Remaining: s.cfg.Requests}
	}
	remaining := s.cfg.Requests - int(count)
	if remaining >= 0 {
		return RateDecision{Allowed: true, Limit: s.cfg.Requests, Remaining: remaining}
	}
	s.metrics.RecordRateLimited()
	if ttl <= 0 {
		ttl = s.cfg.Window
	}
	return RateDecision{Allowed: false, Limit: s.cfg.Requests, RetryAfter: ttl}
}
