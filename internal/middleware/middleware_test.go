package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/internal/service"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

type fakeValidator struct {
	claims *models.JWTClaims
	err    error
}

func (f fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return f.claims, f.err
}

func newProtectedRouter(validator TokenValidator, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/records", JWT(validator), RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func serve(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := newProtectedRouter(fakeValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}, ReadRoles...)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/records", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/records", map[string]string{"Authorization": "Basic abc"}).Code)
	w := serve(router, http.MethodGet, "/records", map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ProblemContentType, w.Header().Get("Content-Type"))
}

func TestRequireRolesSupportIsReadOnly(t *testing.T) {
	support := fakeValidator{claims: &models.JWTClaims{UserID: "u2", Role: models.RoleSupport}}
	auth := map[string]string{"Authorization": "Bearer good"}

	assert.Equal(t, http.StatusNoContent, serve(newProtectedRouter(support, ReadRoles...), http.MethodGet, "/records", auth).Code)
	assert.Equal(t, http.StatusForbidden, serve(newProtectedRouter(support, WriteRoles...), http.MethodGet, "/records", auth).Code)
}

type fakeLimiter struct {
	decisions map[string]service.RateDecision
	keys      []string
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) service.RateDecision {
	f.keys = append(f.keys, key)
	return f.decisions[key]
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &fakeLimiter{decisions: map[string]service.RateDecision{
		"user:u1": {Allowed: false, Limit: 10, RetryAfter: 1500 * time.Millisecond},
	}}
	router := gin.New()
	router.GET("/records", JWT(fakeValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}), RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := serve(router, http.MethodGet, "/records", map[string]string{"Authorization": "Bearer good"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"user:u1"}, limiter.keys)
}

func TestRateLimitAllowsWithinQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := &fakeLimiter{decisions: map[string]service.RateDecision{
		"ip:192.0.2.1": {Allowed: true, Limit: 10, Remaining: 9},
	}}
	router := gin.New()
	router.GET("/health", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMetricsMiddlewareRecordsRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/records/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/records/7", nil)
	serve(router, http.MethodGet, "/nowhere", nil)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `path="/records/:id"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, `path="/records/7"`)
}
