package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/internal/repository"
	"github.com/noah-isme/tutor-admin-api/internal/service"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

type staticValidator map[string]*models.JWTClaims

func (v staticValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

var testTokens = staticValidator{
	"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
	"support": {UserID: "support-1", Role: models.RoleSupport},
}

type apiFixture struct {
	engine *gin.Engine
	audit  *repository.MemoryAuditRepository
}

func newAPIFixture(t *testing.T) apiFixture {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryRecordStore()
	bookings, _ := models.LookupEntity("bookings")
	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Seed(bookings, map[string]interface{}{
			"id":            float64(i),
			"student_id":    float64(10 + i),
			"instructor_id": float64(2),
			"schedule_id":   float64(3),
			"starts_at":     "2024-06-01T09:00:00Z",
			"price":         float64(150),
			"status":        "PENDING",
		}))
	}

	audit := repository.NewMemoryAuditRepository()
	metrics := service.NewMetricsService()
	queries := service.NewQueryBuilder(nil, service.QueryBuilderConfig{DefaultPageSize: 2, MaxPageSize: 100})
	records := service.NewRecordService(store, audit, queries, service.NewVersionCodec("secret"), nil, metrics, zap.NewNop(), service.RecordServiceConfig{AuditEnabled: true})
	bulk := service.NewBulkService(store, audit, nil, metrics, zap.NewNop(), service.BulkServiceConfig{MaxIDs: 100, AuditEnabled: true})

	engine := gin.New()
	Router{
		Records:  NewRecordHandler(records, nil),
		Bulk:     NewBulkHandler(bulk),
		Entities: NewEntityHandler(records),
		Metrics:  NewMetricsHandler(metrics, records),
		Auth:     testTokens,
	}.Register(engine, "/api/v1")
	return apiFixture{engine: engine, audit: audit}
}

func (f apiFixture) do(method, target, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, _ := json.Marshal(v)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type listBody struct {
	Data  []map[string]interface{} `json:"data"`
	Meta  models.ListMeta          `json:"meta"`
	Links models.ListLinks         `json:"links"`
}

func TestRecordHandlerListWithLinks(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/api/v1/bookings?page=2&sort=id:desc", "support", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ListMeta{Total: 5, Page: 2, PageSize: 2, TotalPages: 3}, body.Meta)
	require.Len(t, body.Data, 2)
	assert.Equal(t, float64(3), body.Data[0]["id"])
	assert.Equal(t, float64(2), body.Data[1]["id"])

	next, err := url.Parse(body.Links.Next)
	require.NoError(t, err)
	assert.Equal(t, "3", next.Query().Get("page"))
	assert.Equal(t, "id:desc", next.Query().Get("sort"))
	assert.NotEmpty(t, body.Links.Prev)
	assert.Contains(t, body.Links.Last, "page=3")
}

func TestRecordHandlerListValidationProblem(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/api/v1/bookings?sort=student_name", "admin", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ProblemContentType, w.Header().Get("Content-Type"))

	w = f.do(http.MethodGet, "/api/v1/payments", "admin", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandlerVersionedUpdateFlow(t *testing.T) {
	f := newAPIFixture(t)

	get := f.do(http.MethodGet, "/api/v1/bookings/1", "admin", nil, nil)
	require.Equal(t, http.StatusOK, get.Code)
	etag := get.Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `"v1-`))
	assert.NotEmpty(t, get.Header().Get("Last-Modified"))

	missing := f.do(http.MethodPut, "/api/v1/bookings/1", "admin", map[string]interface{}{"status": "CONFIRMED"}, nil)
	assert.Equal(t, http.StatusPreconditionRequired, missing.Code)

	wildcard := f.do(http.MethodPut, "/api/v1/bookings/1", "admin", map[string]interface{}{"status": "CONFIRMED"}, map[string]string{"If-Match": "*"})
	assert.Equal(t, http.StatusBadRequest, wildcard.Code)

	put := f.do(http.MethodPut, "/api/v1/bookings/1", "admin", map[string]interface{}{"status": "CONFIRMED", "price": 1}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, put.Code)
	newETag := put.Header().Get("ETag")
	assert.NotEqual(t, etag, newETag)

	var detail struct {
		Data map[string]interface{} `json:"data"`
		Meta models.DetailMeta      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(put.Body.Bytes(), &detail))
	assert.Equal(t, "CONFIRMED", detail.Data["status"])
	assert.Equal(t, float64(150), detail.Data["price"])
	assert.Equal(t, `"`+detail.Meta.Version+`"`, newETag)

	stale := f.do(http.MethodPut, "/api/v1/bookings/1", "admin", map[string]interface{}{"status": "CANCELLED"}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusConflict, stale.Code)
	var problem appErrors.Problem
	require.NoError(t, json.Unmarshal(stale.Body.Bytes(), &problem))
	assert.Equal(t, "/problems/version-conflict", problem.Type)
	assert.Equal(t, "/api/v1/bookings/1", problem.Instance)
}

func TestRecordHandlerUpdateRejectsBadPayloads(t *testing.T) {
	f := newAPIFixture(t)
	etag := f.do(http.MethodGet, "/api/v1/bookings/2", "admin", nil, nil).Header().Get("ETag")

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/v1/bookings/2", "admin", "[1,2]", map[string]string{"If-Match": etag}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/v1/bookings/abc", "admin", map[string]interface{}{}, map[string]string{"If-Match": etag}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPut, "/api/v1/bookings/2", "admin", map[string]interface{}{"status": 5}, map[string]string{"If-Match": etag}).Code)
}

func TestRecordHandlerSupportCannotWrite(t *testing.T) {
	f := newAPIFixture(t)
	etag := f.do(http.MethodGet, "/api/v1/bookings/1", "support", nil, nil).Header().Get("ETag")
	w := f.do(http.MethodPut, "/api/v1/bookings/1", "support", map[string]interface{}{"status": "CONFIRMED"}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/bookings", "", nil, nil).Code)
}

func TestRecordHandlerDelete(t *testing.T) {
	f := newAPIFixture(t)
	etag := f.do(http.MethodGet, "/api/v1/bookings/4", "admin", nil, nil).Header().Get("ETag")

	w := f.do(http.MethodDelete, "/api/v1/bookings/4", "admin", map[string]string{"reason": "student request"}, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	after := f.do(http.MethodGet, "/api/v1/bookings/4", "admin", nil, nil)
	assert.Contains(t, after.Body.String(), `"CANCELLED"`)

	entries := f.audit.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "student request", *entries[0].Reason)
	assert.Equal(t, "admin-1", *entries[0].UserID)

	tooLong := f.do(http.MethodDelete, "/api/v1/bookings/5", "admin", map[string]string{"reason": strings.Repeat("x", 501)}, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusBadRequest, tooLong.Code)
}

func TestBulkHandlerPartialFailure(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodPost, "/api/v1/bulk-update", "admin", map[string]interface{}{
		"entity": "bookings",
		"ids":    []int64{1, 2, 3, 4, 99},
		"field":  "status",
		"value":  "CONFIRMED",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data models.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Data.UpdatedCount)
	assert.Equal(t, []int64{99}, body.Data.FailedIDs)
}

func TestBulkHandlerRejectsOversizedRequest(t *testing.T) {
	f := newAPIFixture(t)
	ids := make([]int64, 101)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	w := f.do(http.MethodPost, "/api/v1/bulk-update", "admin", map[string]interface{}{
		"entity": "bookings", "ids": ids, "field": "status", "value": "CONFIRMED",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "/problems/bulk-request-invalid")

	get := f.do(http.MethodGet, "/api/v1/bookings/1", "admin", nil, nil)
	assert.Contains(t, get.Body.String(), `"PENDING"`)
}

func TestEntityAndProbeEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/api/v1/entities", "support", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"instructor-profiles"`)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", nil, nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/ready", "", nil, nil).Code)
	metrics := f.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "goroutines_total")
}

func TestRecordHandlerListFilterAndProjection(t *testing.T) {
	f := newAPIFixture(t)
	etag := f.do(http.MethodGet, "/api/v1/bookings/2", "admin", nil, nil).Header().Get("ETag")
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/v1/bookings/2", "admin", map[string]interface{}{"status": "CONFIRMED"}, map[string]string{"If-Match": etag}).Code)

	w := f.do(http.MethodGet, "/api/v1/bookings?filter_status=CONFIRMED&fields=status", "support", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body listBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Meta.Total)
	require.Len(t, body.Data, 1)
	assert.Equal(t, map[string]interface{}{"id": float64(2), "status": "CONFIRMED"}, body.Data[0])
	assert.Empty(t, body.Links.Next)

	bad := f.do(http.MethodGet, "/api/v1/bookings?filter_status=LOST", "support", nil, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
