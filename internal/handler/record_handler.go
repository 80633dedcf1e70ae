package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/tutor-admin-api/internal/dto"
	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/internal/service"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
	"github.com/noah-isme/tutor-admin-api/pkg/response"
)

type recordService interface {
	Get(ctx context.Context, entity string, id int64) (*models.DetailResult, error)
	List(ctx context.Context, entity string, params url.Values) (*models.ListResult, error)
	Update(ctx context.Context, entity string, id int64, patch map[string]interface{}, token string, actor models.Actor) (*models.DetailResult, error)
	Delete(ctx context.Context, entity string, id int64, token, reason string, actor models.Actor) error
}

// RecordHandler exposes the uniform list/detail/mutate contract for every entity.
type RecordHandler struct {
	service   recordService
	validator *validator.Validate
}

// NewRecordHandler builds a new handler.
func NewRecordHandler(service recordService, validate *validator.Validate) *RecordHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &RecordHandler{service: service, validator: validate}
}

// List godoc
// @Summary List records of an entity
// @Tags Records
// @Produce json
// @Param entity path string true "Entity key" Enums(accounts, instructor-profiles, student-profiles, bookings, reviews, schedules)
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size (max 100)" default(20)
// @Param search query string false "Case-insensitive search over searchable fields"
// @Param sort query string false "field[:asc|desc]"
// @Param fields query string false "Comma separated projection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} appErrors.Problem
// @Router /{entity} [get]
func (h *RecordHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), c.Param("entity"), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, result.Records, result.Meta, listLinks(c.Request.URL, result.Meta))
}

// Get godoc
// @Summary Get a record with its version token
// @Tags Records
// @Produce json
// @Param entity path string true "Entity key"
// @Param id path int true "Record ID"
// @Success 200 {object} response.Envelope
// @Header 200 {string} ETag "Version token"
// @Failure 404 {object} appErrors.Problem
// @Router /{entity}/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("entity"), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDetail(c, detail)
}

// Update godoc
// @Summary Update writable fields of a record
// @Description Non-writable keys are ignored. Requires the version token in If-Match.
// @Tags Records
// @Accept json
// @Produce json
// @Param entity path string true "Entity key"
// @Param id path int true "Record ID"
// @Param If-Match header string true "Version token"
// @Param payload body object true "Field patch"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} appErrors.Problem
// @Failure 428 {object} appErrors.Problem
// @Router /{entity}/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	patch, err := decodePatch(c.Request.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Update(c.Request.Context(), c.Param("entity"), id, patch, c.GetHeader("If-Match"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeDetail(c, detail)
}

// Delete godoc
// @Summary Delete a record according to its entity policy
// @Tags Records
// @Accept json
// @Param entity path string true "Entity key"
// @Param id path int true "Record ID"
// @Param If-Match header string true "Version token"
// @Param payload body dto.DeleteRecordRequest false "Reason"
// @Success 204
// @Failure 409 {object} appErrors.Problem
// @Failure 428 {object} appErrors.Problem
// @Router /{entity}/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DeleteRecordRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "reason must be at most 500 characters"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("entity"), id, c.GetHeader("If-Match"), req.Reason, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func recordID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be an integer")
	}
	return id, nil
}

func decodePatch(body io.Reader) (map[string]interface{}, error) {
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	var patch map[string]interface{}
	if err := decoder.Decode(&patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "body must be a JSON object")
	}
	if patch == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "body must be a JSON object")
	}
	return patch, nil
}

func writeDetail(c *gin.Context, detail *models.DetailResult) {
	c.Header("ETag", service.QuoteVersionToken(detail.Version))
	if !detail.LastModified.IsZero() {
		c.Header("Last-Modified", detail.LastModified.UTC().Format(http.TimeFormat))
	}
	response.JSON(c, http.StatusOK, detail.Record, detail.Meta())
}

func listLinks(base *url.URL, meta models.ListMeta) models.ListLinks {
	pageURL := func(page int) string {
		u := *base
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(meta.PageSize))
		u.RawQuery = q.Encode()
		return u.RequestURI()
	}
	last := max(meta.TotalPages, 1)
	links := models.ListLinks{
		Self:  pageURL(meta.Page),
		First: pageURL(1),
		Last:  pageURL(last),
	}
	if meta.Page > 1 {
		links.Prev = pageURL(min(meta.Page-1, last))
	}
	if meta.Page < meta.TotalPages {
		links.Next = pageURL(meta.Page + 1)
	}
	return links
}
