package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/dto"
	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
	"github.com/noah-isme/tutor-admin-api/pkg/response"
)

type bulkService interface {
	Apply(ctx context.Context, req dto.BulkUpdateRequest, actor models.Actor) (*models.BulkResult, error)
}

// BulkHandler exposes bulk mutation endpoints.
type BulkHandler struct {
	service bulkService
}

// NewBulkHandler builds a new handler.
func NewBulkHandler(service bulkService) *BulkHandler {
	return &BulkHandler{service: service}
}

// Update godoc
// @Summary Set one field on many records
// @Description Per-record failures are reported in failed_ids; the call still answers 200.
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} appErrors.Problem
// @Router /bulk-update [post]
func (h *BulkHandler) Update(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrBulkRequest.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	result, err := h.service.Apply(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
