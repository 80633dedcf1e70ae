package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	"github.com/noah-isme/tutor-admin-api/pkg/response"
)

type entityCatalog interface {
	Catalog() []models.EntityDescription
}

// EntityHandler serves the entity allow-lists so clients can build queries.
type EntityHandler struct {
	catalog entityCatalog
}

// NewEntityHandler builds a new handler.
func NewEntityHandler(catalog entityCatalog) *EntityHandler {
	return &EntityHandler{catalog: catalog}
}

// List godoc
// @Summary Describe managed entities
// @Tags Entities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /entities [get]
func (h *EntityHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.catalog.Catalog(), nil)
}
