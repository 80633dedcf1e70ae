package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
)

// Envelope represents the common success response contract.
type Envelope struct {
	Data  interface{} `json:"data"`
	Meta  interface{} `json:"meta,omitempty"`
	Links interface{} `json:"links,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Meta: meta})
}

// List sends a page of items with pagination metadata and navigation links.
func List(c *gin.Context, data interface{}, meta interface{}, links interface{}) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Data: data, Meta: meta, Links: links})
}

// Error writes err as a problem detail. The original error is attached to the
// gin context so the access logger records the cause of server errors.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	noStore(c)
	if appErr.Status == http.StatusTooManyRequests && c.Writer.Header().Get("Retry-After") == "" {
		c.Header("Retry-After", "1")
	}
	problem := appErrors.ToProblem(appErr, c.Request.URL.Path)
	c.Render(appErr.Status, problemRender{problem: problem})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	noStore(c)
	c.Status(http.StatusNoContent)
}
