package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/models"
	appErrors "github.com/noah-isme/tutor-admin-api/pkg/errors"
	"github.com/noah-isme/tutor-admin-api/pkg/response"
)

// Role groups used by the admin routes.
var (
	ReadRoles  = []models.Role{models.RoleSuperAdmin, models.RoleAdmin, models.RoleSupport}
	WriteRoles = []models.Role{models.RoleSuperAdmin, models.RoleAdmin}
)

// RequireRoles enforces role-based access control for routes.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := CurrentClaims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clonef(appErrors.ErrForbidden, "role %s may not perform this operation", claims.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}
