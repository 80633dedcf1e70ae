package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-admin-api/internal/middleware"
	"github.com/noah-isme/tutor-admin-api/internal/models"
)

func actorFromContext(c *gin.Context) models.Actor {
	actor := models.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := middleware.CurrentClaims(c); claims != nil {
		actor.UserID = claims.UserID
		actor.Role = claims.Role
	}
	return actor
}
