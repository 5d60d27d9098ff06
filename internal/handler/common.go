package handler

import (
	"procurement-backend/pkg/apperror"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError recovers a workflow error at the boundary and turns it into
// the structured {success, message} envelope with the status its kind maps to.
func respondError(c *gin.Context, err error) {
	c.JSON(apperror.StatusOf(err), response.Error(err.Error()))
}

// actorID returns the caller id set by the auth middleware.
func actorID(c *gin.Context) string {
	userID, _ := c.Get("userID")
	id, _ := userID.(string)
	return id
}
