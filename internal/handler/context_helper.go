package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/brightpath/studyplan-core/internal/middleware"
	"github.com/brightpath/studyplan-core/internal/models"
)

func requestContext(c *gin.Context) (models.RequestContext, bool) {
	return middleware.FromContext(c)
}
