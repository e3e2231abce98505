package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath/studyplan-core/internal/dto"
	internalmiddleware "github.com/brightpath/studyplan-core/internal/middleware"
	"github.com/brightpath/studyplan-core/internal/models"
	"github.com/brightpath/studyplan-core/internal/service"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
	"github.com/brightpath/studyplan-core/pkg/response"
)

// ExtractionHandler exposes the Extract Topics endpoint (spec §6.1).
type ExtractionHandler struct {
	orchestrator *service.ExtractionOrchestratorService
}

// NewExtractionHandler constructs an extraction handler.
func NewExtractionHandler(orchestrator *service.ExtractionOrchestratorService) *ExtractionHandler {
	return &ExtractionHandler{orchestrator: orchestrator}
}

// Extract handles POST /courses/:courseId/extract.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	reqCtx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var body dto.ExtractRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid request body"))
		return
	}
	if courseID := c.Param("courseId"); courseID != "" {
		body.CourseID = courseID
	}

	outcome, err := h.orchestrator.Extract(c.Request.Context(), reqCtx, body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if outcome.InProgress {
		internalmiddleware.SetCacheHit(c, outcome.LockFromCache)
		response.JSON(c, http.StatusAccepted, dto.ExtractResponse{
			Success:     false,
			JobID:       outcome.Run.ID,
			CourseTitle: outcome.CourseTitle,
			Status:      "in_progress",
		}, nil, internalmiddleware.ExtractMeta(c))
		return
	}

	run := outcome.Run
	resp := dto.ExtractResponse{
		Success:             true,
		JobID:               run.ID,
		TopicsCount:         run.Result.InsertedCount,
		NeedsReview:         run.Status == models.ExtractionNeedsReview,
		Questions:           run.Result.ClarifyingQuestions,
		CourseTitle:         outcome.CourseTitle,
		Mode:                string(run.Mode),
		ExtractionRunID:     run.ID,
		TruncatedDueToQuota: run.Result.TruncatedDueToQuota,
		CyclesDetected:      run.Result.CyclesDetected,
		Status:              string(run.Status),
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
