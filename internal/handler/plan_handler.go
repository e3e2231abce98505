package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brightpath/studyplan-core/internal/dto"
	"github.com/brightpath/studyplan-core/internal/service"
	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
	"github.com/brightpath/studyplan-core/pkg/response"
)

// PlanHandler exposes the Generate Plan endpoint (spec §6.2).
type PlanHandler struct {
	generator *service.PlanGenerationService
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(generator *service.PlanGenerationService) *PlanHandler {
	return &PlanHandler{generator: generator}
}

// Generate handles POST /plan/generate.
func (h *PlanHandler) Generate(c *gin.Context) {
	reqCtx, ok := requestContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var body dto.GeneratePlanRequest
	body.IncludeMissedItems = true
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid request body"))
			return
		}
	}

	result, err := h.generator.Generate(c.Request.Context(), reqCtx, body)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrInfeasible.Code {
			response.JSON(c, http.StatusBadRequest, dto.InfeasiblePlanResponse{
				Error:          "insufficient_time",
				ShortfallHours: result.Verdict.ShortfallHours,
				Suggestions:    (&service.FeasibilityService{}).Suggestions(result.Verdict),
				PerCourse:      result.PerCourse,
			}, nil)
			return
		}
		response.Error(c, err)
		return
	}

	days := make([]dto.PlanDayDTO, 0, len(result.Days))
	itemsByDay := map[string][]dto.PlanItemDTO{}
	for _, item := range result.Items {
		itemsByDay[item.DayID] = append(itemsByDay[item.DayID], dto.PlanItemDTO{
			TopicID:        item.TopicID,
			CourseID:       item.CourseID,
			AllocatedHours: item.AllocatedHours,
			SequenceOrder:  item.SequenceOrder,
			IsReview:       item.IsReview,
		})
	}
	for _, day := range result.Days {
		days = append(days, dto.PlanDayDTO{
			Date:       day.Date.Format("2006-01-02"),
			TotalHours: day.TotalHours,
			IsOffDay:   day.IsOffDay,
			Items:      itemsByDay[day.ID],
		})
	}

	resp := dto.GeneratePlanResponse{
		Success:             true,
		PlanDays:            days,
		PlanItems:           len(result.Items),
		PlanVersion:         result.PlanVersion,
		Warnings:            result.Warnings,
		CoursesIncluded:     result.CoursesIncluded,
		CoverageRatio:       result.Verdict.CoverageRatio,
		TotalRequiredHours:  result.Verdict.TotalRequiredHours,
		TotalAvailableHours: result.Verdict.TotalAvailableHours,
		IsOverloaded:        result.Verdict.Overloaded,
		TopicsScheduled:     result.TopicsScheduled,
		TopicsProvided:      result.TopicsProvided,
		ValidationPassed:    result.ValidationPassed,
	}
	response.JSON(c, http.StatusOK, resp, nil)
}
