package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/middleware"
	"github.com/yigit/saffron/internal/pkg/helpers"
)

// LabController handles the labs of a course
type LabController struct {
	courseService services.CourseService
	labService    services.LabService
	logger        zerolog.Logger
}

// NewLabController creates a new LabController
func NewLabController(courseService services.CourseService, labService services.LabService, logger zerolog.Logger) *LabController {
	return &LabController{
		courseService: courseService,
		labService:    labService,
		logger:        logger,
	}
}

func labIDParam(ctx *gin.Context) (int64, bool) {
	id, ok := helpers.ParseIDParam(ctx, "labId")
	if !ok {
		middleware.AbortWithError(ctx, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid lab ID", "Lab ID must be a positive number")
	}
	return id, ok
}

// ListLabs lists the labs of a course
// @Summary List labs
// @Tags labs
// @Success 200 {object} dto.APIResponse{data=[]models.Lab}
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Router /courses/{courseId}/labs [get]
func (c *LabController) ListLabs(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	labs, err := c.labService.ListLabs(ctx.Request.Context(), user, course)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(labs, ""))
}

// GetLab returns a lab with the users who ranked it
// @Summary Lab detail
// @Description Visible to members who meet the GPA and screen name requirements and have submitted ranks
// @Tags labs
// @Success 200 {object} dto.APIResponse{data=dto.LabDetailResponse}
// @Failure 403 {object} dto.ErrorResponse "Requirements not met"
// @Failure 404 {object} dto.ErrorResponse "Lab not found"
// @Router /courses/{courseId}/labs/{labId} [get]
func (c *LabController) GetLab(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	labID, ok := labIDParam(ctx)
	if !ok {
		return
	}

	detail, err := c.labService.GetLabDetail(ctx.Request.Context(), user, course, labID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewLabDetailResponse(detail), ""))
}

// CreateLabs creates labs in bulk
func (c *LabController) CreateLabs(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	var req dto.CreateLabsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	input := make([]services.NewLab, 0, len(req.Labs))
	for _, l := range req.Labs {
		input = append(input, services.NewLab{Name: l.Name, Capacity: l.Capacity})
	}

	labs, err := c.labService.CreateLabs(ctx.Request.Context(), user, course, input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(labs, "Labs created"))
}

// UpdateLab changes a lab
func (c *LabController) UpdateLab(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	labID, ok := labIDParam(ctx)
	if !ok {
		return
	}

	var req dto.UpdateLabRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	lab, err := c.labService.UpdateLab(ctx.Request.Context(), user, course, labID, services.LabUpdate{
		Name:     req.Name,
		Capacity: req.Capacity,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(lab, "Lab updated"))
}

// DeleteLab deletes a lab and the ranks that point at it
func (c *LabController) DeleteLab(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	labID, ok := labIDParam(ctx)
	if !ok {
		return
	}

	if err := c.labService.DeleteLab(ctx.Request.Context(), user, course, labID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
