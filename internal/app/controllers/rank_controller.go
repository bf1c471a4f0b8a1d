package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/middleware"
)

// RankController handles the caller's lab preferences
type RankController struct {
	courseService services.CourseService
	rankService   services.RankService
	logger        zerolog.Logger
}

// NewRankController creates a new RankController
func NewRankController(courseService services.CourseService, rankService services.RankService, logger zerolog.Logger) *RankController {
	return &RankController{
		courseService: courseService,
		rankService:   rankService,
		logger:        logger,
	}
}

// ListRanks returns the caller's preference list
func (c *RankController) ListRanks(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	labs, err := c.rankService.ListRanks(ctx.Request.Context(), user, course)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewRankResponses(labs), ""))
}

// SubmitRanks replaces the caller's preference list
// @Summary Submit lab preferences
// @Tags ranks
// @Param request body dto.SubmitRanksRequest true "Lab IDs, first choice first"
// @Success 201 {object} dto.APIResponse{data=[]dto.RankResponse}
// @Failure 400 {object} dto.ErrorResponse "Too many, duplicated or foreign labs"
// @Failure 403 {object} dto.ErrorResponse "Not a member"
// @Router /courses/{courseId}/ranks [post]
func (c *RankController) SubmitRanks(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	var req dto.SubmitRanksRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	labs, err := c.rankService.SubmitRanks(ctx.Request.Context(), user, course, req.LabIDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewRankResponses(labs), "Ranks submitted"))
}
