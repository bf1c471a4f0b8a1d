package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/app/repositories"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/middleware"
	"github.com/yigit/saffron/internal/pkg/apperrors"
	"github.com/yigit/saffron/internal/pkg/helpers"
)

// CourseController handles courses, membership and course admins
type CourseController struct {
	courseService services.CourseService
	logger        zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService, logger zerolog.Logger) *CourseController {
	return &CourseController{
		courseService: courseService,
		logger:        logger,
	}
}

// courseContext resolves the caller and the course named by the :courseId path parameter.
// On failure the response is already written.
func courseContext(ctx *gin.Context, courses services.CourseService) (*models.User, *models.Course, bool) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
		return nil, nil, false
	}

	courseID, ok := helpers.ParseIDParam(ctx, "courseId")
	if !ok {
		middleware.AbortWithError(ctx, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid course ID", "Course ID must be a positive number")
		return nil, nil, false
	}

	course, err := courses.GetCourse(ctx.Request.Context(), courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return nil, nil, false
	}
	return user, course, true
}

// CreateCourse handles course creation
// @Summary Create a course
// @Tags courses
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} dto.APIResponse{data=dto.CourseResponse}
// @Failure 403 {object} dto.ErrorResponse "Staff only"
// @Failure 409 {object} dto.ErrorResponse "Course already exists for the year"
// @Router /courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
		return
	}

	var req dto.CreateCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	course, err := c.courseService.CreateCourseAs(ctx.Request.Context(), user, services.NewCourse{
		Name:      req.Name,
		PIN:       req.PIN,
		Year:      req.Year,
		RankLimit: req.RankLimit,
		MinGPA:    req.MinGPA,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewCourseResponse(course), "Course created"))
}

// ListCourses lists courses, optionally filtered by year, name or the caller's membership
// @Summary List courses
// @Tags courses
// @Param year query int false "Academic year"
// @Param search query string false "Name contains"
// @Param joined query bool false "Only courses the caller joined"
// @Param page query int false "Page (1-based)"
// @Param size query int false "Page size"
// @Router /courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
		return
	}

	var query dto.CourseListQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}
	filter := repositories.CourseFilter{
		Year:   query.Year,
		Search: query.Search,
		Page:   helpers.PageFromQuery(ctx),
	}
	if query.Joined {
		filter.UserID = &user.ID
	}

	courses, total, err := c.courseService.ListCourses(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PaginatedResponse{
		Items:      dto.NewCourseResponses(courses),
		Pagination: filter.Page.Info(total),
	}, ""))
}

// GetCourse returns one course
func (c *CourseController) GetCourse(ctx *gin.Context) {
	_, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewCourseResponse(course), ""))
}

// UpdateCourse renames a course or changes its configuration
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	err := c.courseService.UpdateCourse(ctx.Request.Context(), user, course, services.CourseUpdate{
		Name:      req.Name,
		RankLimit: req.RankLimit,
		MinGPA:    req.MinGPA,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewCourseResponse(course), "Course updated"))
}

// DeleteCourse deletes a course with its labs, ranks and memberships
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	if err := c.courseService.RemoveCourse(ctx.Request.Context(), user, course); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SetPIN replaces the course PIN
func (c *CourseController) SetPIN(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	var req dto.SetPINRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.courseService.ChangePIN(ctx.Request.Context(), user, course, req.PIN); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "PIN updated"))
}

// Join adds the caller to the course
// @Summary Join a course with its PIN
// @Tags courses
// @Param request body dto.JoinCourseRequest true "PIN"
// @Success 201 {object} dto.APIResponse{data=dto.CourseResponse}
// @Failure 400 {object} dto.ErrorResponse "Wrong PIN"
// @Failure 409 {object} dto.ErrorResponse "Already joined"
// @Router /courses/{courseId}/join [post]
func (c *CourseController) Join(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	var req dto.JoinCourseRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	joined, err := c.courseService.Join(ctx.Request.Context(), course, user, req.PIN)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if !joined {
		middleware.AbortWithError(ctx, http.StatusBadRequest, dto.ErrorCodeCoursePinMismatch, "The PIN is not correct", nil)
		return
	}

	c.logger.Info().Int64("courseID", course.ID).Int64("userID", user.ID).Msg("User joined course")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewCourseResponse(course), "Joined course"))
}

// Leave removes the caller from the course
func (c *CourseController) Leave(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	if err := c.courseService.Leave(ctx.Request.Context(), course, user); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListMembers lists everyone who joined the course
func (c *CourseController) ListMembers(ctx *gin.Context) {
	c.listMembers(ctx, models.RoleNone)
}

// ListAdmins lists the course admins
func (c *CourseController) ListAdmins(ctx *gin.Context) {
	c.listMembers(ctx, models.RoleAdmin)
}

func (c *CourseController) listMembers(ctx *gin.Context, role models.MembershipRole) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	members, err := c.courseService.ListMembers(ctx.Request.Context(), user, course, role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewMemberResponses(members), ""))
}

// PromoteAdmin makes a member a course admin
func (c *CourseController) PromoteAdmin(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	targetID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		middleware.AbortWithError(ctx, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid user ID", nil)
		return
	}

	target, err := c.courseService.PromoteMember(ctx.Request.Context(), user, course, targetID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserBrief(target), "Admin registered"))
}

// DemoteAdmin removes a user from the course admins
func (c *CourseController) DemoteAdmin(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}
	targetID, ok := helpers.ParseIDParam(ctx, "userId")
	if !ok {
		middleware.AbortWithError(ctx, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Invalid user ID", nil)
		return
	}

	if err := c.courseService.DemoteMember(ctx.Request.Context(), user, course, targetID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Status reports the caller's role and which requirements they meet
func (c *CourseController) Status(ctx *gin.Context) {
	user, course, ok := courseContext(ctx, c.courseService)
	if !ok {
		return
	}

	role, err := c.courseService.Role(ctx.Request.Context(), course, user)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	status, err := c.courseService.RequirementStatus(ctx.Request.Context(), user, course)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.CourseStatusResponse{
		Role:         role,
		Requirements: *status,
	}, ""))
}
