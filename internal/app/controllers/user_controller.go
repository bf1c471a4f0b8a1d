package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/saffron/internal/app/models/dto"
	"github.com/yigit/saffron/internal/app/services"
	"github.com/yigit/saffron/internal/middleware"
	"github.com/yigit/saffron/internal/pkg/apperrors"
)

// UserController handles account registration and the caller's profile
type UserController struct {
	userService services.UserService
	logger      zerolog.Logger
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService, logger zerolog.Logger) *UserController {
	return &UserController{
		userService: userService,
		logger:      logger,
	}
}

// Register handles student registration
// @Summary Register a new student
// @Tags users
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "Username already taken"
// @Router /users [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.Register(ctx.Request.Context(), services.NewUser{
		Username:   req.Username,
		Password:   req.Password,
		ScreenName: req.ScreenName,
		GPA:        req.GPA,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.NewUserResponse(user), "User registered"))
}

// GetMe returns the caller's profile
func (c *UserController) GetMe(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(user), ""))
}

// UpdateMe updates the caller's screen name and GPA
func (c *UserController) UpdateMe(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthenticated)
		return
	}

	var req dto.UpdateProfileRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	updated, err := c.userService.UpdateProfile(ctx.Request.Context(), user, services.ProfileUpdate{
		ScreenName: req.ScreenName,
		GPA:        req.GPA,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.NewUserResponse(updated), "Profile updated"))
}
