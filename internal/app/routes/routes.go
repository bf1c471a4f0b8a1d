package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/saffron/internal/app/controllers"
	"github.com/yigit/saffron/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Auth    *controllers.AuthController
	Users   *controllers.UserController
	Courses *controllers.CourseController
	Labs    *controllers.LabController
	Ranks   *controllers.RankController
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, ctrl Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	v1.POST("/auth/login", ctrl.Auth.Login)
	v1.POST("/users", ctrl.Users.Register)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())

	me := authenticated.Group("/users/me")
	{
		me.GET("", ctrl.Users.GetMe)
		me.PATCH("", ctrl.Users.UpdateMe)
	}

	courses := authenticated.Group("/courses")
	{
		courses.GET("", ctrl.Courses.ListCourses)
		courses.POST("", authMiddleware.StaffRequired(), ctrl.Courses.CreateCourse)
	}

	course := courses.Group("/:courseId")
	{
		course.GET("", ctrl.Courses.GetCourse)
		course.PATCH("", ctrl.Courses.UpdateCourse)
		course.DELETE("", ctrl.Courses.DeleteCourse)
		course.PUT("/pin", ctrl.Courses.SetPIN)
		course.GET("/status", ctrl.Courses.Status)

		// Membership
		course.POST("/join", ctrl.Courses.Join)
		course.GET("/members", ctrl.Courses.ListMembers)
		course.DELETE("/members/me", ctrl.Courses.Leave)
		course.GET("/admins", ctrl.Courses.ListAdmins)
		course.PUT("/admins/:userId", ctrl.Courses.PromoteAdmin)
		course.DELETE("/admins/:userId", ctrl.Courses.DemoteAdmin)

		// Labs
		course.GET("/labs", ctrl.Labs.ListLabs)
		course.POST("/labs", ctrl.Labs.CreateLabs)
		course.GET("/labs/:labId", ctrl.Labs.GetLab)
		course.PUT("/labs/:labId", ctrl.Labs.UpdateLab)
		course.DELETE("/labs/:labId", ctrl.Labs.DeleteLab)

		// Ranks
		course.GET("/ranks", ctrl.Ranks.ListRanks)
		course.POST("/ranks", ctrl.Ranks.SubmitRanks)
	}
}
