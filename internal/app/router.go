package app

import (
	"quizgen_gateway/internal/middleware"
	"quizgen_gateway/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要身份的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.IdentityMiddleware(a.services.identity))
	{
		a.registerSessionRoutes(authGroup, c)
		a.registerQuizRoutes(authGroup, c)
		a.registerExamRoutes(authGroup, c)
	}
}

func (a *App) registerSessionRoutes(group *gin.RouterGroup, c *controllers) {
	session := group.Group("/session")
	{
		session.GET("/me", c.session.Me)
		session.POST("/logout", c.session.Logout)
	}

	group.GET("/subjects", c.subject.Search)
	group.POST("/subjects", c.subject.FindOrCreate)
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers) {
	quizzes := group.Group("/quizzes")
	{
		quizzes.GET("", c.quiz.List)
		quizzes.POST("", c.quiz.Create)
		quizzes.GET("/:id", c.quiz.Get)
		quizzes.DELETE("/:id", c.quiz.Delete)
		quizzes.POST("/:id/sessions", c.exam.Start)
		quizzes.GET("/:id/attempts/:attemptId", c.result.ResultPage)
	}

	jobs := group.Group("/quiz-jobs")
	{
		jobs.GET("/:jobId", c.quiz.GetJob)
		jobs.DELETE("/:jobId", c.quiz.CancelJob)
		jobs.GET("/:jobId/ws", c.quiz.StreamJob)
	}

	group.GET("/results", c.result.History)
	group.GET("/materials/:jobId/:name", c.material.Download)
}

func (a *App) registerExamRoutes(group *gin.RouterGroup, c *controllers) {
	sessions := group.Group("/exam-sessions")
	{
		sessions.GET("/:sid", c.exam.Get)
		sessions.DELETE("/:sid", c.exam.Discard)
		sessions.PUT("/:sid/answers", c.exam.SelectChoice)
		sessions.POST("/:sid/goto", c.exam.GoTo)
		sessions.POST("/:sid/next", c.exam.Next)
		sessions.POST("/:sid/previous", c.exam.Previous)
		sessions.POST("/:sid/page", c.exam.Paginate)
		sessions.POST("/:sid/submit", c.exam.Submit)
	}
}
