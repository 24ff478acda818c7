package app

import (
	"interview_bot_backend/docs"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/middleware"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的面试路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerInterviewRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/interview/scenarios", c.interview.Scenarios)

		// 外部系统推送，来源标识写在路径里
		public.POST("/webhooks/:source", c.webhook.Receive)
	}
}

func (a *App) registerInterviewRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/me", c.auth.Me)

	interview := rg.Group("/interview")
	{
		interview.POST("/session", c.interview.ResetSession)
		interview.GET("/session", c.interview.GetSession)
		interview.POST("/answer", c.interview.SubmitAnswer)
		interview.POST("/answer/audio", c.interview.SubmitAudioAnswer)
		interview.GET("/explain/stream", c.interview.ExplainStream)
		interview.POST("/reply/speech", c.interview.ReplySpeech)
		interview.GET("/progress", c.interview.Progress)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/questions", c.admin.GetBank)
		admin.GET("/questions/list", c.admin.ListQuestions)
		admin.POST("/questions", c.admin.AddQuestion)
		admin.PUT("/questions", c.admin.UpdateQuestion)
		admin.DELETE("/questions", c.admin.DeleteQuestion)
		admin.POST("/questions/move", c.admin.MoveQuestion)

		admin.GET("/submissions", c.webhook.List)
	}
}
