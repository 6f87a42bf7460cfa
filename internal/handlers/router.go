package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpilot/internal/constants"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/middleware"
	"github.com/yukikurage/taskpilot/internal/services"
	"go.uber.org/zap"
)

// RouterConfig carries everything the HTTP API depends on.
type RouterConfig struct {
	Identity     *services.IdentityService
	Tasks        *services.TaskService
	AI           *services.AIService
	SessionStore sessions.Store
	Metrics      *metrics.Metrics
	Logger       *zap.Logger
	MockLogin    bool
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.GinHandleMiddleware())
		r.GET("/metrics", cfg.Metrics.Handler())
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, cfg.SessionStore))

	authHandler := NewAuthHandler(cfg.Identity, cfg.MockLogin)
	taskHandler := NewTaskHandler(cfg.Tasks)
	userHandler := NewUserHandler(cfg.Tasks)
	aiHandler := NewAIHandler(cfg.AI)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "TaskPilot API is running",
			"ai":      cfg.AI.Enabled(),
		})
	})

	requireActor := []gin.HandlerFunc{middleware.RequireAuth(), middleware.RequireActor(cfg.Identity)}

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", append(requireActor, authHandler.GetCurrentUser)...)
		}

		users := api.Group("/users")
		users.Use(requireActor...)
		{
			users.GET("", userHandler.ListUsers)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireActor...)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PUT("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
		}

		ai := api.Group("/ai")
		ai.Use(requireActor...)
		{
			ai.POST("/suggest-description", aiHandler.SuggestDescription)
			ai.POST("/weekly-summary", aiHandler.WeeklySummary)
		}
	}

	return r
}
