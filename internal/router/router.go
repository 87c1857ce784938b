package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/todo/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Health *apiHandler.HealthHandler
}

// New registers the task API. authMiddleware guards every /api/v1 route; nil leaves them open.
func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	if authMiddleware == nil {
		authMiddleware = func(next fasthttp.RequestHandler) fasthttp.RequestHandler { return next }
	}
	r := router.New()

	if handlers.Health != nil {
		r.GET("/health", handlers.Health.Check)
	}

	api := r.Group("/api/v1")
	api.GET("/tasks", authMiddleware(handlers.Task.ListTasks))
	api.POST("/tasks", authMiddleware(handlers.Task.CreateTask))
	api.DELETE("/tasks", authMiddleware(handlers.Task.DeleteTasks))
	api.GET("/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	api.PUT("/tasks/{id}", authMiddleware(handlers.Task.SaveTask))
	api.DELETE("/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	api.POST("/tasks/{id}/complete", authMiddleware(handlers.Task.CompleteTask))
	api.POST("/tasks/{id}/activate", authMiddleware(handlers.Task.ActivateTask))
	api.POST("/refresh", authMiddleware(handlers.Task.Refresh))
	api.GET("/stats", authMiddleware(handlers.Task.Stats))

	return r
}
