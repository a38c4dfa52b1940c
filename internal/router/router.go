package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskledger/api/handler"
)

type Handlers struct {
	Health *apiHandler.HealthHandler
	Chat   *apiHandler.ChatHandler
	Task   *apiHandler.TaskHandler
	Report *apiHandler.ReportHandler
	Admin  *apiHandler.AdminHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, auth, admin Middleware) *router.Router {
	r := router.New()
	adminOnly := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return auth(admin(h))
	}

	r.GET("/health", handlers.Health.Check)

	r.POST("/api/v1/chat", auth(handlers.Chat.Handle))

	r.GET("/api/v1/tasks", auth(handlers.Task.ListTasks))
	r.POST("/api/v1/tasks", adminOnly(handlers.Task.CreateTasks))
	r.POST("/api/v1/tasks/{id}/toggle", auth(handlers.Task.ToggleTask))

	r.GET("/api/v1/stats", adminOnly(handlers.Report.Stats))
	r.GET("/api/v1/export", adminOnly(handlers.Report.Export))

	r.POST("/api/v1/admin/materialize", adminOnly(handlers.Admin.Materialize))
	r.POST("/api/v1/admin/rollover", adminOnly(handlers.Admin.RollOver))
	r.GET("/api/v1/admin/admins", adminOnly(handlers.Admin.ListAdmins))
	r.POST("/api/v1/admin/admins", adminOnly(handlers.Admin.AddAdmin))
	r.DELETE("/api/v1/admin/admins/{id}", adminOnly(handlers.Admin.RemoveAdmin))

	return r
}
