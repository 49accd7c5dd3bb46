package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskdesk/api/handler"
)

// WebhookPath is where Telegram pushes updates in webhook mode.
const WebhookPath = "/telegram/webhook"

type Handlers struct {
	Health  *apiHandler.HealthHandler
	Task    *apiHandler.TaskHandler
	Report  *apiHandler.ReportHandler
	Webhook *apiHandler.WebhookHandler // nil in polling mode
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	if handlers.Webhook != nil {
		r.POST(WebhookPath, handlers.Webhook.Receive)
	}

	// Admin read API
	r.GET("/api/v1/tasks", authMiddleware(handlers.Task.GetTasks))
	r.GET("/api/v1/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	r.GET("/api/v1/report", authMiddleware(handlers.Report.GetReport))

	return r
}
