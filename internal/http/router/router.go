package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/handler"
	"basegraph.app/meetrelay/internal/http/handler/webhook"
	"basegraph.app/meetrelay/internal/service"
)

type RouterConfig struct {
	Webhooks    service.WebhookService
	EventReader handler.StreamReader
	EventStream string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewRecallWebhookHandler(cfg.Webhooks)
	WebhookRouter(router.Group("/webhooks"), webhookHandler)

	v1 := router.Group("/api/v1")
	{
		troubleshootingHandler := handler.NewTroubleshootingHandler(services.Troubleshooting())
		recordingHandler := handler.NewRecordingHandler(services.Recording())
		BotRouter(v1.Group("/bots"), troubleshootingHandler, recordingHandler)
		v1.GET("/troubleshooting/guide/:errorCode", troubleshootingHandler.Guide)

		meetingHandler := handler.NewMeetingHandler(services.Meetings())
		MeetingRouter(v1.Group("/meetings"), meetingHandler)

		eventsHandler := handler.NewEventStreamHandler(cfg.EventReader, cfg.EventStream)
		EventRouter(v1.Group("/events"), eventsHandler)
	}
}
