package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/handler/webhook"
)

func WebhookRouter(rg *gin.RouterGroup, h *webhook.RecallWebhookHandler) {
	rg.POST("/recall", h.HandleEvent)
}
