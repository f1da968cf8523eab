package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/handler"
)

func BotRouter(rg *gin.RouterGroup, troubleshooting *handler.TroubleshootingHandler, recording *handler.RecordingHandler) {
	rg.GET("/:botId/status", troubleshooting.Status)
	rg.GET("/:botId/diagnose", troubleshooting.Diagnose)
	rg.GET("/:botId/screenshots", troubleshooting.Screenshots)
	rg.GET("/:botId/explorer", troubleshooting.Explorer)
	rg.GET("/:botId/troubleshoot", troubleshooting.Troubleshoot)
	rg.POST("/:botId/recording/:action", recording.Control)
}
