package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/handler"
)

func MeetingRouter(rg *gin.RouterGroup, h *handler.MeetingHandler) {
	rg.POST("/:id/recordings", h.SubmitRecording)
	rg.DELETE("/:id/processing", h.CancelProcessing)
	rg.GET("/:id/stages", h.Stages)
	rg.GET("/:id/events", h.Events)
}
