package router

import (
	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/handler"
)

func EventRouter(rg *gin.RouterGroup, h *handler.EventStreamHandler) {
	rg.GET("/stream", h.Stream)
}
