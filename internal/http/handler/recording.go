package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/service"
)

type RecordingHandler struct {
	recording service.RecordingService
}

func NewRecordingHandler(recording service.RecordingService) *RecordingHandler {
	return &RecordingHandler{recording: recording}
}

func (h *RecordingHandler) Control(c *gin.Context) {
	botID := c.Param("botId")
	action := service.RecordingAction(c.Param("action"))

	if err := h.recording.Control(c.Request.Context(), botID, action); err != nil {
		if errors.Is(err, service.ErrUnknownRecordingAction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown recording action"})
			return
		}
		providerError(c, "failed to control recording", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bot_id":  botID,
		"action":  action,
	})
}
