package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/http/dto"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/service"
)

type MeetingHandler struct {
	meetings service.MeetingService
}

func NewMeetingHandler(meetings service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// SubmitRecording queues a recording for transcription and extraction.
// Processing happens on the worker; progress is visible through Stages and
// the event stream.
func (h *MeetingHandler) SubmitRecording(c *gin.Context) {
	ctx := c.Request.Context()

	meetingID, ok := meetingIDParam(c)
	if !ok {
		return
	}

	var req dto.SubmitRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.meetings.SubmitRecording(ctx, meetingID, req.RecordingID); err != nil {
		meetingError(c, "failed to submit recording", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"meeting_id":   strconv.FormatInt(meetingID, 10),
		"recording_id": req.RecordingID,
		"status":       "processing",
	})
}

func (h *MeetingHandler) CancelProcessing(c *gin.Context) {
	meetingID, ok := meetingIDParam(c)
	if !ok {
		return
	}

	if err := h.meetings.CancelProcessing(c.Request.Context(), meetingID); err != nil {
		meetingError(c, "failed to cancel processing", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *MeetingHandler) Stages(c *gin.Context) {
	meetingID, ok := meetingIDParam(c)
	if !ok {
		return
	}

	runs, err := h.meetings.Stages(c.Request.Context(), meetingID)
	if err != nil {
		meetingError(c, "failed to list stage runs", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToStageRunResponses(runs))
}

func (h *MeetingHandler) Events(c *gin.Context) {
	meetingID, ok := meetingIDParam(c)
	if !ok {
		return
	}

	events, err := h.meetings.Events(c.Request.Context(), meetingID)
	if err != nil {
		meetingError(c, "failed to list events", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToDomainEventResponses(events))
}

func meetingIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting id"})
		return 0, false
	}
	return id, true
}

func meetingError(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrMeetingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
	case errors.Is(err, pipeline.ErrRecordingRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.ErrorContext(ctx, msg, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
