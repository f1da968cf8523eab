package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/service"
)

type TroubleshootingHandler struct {
	troubleshooting service.TroubleshootingService
}

func NewTroubleshootingHandler(troubleshooting service.TroubleshootingService) *TroubleshootingHandler {
	return &TroubleshootingHandler{troubleshooting: troubleshooting}
}

func (h *TroubleshootingHandler) Status(c *gin.Context) {
	status, err := h.troubleshooting.Status(c.Request.Context(), c.Param("botId"))
	if err != nil {
		providerError(c, "failed to fetch bot status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *TroubleshootingHandler) Diagnose(c *gin.Context) {
	diag, err := h.troubleshooting.Diagnose(c.Request.Context(), c.Param("botId"))
	if err != nil {
		providerError(c, "failed to diagnose bot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bot_id":    c.Param("botId"),
		"diagnosis": diag,
		"summary":   diag.Summary(),
	})
}

func (h *TroubleshootingHandler) Screenshots(c *gin.Context) {
	shots, err := h.troubleshooting.Screenshots(c.Request.Context(), c.Param("botId"))
	if err != nil {
		providerError(c, "failed to fetch screenshots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bot_id":      c.Param("botId"),
		"screenshots": shots,
		"count":       len(shots),
	})
}

func (h *TroubleshootingHandler) Explorer(c *gin.Context) {
	c.JSON(http.StatusOK, h.troubleshooting.Explorer(c.Param("botId")))
}

// Troubleshoot always answers 200; parts that could not be fetched are
// reported under "errors".
func (h *TroubleshootingHandler) Troubleshoot(c *gin.Context) {
	report := h.troubleshooting.Troubleshoot(c.Request.Context(), c.Param("botId"))
	c.JSON(http.StatusOK, report)
}

func (h *TroubleshootingHandler) Guide(c *gin.Context) {
	guide := h.troubleshooting.Guide(c.Param("errorCode"), c.Query("sub_code"))
	c.JSON(http.StatusOK, guide)
}

func providerError(c *gin.Context, msg string, err error) {
	ctx := c.Request.Context()
	if errors.Is(err, service.ErrBotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bot not found"})
		return
	}
	slog.ErrorContext(ctx, msg, "error", err, "bot_id", c.Param("botId"))
	c.JSON(http.StatusBadGateway, gin.H{"error": msg})
}
