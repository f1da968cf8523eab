package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// StreamReader is the subset of the Redis client the event stream needs.
type StreamReader interface {
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
}

// EventStreamHandler tails the broadcast stream of domain events over SSE.
type EventStreamHandler struct {
	reader StreamReader
	stream string
	block  time.Duration
}

func NewEventStreamHandler(reader StreamReader, stream string) *EventStreamHandler {
	return &EventStreamHandler{reader: reader, stream: stream, block: 25 * time.Second}
}

// Stream sends every event appended after the request (or after last_id)
// whose correlation id matches correlation_id. Without correlation_id all
// events are sent.
func (h *EventStreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	if h.reader == nil || h.stream == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream not configured"})
		return
	}

	correlationID := c.Query("correlation_id")
	lastID := c.Query("last_id")
	if lastID == "" {
		lastID = "$"
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	setSSEHeaders(c.Writer)
	sseWrite(c.Writer, "ping", "ready")
	flusher.Flush()

	for {
		if ctx.Err() != nil {
			return
		}

		res, err := h.reader.XRead(ctx, &redis.XReadArgs{
			Streams: []string{h.stream, lastID},
			Block:   h.block,
			Count:   100,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				sseWrite(c.Writer, "ping", time.Now().UTC().Format(time.RFC3339Nano))
				flusher.Flush()
				continue
			}
			if ctx.Err() != nil {
				return
			}
			sseWrite(c.Writer, "error", map[string]string{"error": err.Error()})
			flusher.Flush()
			return
		}

		for _, streamRes := range res {
			for _, msg := range streamRes.Messages {
				lastID = msg.ID
				if correlationID != "" && fmt.Sprint(msg.Values["correlation_id"]) != correlationID {
					continue
				}
				event, _ := msg.Values["event"].(string)
				if event == "" {
					continue
				}
				sseWriteID(c.Writer, msg.ID, fmt.Sprint(msg.Values["event_type"]), json.RawMessage(event))
				flusher.Flush()
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, event string, data any) {
	sseWriteID(w, "", event, data)
}

func sseWriteID(w http.ResponseWriter, id, event string, data any) {
	payload := marshalPayload(data)
	if id != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", id)
	}
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	case json.RawMessage:
		return string(payload)
	default:
		bytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(bytes)
	}
}
