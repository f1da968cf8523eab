package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"basegraph.app/meetrelay/internal/http/handler"
)

var _ = Describe("EventStreamHandler", func() {
	var (
		router *gin.Engine
		reader *scriptedReader
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		reader = &scriptedReader{}
		router.GET("/events/stream", handler.NewEventStreamHandler(reader, "meetrelay_domain_events").Stream)
	})

	stream := func(path string) *httptest.ResponseRecorder {
		ctx, cancel := context.WithCancel(context.Background())
		DeferCleanup(cancel)
		reader.cancel = cancel
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx))
		return w
	}

	It("streams only events for the requested correlation id", func() {
		reader.results = []redis.XStream{
			{Stream: "meetrelay_domain_events", Messages: []redis.XMessage{
				{ID: "1-0", Values: map[string]any{"event_type": "meeting.ended", "correlation_id": "meeting_7", "event": `{"id":"evt_1"}`}},
				{ID: "2-0", Values: map[string]any{"event_type": "bot.fatal", "correlation_id": "meeting_8", "event": `{"id":"evt_2"}`}},
			}},
		}

		w := stream("/events/stream?correlation_id=meeting_7")

		Expect(w.Header().Get("Content-Type")).To(Equal("text/event-stream"))
		body := w.Body.String()
		Expect(body).To(ContainSubstring("event: ping\ndata: ready\n\n"))
		Expect(body).To(ContainSubstring("id: 1-0\nevent: meeting.ended\ndata: {\"id\":\"evt_1\"}\n\n"))
		Expect(body).NotTo(ContainSubstring("evt_2"))
	})

	It("resumes from the last delivered id and pings when idle", func() {
		reader.results = []redis.XStream{
			{Stream: "meetrelay_domain_events", Messages: []redis.XMessage{
				{ID: "5-0", Values: map[string]any{"event_type": "meeting.ended", "correlation_id": "meeting_7", "event": `{}`}},
			}},
			{},
		}

		w := stream("/events/stream")

		Expect(reader.args).To(HaveLen(3))
		Expect(reader.args[0].Streams).To(Equal([]string{"meetrelay_domain_events", "$"}))
		Expect(reader.args[1].Streams).To(Equal([]string{"meetrelay_domain_events", "5-0"}))
		Expect(w.Body.String()).To(MatchRegexp(`event: ping\ndata: \d{4}-`))
	})

	It("starts from last_id when given", func() {
		w := stream("/events/stream?last_id=9-0")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(reader.args[0].Streams[1]).To(Equal("9-0"))
	})
})
