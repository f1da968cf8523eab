package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/meetrelay/internal/http/handler"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/service"
)

var _ = Describe("MeetingHandler", func() {
	var (
		router *gin.Engine
		svc    *mockMeetingService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockMeetingService{}
		h := handler.NewMeetingHandler(svc)
		router.POST("/meetings/:id/recordings", h.SubmitRecording)
		router.DELETE("/meetings/:id/processing", h.CancelProcessing)
		router.GET("/meetings/:id/stages", h.Stages)
		router.GET("/meetings/:id/events", h.Events)
	})

	submit := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("SubmitRecording", func() {
		It("returns 202 once the recording is queued", func() {
			var gotMeeting int64
			var gotRecording string
			svc.submitFn = func(_ context.Context, meetingID int64, recordingID string) error {
				gotMeeting, gotRecording = meetingID, recordingID
				return nil
			}

			w := submit("/meetings/42/recordings", `{"recording_id":"rec_1"}`)

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(gotMeeting).To(Equal(int64(42)))
			Expect(gotRecording).To(Equal("rec_1"))
		})

		It("returns 400 for a non-numeric meeting id", func() {
			w := submit("/meetings/abc/recordings", `{"recording_id":"rec_1"}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 when recording_id is missing", func() {
			w := submit("/meetings/42/recordings", `{}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for an unknown meeting", func() {
			svc.submitFn = func(context.Context, int64, string) error {
				return service.ErrMeetingNotFound
			}

			w := submit("/meetings/42/recordings", `{"recording_id":"rec_1"}`)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 409 when the meeting cannot start processing", func() {
			svc.submitFn = func(context.Context, int64, string) error {
				return fmt.Errorf("meeting 42 from completed to transcribing: %w", pipeline.ErrInvalidTransition)
			}

			w := submit("/meetings/42/recordings", `{"recording_id":"rec_1"}`)

			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("returns 500 on unexpected errors", func() {
			svc.submitFn = func(context.Context, int64, string) error {
				return errors.New("queue down")
			}

			w := submit("/meetings/42/recordings", `{"recording_id":"rec_1"}`)

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("CancelProcessing", func() {
		It("returns 200 on success", func() {
			svc.cancelFn = func(context.Context, int64) error { return nil }

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/meetings/7/processing", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		It("returns 409 for a finished meeting", func() {
			svc.cancelFn = func(context.Context, int64) error { return pipeline.ErrInvalidTransition }

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/meetings/7/processing", nil))

			Expect(w.Code).To(Equal(http.StatusConflict))
		})
	})

	It("lists stage runs", func() {
		msg := "transcript unavailable"
		svc.stagesFn = func(_ context.Context, meetingID int64) ([]model.StageRun, error) {
			return []model.StageRun{
				{ID: 1, MeetingID: meetingID, Stage: model.StageTranscribing, Attempt: 1, Status: model.StageRunFailed, Error: &msg, StartedAt: time.Now()},
			}, nil
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meetings/7/stages", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp []map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(HaveLen(1))
		Expect(resp[0]["id"]).To(Equal("1"))
		Expect(resp[0]["error"]).To(Equal(msg))
	})

	It("lists the meeting's domain events", func() {
		svc.eventsFn = func(_ context.Context, meetingID int64) ([]model.DomainEvent, error) {
			return []model.DomainEvent{
				{ID: "evt_1", EventType: "meeting.ended", CorrelationID: model.MeetingCorrelationID(meetingID), Payload: []byte(`{}`)},
			}, nil
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/meetings/7/events", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"correlation_id":"meeting_7"`))
	})
})
