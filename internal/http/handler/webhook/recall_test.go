package webhook_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/dispatch"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/http/handler/webhook"
	"basegraph.app/meetrelay/internal/notify"
	"basegraph.app/meetrelay/internal/service"
	"basegraph.app/meetrelay/internal/signature"
)

type mockWebhookService struct {
	ingestFn func(ctx context.Context, env signature.Envelope) (*service.WebhookResult, error)
	got      signature.Envelope
}

func (m *mockWebhookService) Ingest(ctx context.Context, env signature.Envelope) (*service.WebhookResult, error) {
	m.got = env
	return m.ingestFn(ctx, env)
}

var _ = Describe("RecallWebhookHandler", func() {
	var (
		router *gin.Engine
		svc    *mockWebhookService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockWebhookService{}
		router.POST("/webhooks/recall", webhook.NewRecallWebhookHandler(svc).HandleEvent)
	})

	deliver := func(headers map[string]string, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/recall", bytes.NewBufferString(body))
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("passes the svix headers and raw body to the service", func() {
		svc.ingestFn = func(context.Context, signature.Envelope) (*service.WebhookResult, error) {
			return &service.WebhookResult{EventType: domain.EventType("bot.done"), Handled: true}, nil
		}

		w := deliver(map[string]string{
			"svix-id":        "msg_1",
			"svix-timestamp": "1700000000",
			"svix-signature": "v1,abc",
		}, `{"event":"bot.done"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"success":true}`))
		Expect(svc.got.ID).To(Equal("msg_1"))
		Expect(svc.got.Timestamp).To(Equal("1700000000"))
		Expect(svc.got.Signatures).To(Equal("v1,abc"))
		Expect(string(svc.got.Body)).To(Equal(`{"event":"bot.done"}`))
	})

	It("accepts the webhook-* header names", func() {
		svc.ingestFn = func(context.Context, signature.Envelope) (*service.WebhookResult, error) {
			return &service.WebhookResult{}, nil
		}

		deliver(map[string]string{"webhook-id": "msg_2", "webhook-signature": "v1,def"}, `{}`)

		Expect(svc.got.ID).To(Equal("msg_2"))
		Expect(svc.got.Signatures).To(Equal("v1,def"))
	})

	It("returns 401 for an invalid signature", func() {
		svc.ingestFn = func(context.Context, signature.Envelope) (*service.WebhookResult, error) {
			return nil, service.ErrInvalidSignature
		}

		w := deliver(nil, `{"event":"bot.done"}`)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"invalid signature"}`))
	})

	It("returns 500 when processing fails", func() {
		svc.ingestFn = func(context.Context, signature.Envelope) (*service.WebhookResult, error) {
			return nil, errors.New("retry queue unavailable")
		}

		w := deliver(nil, `{"event":"bot.done"}`)

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"webhook processing failed"}`))
	})

	It("rejects an oversized body without calling the service", func() {
		called := false
		svc.ingestFn = func(context.Context, signature.Envelope) (*service.WebhookResult, error) {
			called = true
			return &service.WebhookResult{}, nil
		}

		w := deliver(nil, `{"event":"bot.done","pad":"`+strings.Repeat("x", 1<<20)+`"}`)

		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"request body too large"}`))
		Expect(called).To(BeFalse())
	})
})

var _ = Describe("RecallWebhookHandler with the real ingest path", func() {
	var (
		router      *gin.Engine
		secret      = "whsec_" + base64.StdEncoding.EncodeToString([]byte("integration-signing-key"))
		idempotency *memIdempotency
		eventLog    *memEventLog
		broadcaster *countingBroadcaster
		producer    *recordingProducer
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		verifier, err := signature.NewVerifier([]string{secret})
		Expect(err).NotTo(HaveOccurred())

		idempotency = &memIdempotency{claimed: map[string]bool{}}
		eventLog = &memEventLog{}
		broadcaster = &countingBroadcaster{}
		producer = &recordingProducer{}

		// Store-backed handlers get nil stores: an unknown event type must
		// never reach them.
		publisher := events.NewPublisher(eventLog, broadcaster)
		dispatcher := dispatch.NewRouter(
			dispatch.NewBotHandler(nil, nil, diagnosis.NewEngine("us-east-1"), publisher, nil, notify.Noop{}),
			dispatch.NewTranscriptHandler(nil, nil),
			dispatch.NewMediaHandler(nil),
		)
		webhooks := service.NewWebhookService(verifier, idempotency, dispatcher, producer, nil)

		router = gin.New()
		router.POST("/webhooks/recall", webhook.NewRecallWebhookHandler(webhooks).HandleEvent)
	})

	signedRequest := func(id, body string) *http.Request {
		ts := time.Now()
		sig, err := signature.Sign(secret, id, ts, []byte(body))
		Expect(err).NotTo(HaveOccurred())

		req := httptest.NewRequest(http.MethodPost, "/webhooks/recall", bytes.NewBufferString(body))
		req.Header.Set("svix-id", id)
		req.Header.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
		req.Header.Set("svix-signature", sig)
		return req
	}

	It("acknowledges a signed unknown event type without publishing anything", func() {
		req := signedRequest("msg_unknown", `{"event":"totally_unknown_type","data":{"bot":{"id":"bot_1"}}}`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"success":true}`))
		Expect(eventLog.events).To(BeEmpty())
		Expect(broadcaster.count).To(BeZero())
		Expect(producer.tasks).To(BeEmpty())
		Expect(idempotency.claimed).To(HaveKey("msg_unknown"))
	})

	It("rejects the same delivery with a tampered body", func() {
		req := signedRequest("msg_tampered", `{"event":"totally_unknown_type"}`)
		req.Body = http.NoBody
		req.ContentLength = 0
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(idempotency.claimed).To(BeEmpty())
	})
})
