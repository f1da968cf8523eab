package recall_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"basegraph.app/meetrelay/internal/recall"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		ctx     context.Context
		server  *httptest.Server
		handler http.HandlerFunc
		client  recall.Client
		calls   atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		calls.Store(0)
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			handler(w, r)
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = recall.New(recall.Config{
			APIKey:     "test-key",
			BaseURL:    server.URL + "/",
			Timeout:    2 * time.Second,
			MaxRetries: 2,
			RetryWait:  time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires an API key", func() {
		_, err := recall.New(recall.Config{BaseURL: "https://api.recall.ai/api/v1"})
		Expect(err).To(HaveOccurred())
	})

	It("fetches a bot with token auth", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodGet))
			Expect(r.URL.Path).To(Equal("/bot/bot_1"))
			Expect(r.Header.Get("Authorization")).To(Equal("Token test-key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"id": "bot_1",
				"status_changes": [
					{"code": "joining_call", "sub_code": null, "created_at": "2026-03-02T15:00:00Z"},
					{"code": "fatal", "sub_code": "meeting_not_found", "message": "no meeting", "created_at": "2026-03-02T15:01:00Z"}
				],
				"recordings": [{"id": "rec_1", "created_at": "2026-03-02T15:00:30Z"}]
			}`))
		}

		bot, err := client.GetBot(ctx, "bot_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(bot.Status()).To(Equal("fatal"))
		Expect(bot.LatestRecordingID()).To(Equal("rec_1"))

		m := bot.ToModel()
		Expect(m.ID).To(Equal("bot_1"))
		Expect(m.Terminal()).To(BeTrue())
		Expect(m.StatusHistory).To(HaveLen(2))
		Expect(m.StatusHistory[0].SubCode).To(BeNil())
		Expect(*m.StatusHistory[1].SubCode).To(Equal("meeting_not_found"))
	})

	It("returns a ProviderError matching ErrNotFound on 404", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail": "Not found."}`))
		}

		_, err := client.GetBot(ctx, "missing")
		Expect(errors.Is(err, recall.ErrNotFound)).To(BeTrue())

		var pe *recall.ProviderError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Status).To(Equal(http.StatusNotFound))
		Expect(pe.Message).To(Equal("Not found."))
		Expect(pe.Retryable()).To(BeFalse())
		Expect(calls.Load()).To(Equal(int32(1)))
	})

	It("retries server errors before giving up", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}

		_, err := client.GetScreenshots(ctx, "bot_1")
		var pe *recall.ProviderError
		Expect(errors.As(err, &pe)).To(BeTrue())
		Expect(pe.Status).To(Equal(http.StatusBadGateway))
		Expect(recall.IsRetryable(err)).To(BeTrue())
		Expect(calls.Load()).To(Equal(int32(3)))
	})

	It("recovers when a retry succeeds", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			if calls.Load() == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"results": [{"id": "s1", "url": "https://cdn/s1.png"}]}`))
		}

		shots, err := client.GetScreenshots(ctx, "bot_1")
		Expect(err).NotTo(HaveOccurred())
		Expect(shots).To(HaveLen(1))
		Expect(shots[0].URL).To(Equal("https://cdn/s1.png"))
	})

	DescribeTable("recording actions",
		func(call func(recall.Client) error, path string) {
			var gotPath, gotMethod string
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod = r.URL.Path, r.Method
				w.WriteHeader(http.StatusNoContent)
			}
			Expect(call(client)).To(Succeed())
			Expect(gotMethod).To(Equal(http.MethodPost))
			Expect(gotPath).To(Equal(path))
		},
		Entry("start", func(c recall.Client) error { return c.StartRecording(context.Background(), "b1") }, "/bot/b1/recording/start"),
		Entry("stop", func(c recall.Client) error { return c.StopRecording(context.Background(), "b1") }, "/bot/b1/recording/stop"),
		Entry("pause", func(c recall.Client) error { return c.PauseRecording(context.Background(), "b1") }, "/bot/b1/recording/pause"),
		Entry("resume", func(c recall.Client) error { return c.ResumeRecording(context.Background(), "b1") }, "/bot/b1/recording/resume"),
	)

	It("fetches and flattens a transcript", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/recording/rec_1/transcript"))
			_, _ = w.Write([]byte(`[
				{"speaker": "Ana", "words": [{"text": "hello", "start_timestamp": 1.0, "end_timestamp": 1.4}, {"text": "all", "start_timestamp": 1.5, "end_timestamp": 1.9}]},
				{"speaker": "", "words": [{"text": "hi", "start_timestamp": 2.0, "end_timestamp": 2.2}]},
				{"speaker": "Bo", "words": []}
			]`))
		}

		entries, err := client.GetTranscript(ctx, "rec_1")
		Expect(err).NotTo(HaveOccurred())

		t := recall.ToTranscript(7, "rec_1", entries)
		Expect(t.MeetingID).To(Equal(int64(7)))
		Expect(t.Segments).To(HaveLen(2))
		Expect(t.Segments[0].Text).To(Equal("hello all"))
		Expect(t.Segments[0].Start).To(Equal(1.0))
		Expect(t.Segments[0].End).To(Equal(1.9))
		Expect(t.Segments[1].Speaker).To(Equal("Unknown"))
		Expect(t.Text).To(Equal("Ana: hello all\nUnknown: hi"))
	})
})

var _ = Describe("IsRetryable", func() {
	It("treats transport errors as transient", func() {
		Expect(recall.IsRetryable(errors.New("connection reset"))).To(BeTrue())
	})

	It("does not retry client errors", func() {
		Expect(recall.IsRetryable(&recall.ProviderError{Status: 400})).To(BeFalse())
	})

	It("retries rate limiting", func() {
		Expect(recall.IsRetryable(&recall.ProviderError{Status: 429})).To(BeTrue())
	})

	It("is false for nil", func() {
		Expect(recall.IsRetryable(nil)).To(BeFalse())
	})
})
