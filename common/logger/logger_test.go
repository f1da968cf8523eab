package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/meetrelay/core/config"
)

var _ = Describe("handler", func() {
	var buf *bytes.Buffer

	record := func(cfg config.Config, fn func(*slog.Logger)) map[string]any {
		buf = &bytes.Buffer{}
		fn(slog.New(newHandler(cfg, buf)))
		if buf.Len() == 0 {
			return nil
		}
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	prod := config.Config{Env: "production"}

	It("adds context log fields to every record", func() {
		ctx := WithLogFields(context.Background(), LogFields{
			BotID:     Ptr("bot_1"),
			MeetingID: Ptr(int64(42)),
			Component: "meetrelay.dispatch",
		})

		out := record(prod, func(l *slog.Logger) { l.InfoContext(ctx, "routed") })

		Expect(out).To(HaveKeyWithValue("bot_id", "bot_1"))
		Expect(out).To(HaveKeyWithValue("meeting_id", BeEquivalentTo(42)))
		Expect(out).To(HaveKeyWithValue("component", "meetrelay.dispatch"))
	})

	It("redacts signatures and credentials", func() {
		out := record(prod, func(l *slog.Logger) {
			l.Info("webhook", "svix-signature", "v1,abc", "authorization", "Bearer x", "envelope_id", "msg_1")
		})

		Expect(out).To(HaveKeyWithValue("svix-signature", "[redacted]"))
		Expect(out).To(HaveKeyWithValue("authorization", "[redacted]"))
		Expect(out).To(HaveKeyWithValue("envelope_id", "msg_1"))
	})

	It("honours LOG_LEVEL over the environment default", func() {
		cfg := config.Config{Env: "production", LogLevel: "warn"}

		out := record(cfg, func(l *slog.Logger) { l.Info("dropped") })

		Expect(out).To(BeNil())
	})

	It("drops debug records in production by default", func() {
		out := record(prod, func(l *slog.Logger) { l.Debug("dropped") })
		Expect(out).To(BeNil())
	})
})

var _ = Describe("LogFields", func() {
	It("lets later fields override earlier ones", func() {
		ctx := WithLogFields(context.Background(), LogFields{BotID: Ptr("a"), EventType: Ptr("bot.done")})
		ctx = WithLogFields(ctx, LogFields{BotID: Ptr("b")})

		fields := GetLogFields(ctx)
		Expect(*fields.BotID).To(Equal("b"))
		Expect(*fields.EventType).To(Equal("bot.done"))
	})

	It("truncates long values", func() {
		Expect(Truncate("abcdef", 3)).To(Equal("abc..."))
		Expect(Truncate("ab", 3)).To(Equal("ab"))
	})
})
