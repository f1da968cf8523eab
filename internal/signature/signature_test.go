package signature_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"basegraph.app/meetrelay/internal/signature"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var (
	secret      = "whsec_" + base64.StdEncoding.EncodeToString([]byte("primary-signing-key-0123456789"))
	otherSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("rotated-signing-key-9876543210"))
	body        = []byte(`{"event":"bot.done","data":{"bot":{"id":"bot_123"}}}`)
	now         = time.Unix(1_760_000_000, 0)
)

func signedEnvelope(s string, ts time.Time, payload []byte) signature.Envelope {
	sig, err := signature.Sign(s, "msg_1", ts, payload)
	Expect(err).NotTo(HaveOccurred())
	return signature.Envelope{
		ID:         "msg_1",
		Timestamp:  strconv.FormatInt(ts.Unix(), 10),
		Signatures: sig,
		Body:       payload,
	}
}

var _ = Describe("Check", func() {
	It("accepts a freshly signed envelope", func() {
		env := signedEnvelope(secret, now, body)
		Expect(signature.Check(env, secret, now)).To(Succeed())
		Expect(signature.Verify(env, secret, now)).To(BeTrue())
	})

	It("accepts a secret without the whsec_ prefix", func() {
		env := signedEnvelope(secret, now, body)
		Expect(signature.Verify(env, secret[len("whsec_"):], now)).To(BeTrue())
	})

	DescribeTable("enforces the replay window even with a correct digest",
		func(offset time.Duration, ok bool) {
			env := signedEnvelope(secret, now.Add(offset), body)
			Expect(signature.Verify(env, secret, now)).To(Equal(ok))
		},
		Entry("just signed", time.Duration(0), true),
		Entry("at the edge in the past", -300*time.Second, true),
		Entry("at the edge in the future", 300*time.Second, true),
		Entry("stale", -301*time.Second, false),
		Entry("far in the future", 10*time.Minute, false),
	)

	It("reports skew before doing any digest work", func() {
		env := signedEnvelope(secret, now.Add(-time.Hour), body)
		Expect(signature.Check(env, "not base64!", now)).To(MatchError(signature.ErrTimestampSkew))
	})

	It("rejects a single-byte body mutation", func() {
		env := signedEnvelope(secret, now, body)
		mutated := append([]byte(nil), body...)
		mutated[10] ^= 0x01
		env.Body = mutated
		Expect(signature.Check(env, secret, now)).To(MatchError(signature.ErrNoMatch))
	})

	It("matches any entry of a rotated signature set", func() {
		env := signedEnvelope(secret, now, body)
		env.Signatures = "v1,Z2FyYmFnZQ== " + env.Signatures + " v1a,whatever"
		Expect(signature.Verify(env, secret, now)).To(BeTrue())
	})

	It("rejects when no entry matches", func() {
		env := signedEnvelope(otherSecret, now, body)
		Expect(signature.Verify(env, secret, now)).To(BeFalse())
	})

	DescribeTable("rejects missing or malformed headers",
		func(mutate func(*signature.Envelope), expected error) {
			env := signedEnvelope(secret, now, body)
			mutate(&env)
			Expect(signature.Check(env, secret, now)).To(MatchError(expected))
		},
		Entry("no id", func(e *signature.Envelope) { e.ID = "" }, signature.ErrMissingHeaders),
		Entry("no timestamp", func(e *signature.Envelope) { e.Timestamp = "" }, signature.ErrMissingHeaders),
		Entry("no signatures", func(e *signature.Envelope) { e.Signatures = "" }, signature.ErrMissingHeaders),
		Entry("non-numeric timestamp", func(e *signature.Envelope) { e.Timestamp = "yesterday" }, signature.ErrInvalidTimestamp),
		Entry("entry without version", func(e *signature.Envelope) { e.Signatures = "nocomma" }, signature.ErrNoMatch),
	)

	It("rejects an undecodable secret", func() {
		env := signedEnvelope(secret, now, body)
		Expect(signature.Check(env, "whsec_%%%", now)).To(MatchError(signature.ErrInvalidSecret))
	})
})

var _ = Describe("Equal", func() {
	It("rejects different lengths", func() {
		Expect(signature.Equal("abc", "abcd")).To(BeFalse())
		Expect(signature.Equal("", "a")).To(BeFalse())
	})

	It("compares equal-length strings byte for byte", func() {
		Expect(signature.Equal("abcd", "abcd")).To(BeTrue())
		Expect(signature.Equal("abcd", "abce")).To(BeFalse())
	})
})

var _ = Describe("FromHeaders", func() {
	It("prefers svix headers", func() {
		h := http.Header{}
		h.Set("Svix-Id", "svix")
		h.Set("Webhook-Id", "webhook")
		h.Set("svix-timestamp", "1")
		h.Set("svix-signature", "v1,x")
		env := signature.FromHeaders(h, body)
		Expect(env.ID).To(Equal("svix"))
		Expect(env.Timestamp).To(Equal("1"))
		Expect(env.Signatures).To(Equal("v1,x"))
	})

	It("falls back to webhook-* names", func() {
		h := http.Header{}
		h.Set("webhook-id", "wh")
		h.Set("WEBHOOK-TIMESTAMP", "2")
		h.Set("webhook-signature", "v1,y")
		env := signature.FromHeaders(h, body)
		Expect(env.ID).To(Equal("wh"))
		Expect(env.Timestamp).To(Equal("2"))
		Expect(env.Signatures).To(Equal("v1,y"))
	})
})

var _ = Describe("Verifier", func() {
	clock := func() time.Time { return now }

	It("requires a secret", func() {
		_, err := signature.NewVerifier(nil)
		Expect(err).To(HaveOccurred())
	})

	It("rejects an invalid configured secret", func() {
		_, err := signature.NewVerifier([]string{"whsec_***"})
		Expect(err).To(MatchError(signature.ErrInvalidSecret))
	})

	It("accepts envelopes signed by any configured secret", func() {
		v, err := signature.NewVerifier([]string{secret, otherSecret}, signature.WithClock(clock))
		Expect(err).NotTo(HaveOccurred())

		Expect(v.Verify(context.Background(), signedEnvelope(secret, now, body))).To(BeTrue())
		Expect(v.Verify(context.Background(), signedEnvelope(otherSecret, now, body))).To(BeTrue())
	})

	It("rejects a replayed envelope", func() {
		v, err := signature.NewVerifier([]string{secret}, signature.WithClock(clock))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.Verify(context.Background(), signedEnvelope(secret, now.Add(-6*time.Minute), body))).To(BeFalse())
	})
})
