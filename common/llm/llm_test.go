package llm_test

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/meetrelay/common/llm"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sample struct {
	Summary string   `json:"summary"`
	Points  []string `json:"points"`
}

var _ = Describe("IsRetryable", func() {
	DescribeTable("classifies errors",
		func(err error, expected bool) {
			Expect(llm.IsRetryable(err)).To(Equal(expected))
		},
		Entry("nil", nil, false),
		Entry("cancelled", context.Canceled, false),
		Entry("wrapped deadline", fmt.Errorf("openai chat: %w", context.DeadlineExceeded), false),
		Entry("transport error", errors.New("connection reset by peer"), true),
	)
})

var _ = Describe("GenerateSchema", func() {
	It("produces a schema for the target type", func() {
		Expect(llm.GenerateSchema[sample]()).NotTo(BeNil())
	})
})

var _ = Describe("New", func() {
	It("requires an API key", func() {
		_, err := llm.New(llm.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("defaults the model", func() {
		c, err := llm.New(llm.Config{APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Model()).To(Equal("gpt-4o-mini"))
	})
})

var _ = Describe("IsRetryable for answer problems", func() {
	It("does not retry refusals or truncated answers", func() {
		Expect(llm.IsRetryable(fmt.Errorf("%w: policy", llm.ErrRefused))).To(BeFalse())
		Expect(llm.IsRetryable(llm.ErrTruncated)).To(BeFalse())
	})
})
