package pipeline_test

import (
	"context"

	"basegraph.app/meetrelay/internal/pipeline"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Supervisor", func() {
	It("cancels only the tracked meeting", func() {
		s := pipeline.NewSupervisor()
		ctxA, doneA := s.Track(context.Background(), 1)
		ctxB, doneB := s.Track(context.Background(), 2)
		defer doneB()

		Expect(s.Cancel(1)).To(Equal(1))
		Expect(pipeline.Cancelled(ctxA)).To(BeTrue())
		Expect(ctxB.Err()).NotTo(HaveOccurred())
		Expect(pipeline.Cancelled(ctxB)).To(BeFalse())
		doneA()
	})

	It("forgets a run once it is done", func() {
		s := pipeline.NewSupervisor()
		ctx, done := s.Track(context.Background(), 1)
		Expect(s.Running(1)).To(Equal(1))
		done()
		Expect(s.Running(1)).To(BeZero())
		Expect(s.Cancel(1)).To(BeZero())
		Expect(pipeline.Cancelled(ctx)).To(BeFalse())
	})

	It("cancels every concurrent run of a meeting", func() {
		s := pipeline.NewSupervisor()
		ctx1, done1 := s.Track(context.Background(), 7)
		ctx2, done2 := s.Track(context.Background(), 7)
		defer done1()
		defer done2()

		Expect(s.Cancel(7)).To(Equal(2))
		Expect(pipeline.Cancelled(ctx1)).To(BeTrue())
		Expect(pipeline.Cancelled(ctx2)).To(BeTrue())
	})
})
