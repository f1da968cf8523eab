package pipeline_test

import (
	"context"
	"errors"

	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/queue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func meetingAt(id int64, stage model.Stage) model.Meeting {
	botID := "bot_1"
	return model.Meeting{
		ID:               id,
		Title:            "Weekly sync",
		BotID:            &botID,
		Stage:            stage,
		TranscriptStatus: model.TranscriptPending,
		ArtifactsStatus:  model.ArtifactsPending,
	}
}

var _ = Describe("Coordinator", func() {
	var (
		ctx         context.Context
		meetings    *memMeetings
		producer    *mockProducer
		publisher   *mockPublisher
		cancels     *mockCancels
		coordinator *pipeline.Coordinator
	)

	BeforeEach(func() {
		ctx = context.Background()
		meetings = newMemMeetings(
			meetingAt(1, model.StageRecording),
			meetingAt(2, model.StageTranscribing),
			meetingAt(3, model.StageCompleted),
			meetingAt(4, model.StageScheduled),
		)
		producer = &mockProducer{}
		publisher = &mockPublisher{}
		cancels = &mockCancels{}
		coordinator = pipeline.NewCoordinator(meetings, producer, publisher, cancels)
	})

	Describe("BeginTranscription", func() {
		It("moves the meeting to transcribing and queues retrieval", func() {
			Expect(coordinator.BeginTranscription(ctx, 1, "rec_1", "bot_bot_1")).To(Succeed())

			m := meetings.get(1)
			Expect(m.Stage).To(Equal(model.StageTranscribing))
			Expect(m.TranscriptStatus).To(Equal(model.TranscriptProcessing))
			Expect(*m.RecordingID).To(Equal("rec_1"))

			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeTranscriptRetrieval))
			Expect(*producer.tasks[0].MeetingID).To(Equal(int64(1)))
			Expect(producer.tasks[0].RecordingID).To(Equal("rec_1"))
			Expect(producer.tasks[0].CausationID).To(Equal("bot_bot_1"))
		})

		It("leaves the recording unset when none is known", func() {
			Expect(coordinator.BeginTranscription(ctx, 4, "", "bot_bot_1")).To(Succeed())
			Expect(meetings.get(4).RecordingID).To(BeNil())
			Expect(producer.tasks[0].RecordingID).To(BeEmpty())
		})

		It("queues retrieval again when transcription is already underway", func() {
			Expect(coordinator.BeginTranscription(ctx, 2, "rec_1", "x")).To(Succeed())
			Expect(meetings.get(2).Stage).To(Equal(model.StageTranscribing))
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeTranscriptRetrieval))
			Expect(producer.tasks[0].RecordingID).To(Equal("rec_1"))
		})

		It("reuses the stored recording when requeueing", func() {
			Expect(coordinator.BeginTranscription(ctx, 1, "rec_1", "x")).To(Succeed())
			Expect(coordinator.BeginTranscription(ctx, 1, "", "x")).To(Succeed())
			Expect(producer.tasks).To(HaveLen(2))
			Expect(producer.tasks[1].RecordingID).To(Equal("rec_1"))
		})

		It("leaves a meeting that is already extracting alone", func() {
			meetings.meetings[2].Stage = model.StageExtracting
			Expect(coordinator.BeginTranscription(ctx, 2, "rec_1", "x")).To(Succeed())
			Expect(producer.tasks).To(BeEmpty())
		})

		It("refuses a finished meeting", func() {
			err := coordinator.BeginTranscription(ctx, 3, "rec_1", "x")
			Expect(errors.Is(err, pipeline.ErrInvalidTransition)).To(BeTrue())
			Expect(producer.tasks).To(BeEmpty())
		})

		It("surfaces queue failures", func() {
			producer.err = errors.New("redis down")
			Expect(coordinator.BeginTranscription(ctx, 1, "rec_1", "x")).To(MatchError(ContainSubstring("redis down")))
		})

		It("queues retrieval on the retry after a failed enqueue", func() {
			producer.err = errors.New("redis down")
			Expect(coordinator.BeginTranscription(ctx, 1, "rec_1", "bot_bot_1")).NotTo(Succeed())
			Expect(meetings.get(1).Stage).To(Equal(model.StageTranscribing))

			producer.err = nil
			Expect(coordinator.BeginTranscription(ctx, 1, "rec_1", "bot_bot_1")).To(Succeed())
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeTranscriptRetrieval))
			Expect(producer.tasks[0].RecordingID).To(Equal("rec_1"))
		})
	})

	Describe("BeginExtraction", func() {
		It("moves the meeting to extracting and queues extraction", func() {
			Expect(coordinator.BeginExtraction(ctx, 2, "transcript_rec_1")).To(Succeed())
			Expect(meetings.get(2).Stage).To(Equal(model.StageExtracting))
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeArtifactExtraction))
			Expect(producer.tasks[0].CausationID).To(Equal("transcript_rec_1"))
		})

		It("refuses a finished meeting", func() {
			err := coordinator.BeginExtraction(ctx, 3, "x")
			Expect(errors.Is(err, pipeline.ErrInvalidTransition)).To(BeTrue())
		})

		It("queues extraction on the retry after a failed enqueue", func() {
			producer.err = errors.New("redis down")
			Expect(coordinator.BeginExtraction(ctx, 2, "transcript_rec_1")).NotTo(Succeed())
			Expect(meetings.get(2).Stage).To(Equal(model.StageExtracting))

			producer.err = nil
			Expect(coordinator.BeginExtraction(ctx, 2, "transcript_rec_1")).To(Succeed())
			Expect(producer.tasks).To(HaveLen(1))
			Expect(producer.tasks[0].TaskType).To(Equal(queue.TaskTypeArtifactExtraction))
		})
	})

	Describe("SubmitRecording", func() {
		It("requires a recording id", func() {
			Expect(coordinator.SubmitRecording(ctx, 1, "")).To(MatchError(pipeline.ErrRecordingRequired))
		})

		It("starts transcription for the recording", func() {
			Expect(coordinator.SubmitRecording(ctx, 4, "rec_9")).To(Succeed())
			Expect(producer.tasks[0].RecordingID).To(Equal("rec_9"))
			Expect(producer.tasks[0].CausationID).To(Equal("recording_rec_9"))
		})
	})

	Describe("MarkRecording", func() {
		It("moves a scheduled meeting to recording once", func() {
			Expect(coordinator.MarkRecording(ctx, 4, "bot_bot_1")).To(Succeed())
			Expect(meetings.get(4).Stage).To(Equal(model.StageRecording))
			Expect(publisher.types()).To(ConsistOf("meeting.recording_started"))

			Expect(coordinator.MarkRecording(ctx, 4, "bot_bot_1")).To(Succeed())
			Expect(publisher.types()).To(HaveLen(1))
		})

		It("leaves later stages alone", func() {
			Expect(coordinator.MarkRecording(ctx, 2, "x")).To(Succeed())
			Expect(meetings.get(2).Stage).To(Equal(model.StageTranscribing))
			Expect(publisher.types()).To(BeEmpty())
		})
	})

	Describe("FailTranscription", func() {
		It("fails the meeting and its transcript", func() {
			Expect(coordinator.FailTranscription(ctx, 2, "provider failed", "transcript_t1")).To(Succeed())

			m := meetings.get(2)
			Expect(m.Stage).To(Equal(model.StageFailed))
			Expect(m.TranscriptStatus).To(Equal(model.TranscriptFailed))
			Expect(*m.StageError).To(Equal("provider failed"))
			Expect(publisher.types()).To(Equal([]string{"transcript.failed", "meeting.failed"}))
			Expect(publisher.published[1].CausationID).To(Equal("transcript_t1"))
		})

		It("refuses a finished meeting", func() {
			err := coordinator.FailTranscription(ctx, 3, "late", "x")
			Expect(errors.Is(err, pipeline.ErrInvalidTransition)).To(BeTrue())
			Expect(publisher.types()).To(BeEmpty())
		})
	})

	Describe("Cancel", func() {
		It("fails the meeting, broadcasts the cancel and publishes an event", func() {
			Expect(coordinator.Cancel(ctx, 2)).To(Succeed())

			m := meetings.get(2)
			Expect(m.Stage).To(Equal(model.StageFailed))
			Expect(*m.StageError).To(Equal("processing cancelled"))
			Expect(cancels.published).To(ConsistOf(int64(2)))
			Expect(publisher.types()).To(ConsistOf("meeting.processing_cancelled"))
		})

		It("refuses a finished meeting", func() {
			err := coordinator.Cancel(ctx, 3)
			Expect(errors.Is(err, pipeline.ErrInvalidTransition)).To(BeTrue())
			Expect(cancels.published).To(BeEmpty())
		})
	})
})
