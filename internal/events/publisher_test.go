package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Publisher", func() {
	var (
		ctx         context.Context
		eventLog    *mockEventLog
		broadcaster *mockBroadcaster
		publisher   events.Publisher
		meetingID   int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		eventLog = &mockEventLog{}
		broadcaster = &mockBroadcaster{}
		publisher = events.NewPublisher(eventLog, broadcaster)
		meetingID = 42
	})

	params := func() events.PublishParams {
		return events.PublishParams{
			EventType:     domain.MeetingEnded,
			AggregateID:   "42",
			AggregateType: model.AggregateMeeting,
			MeetingID:     &meetingID,
			CausationID:   model.BotCausationID("bot_1"),
			Payload:       map[string]any{"botId": "bot_1"},
		}
	}

	It("appends and broadcasts the same event", func() {
		evt, err := publisher.Publish(ctx, params())
		Expect(err).NotTo(HaveOccurred())

		Expect(eventLog.appended).To(HaveLen(1))
		Expect(broadcaster.sent).To(HaveLen(1))
		Expect(eventLog.appended[0].ID).To(Equal(evt.ID))
		Expect(broadcaster.sent[0].ID).To(Equal(evt.ID))
	})

	It("fills id, timestamp, version and meeting correlation", func() {
		evt, err := publisher.Publish(ctx, params())
		Expect(err).NotTo(HaveOccurred())

		Expect(evt.ID).NotTo(BeEmpty())
		Expect(evt.OccurredAt).To(BeTemporally("~", time.Now(), 5*time.Second))
		Expect(evt.Version).To(Equal(1))
		Expect(evt.EventType).To(Equal("meeting.ended"))
		Expect(evt.CorrelationID).To(Equal("meeting_42"))
		Expect(evt.CausationID).To(Equal("bot_bot_1"))
		Expect(evt.DedupeKey).NotTo(BeEmpty())

		var payload map[string]any
		Expect(json.Unmarshal(evt.Payload, &payload)).To(Succeed())
		Expect(payload).To(HaveKeyWithValue("botId", "bot_1"))
	})

	It("keeps supplied id and correlation", func() {
		p := params()
		p.ID = "evt_fixed"
		p.CorrelationID = "custom"
		evt, err := publisher.Publish(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.ID).To(Equal("evt_fixed"))
		Expect(evt.CorrelationID).To(Equal("custom"))
	})

	It("falls back to the aggregate when no meeting is known", func() {
		p := params()
		p.MeetingID = nil
		p.AggregateType = model.AggregateBot
		p.AggregateID = "bot_1"
		evt, err := publisher.Publish(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.CorrelationID).To(Equal("bot_bot_1"))
	})

	It("derives the same dedupe key for a republished event", func() {
		first, err := publisher.Publish(ctx, params())
		Expect(err).NotTo(HaveOccurred())
		second, err := publisher.Publish(ctx, params())
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ID).NotTo(Equal(first.ID))
		Expect(second.DedupeKey).To(Equal(first.DedupeKey))
	})

	It("still broadcasts when the append fails", func() {
		eventLog.appendFn = func(context.Context, *model.DomainEvent) (bool, error) {
			return false, errors.New("db down")
		}
		_, err := publisher.Publish(ctx, params())
		Expect(err).To(MatchError(ContainSubstring("db down")))
		Expect(broadcaster.count()).To(Equal(1))
	})

	It("still appends when the broadcast fails", func() {
		broadcaster.broadcastFn = func(context.Context, model.DomainEvent) error {
			return errors.New("redis down")
		}
		_, err := publisher.Publish(ctx, params())
		Expect(err).To(MatchError(ContainSubstring("redis down")))
		Expect(eventLog.appended).To(HaveLen(1))
	})

	It("joins both failures", func() {
		eventLog.appendFn = func(context.Context, *model.DomainEvent) (bool, error) {
			return false, errors.New("db down")
		}
		broadcaster.broadcastFn = func(context.Context, model.DomainEvent) error {
			return errors.New("redis down")
		}
		_, err := publisher.Publish(ctx, params())
		Expect(err).To(MatchError(ContainSubstring("db down")))
		Expect(err).To(MatchError(ContainSubstring("redis down")))
	})

	It("runs the append and the broadcast concurrently", func() {
		broadcastStarted := make(chan struct{})
		eventLog.appendFn = func(context.Context, *model.DomainEvent) (bool, error) {
			select {
			case <-broadcastStarted:
				return true, nil
			case <-time.After(2 * time.Second):
				return false, errors.New("broadcast never started while append was in flight")
			}
		}
		broadcaster.broadcastFn = func(context.Context, model.DomainEvent) error {
			close(broadcastStarted)
			return nil
		}
		_, err := publisher.Publish(ctx, params())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("replay", func() {
		replay := func() events.PublishParams {
			p := params()
			p.Replay = true
			return p
		}

		It("broadcasts an event the log has not seen", func() {
			_, err := publisher.Publish(ctx, replay())
			Expect(err).NotTo(HaveOccurred())
			Expect(eventLog.appended).To(HaveLen(1))
			Expect(broadcaster.count()).To(Equal(1))
		})

		It("skips the broadcast when the log already holds the event", func() {
			eventLog.appendFn = func(context.Context, *model.DomainEvent) (bool, error) {
				return false, nil
			}
			_, err := publisher.Publish(ctx, replay())
			Expect(err).NotTo(HaveOccurred())
			Expect(eventLog.appended).To(HaveLen(1))
			Expect(broadcaster.count()).To(BeZero())
		})

		It("broadcasts when the append fails", func() {
			eventLog.appendFn = func(context.Context, *model.DomainEvent) (bool, error) {
				return false, errors.New("db down")
			}
			_, err := publisher.Publish(ctx, replay())
			Expect(err).To(MatchError(ContainSubstring("db down")))
			Expect(broadcaster.count()).To(Equal(1))
		})
	})

	It("rejects events without an aggregate", func() {
		p := params()
		p.AggregateID = ""
		_, err := publisher.Publish(ctx, p)
		Expect(err).To(HaveOccurred())
		Expect(eventLog.appended).To(BeEmpty())
		Expect(broadcaster.count()).To(BeZero())
	})

	It("rejects payloads that cannot be encoded", func() {
		p := params()
		p.Payload = map[string]any{"ch": make(chan int)}
		_, err := publisher.Publish(ctx, p)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Multi", func() {
	It("fans out past failures and joins errors", func() {
		failing := &mockBroadcaster{broadcastFn: func(context.Context, model.DomainEvent) error {
			return errors.New("nope")
		}}
		ok := &mockBroadcaster{}
		m := events.Multi{failing, ok}

		err := m.Broadcast(context.Background(), model.DomainEvent{ID: "1"})
		Expect(err).To(MatchError(ContainSubstring("nope")))
		Expect(ok.count()).To(Equal(1))

		Expect(m.Close()).To(Succeed())
		Expect(failing.closed).To(BeTrue())
		Expect(ok.closed).To(BeTrue())
	})
})
