package domain

// EventType is the provider's discriminator for a webhook delivery.
type EventType string

const (
	EventBotJoiningCall           EventType = "bot.joining_call"
	EventBotInWaitingRoom         EventType = "bot.in_waiting_room"
	EventBotInCallNotRecording    EventType = "bot.in_call_not_recording"
	EventBotPermissionAllowed     EventType = "bot.recording_permission_allowed"
	EventBotPermissionDenied      EventType = "bot.recording_permission_denied"
	EventBotInCallRecording       EventType = "bot.in_call_recording"
	EventBotCallEnded             EventType = "bot.call_ended"
	EventBotDone                  EventType = "bot.done"
	EventBotFatal                 EventType = "bot.fatal"
	EventTranscriptPartialData    EventType = "transcript.partial_data"
	EventTranscriptData           EventType = "transcript.data"
	EventTranscriptDone           EventType = "transcript.done"
	EventTranscriptFailed         EventType = "transcript.failed"
	EventAudioSeparateRaw         EventType = "audio_separate_raw.data"
	EventVideoSeparatePNG         EventType = "video_separate_png.data"
	EventVideoSeparateH264        EventType = "video_separate_h264.data"
	EventLegacyRecordingStarted   EventType = "recording.started"
	EventLegacyRecordingStopped   EventType = "recording.stopped"
	EventLegacyTranscriptionReady EventType = "transcription.completed"
)

type Family string

const (
	FamilyBot        Family = "bot"
	FamilyTranscript Family = "transcript"
	FamilyMedia      Family = "media"
	FamilyUnknown    Family = "unknown"
)

// Family partitions the vocabulary. Legacy recording events belong to the
// bot family and the legacy transcription event to the transcript family.
func (t EventType) Family() Family {
	switch t {
	case EventBotJoiningCall, EventBotInWaitingRoom, EventBotInCallNotRecording,
		EventBotPermissionAllowed, EventBotPermissionDenied, EventBotInCallRecording,
		EventBotCallEnded, EventBotDone, EventBotFatal,
		EventLegacyRecordingStarted, EventLegacyRecordingStopped:
		return FamilyBot
	case EventTranscriptPartialData, EventTranscriptData, EventTranscriptDone,
		EventTranscriptFailed, EventLegacyTranscriptionReady:
		return FamilyTranscript
	case EventAudioSeparateRaw, EventVideoSeparatePNG, EventVideoSeparateH264:
		return FamilyMedia
	}
	return FamilyUnknown
}

// BotStatus is the status code a bot-family event records on the bot.
func (t EventType) BotStatus() (string, bool) {
	switch t {
	case EventBotJoiningCall:
		return "joining_call", true
	case EventBotInWaitingRoom:
		return "in_waiting_room", true
	case EventBotInCallNotRecording:
		return "in_call_not_recording", true
	case EventBotPermissionAllowed:
		return "recording_permission_allowed", true
	case EventBotPermissionDenied:
		return "recording_permission_denied", true
	case EventBotInCallRecording, EventLegacyRecordingStarted:
		return "in_call_recording", true
	case EventBotCallEnded, EventLegacyRecordingStopped:
		return "call_ended", true
	case EventBotDone:
		return "done", true
	case EventBotFatal:
		return "fatal", true
	}
	return "", false
}

// MediaKind names the stream a media-family chunk belongs to.
func (t EventType) MediaKind() string {
	switch t {
	case EventAudioSeparateRaw:
		return "audio_raw"
	case EventVideoSeparatePNG:
		return "video_png"
	case EventVideoSeparateH264:
		return "video_h264"
	}
	return ""
}

// DomainEventType names an internal event published to consumers.
type DomainEventType string

const (
	BotProcessingCompleted DomainEventType = "bot.processing_completed"
	BotFatal               DomainEventType = "bot.fatal"
	MeetingRecording       DomainEventType = "meeting.recording_started"
	MeetingEnded           DomainEventType = "meeting.ended"
	MeetingFailed          DomainEventType = "meeting.failed"
	MeetingCompleted       DomainEventType = "meeting.completed"
	MeetingCancelled       DomainEventType = "meeting.processing_cancelled"
	TranscriptCompleted    DomainEventType = "transcript.completed"
	TranscriptFailed       DomainEventType = "transcript.failed"
	ArtifactsGenerated     DomainEventType = "meeting.artifacts_generated"
	ArtifactsFailed        DomainEventType = "meeting.artifacts_failed"
)
