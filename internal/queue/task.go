package queue

import "fmt"

type TaskType string

const (
	TaskTypeTranscriptRetrieval TaskType = "transcript_retrieval"
	TaskTypeArtifactExtraction  TaskType = "artifact_extraction"
	TaskTypeWebhookRetry        TaskType = "webhook_retry"
)

// Task is what producers put on the stream. MeetingID is set for stage
// tasks; EnvelopeID and Payload for webhook retries. A transcript
// retrieval without RecordingID resolves it from the meeting's bot.
type Task struct {
	TaskType    TaskType
	MeetingID   *int64
	RecordingID string
	CausationID string
	EnvelopeID  string
	Payload     string
	SentAt      string
	TraceID     *string
	Attempt     int
}

func (t Task) validate() error {
	return validate(t.TaskType, t.MeetingID, t.EnvelopeID, t.Payload)
}

func validate(taskType TaskType, meetingID *int64, envelopeID, payload string) error {
	switch taskType {
	case TaskTypeTranscriptRetrieval, TaskTypeArtifactExtraction:
		if meetingID == nil {
			return fmt.Errorf("missing meeting_id")
		}
	case TaskTypeWebhookRetry:
		if envelopeID == "" || payload == "" {
			return fmt.Errorf("missing envelope_id or payload")
		}
	case "":
		return fmt.Errorf("missing task_type")
	default:
		return fmt.Errorf("unknown task_type %q", taskType)
	}
	return nil
}
