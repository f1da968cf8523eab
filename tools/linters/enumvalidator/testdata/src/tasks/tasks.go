package tasks

type TaskType string

const (
	TaskTypeTranscriptRetrieval TaskType = "transcript_retrieval"
	TaskTypeWebhookRetry        TaskType = "webhook_retry"
)

type Task struct {
	TaskType TaskType
	Payload  string
}

// Plain string fields are not enums.
func payloadOnly() Task {
	return Task{TaskType: TaskTypeWebhookRetry, Payload: "raw"}
}

func retry(t *Task) {
	t.TaskType = "webhook-retry" // want "enum field TaskType assigned string literal"
}

func byName() map[string]TaskType {
	// Map entries are keyed by strings, not fields.
	return map[string]TaskType{"retrieve": TaskTypeTranscriptRetrieval}
}
