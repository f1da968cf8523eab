package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"basegraph.app/meetrelay/common/llm"
	"basegraph.app/meetrelay/internal/model"
)

// Extractor derives meeting artifacts from a transcript.
type Extractor interface {
	Extract(ctx context.Context, meeting *model.Meeting, transcript *model.Transcript) (*model.Artifacts, error)
}

type ArtifactsResponse struct {
	Summary     string           `json:"summary" jsonschema_description:"2-3 paragraph executive summary of the meeting"`
	KeyPoints   []string         `json:"key_points" jsonschema_description:"5-10 key points discussed"`
	Decisions   []string         `json:"decisions" jsonschema_description:"Every decision that was made"`
	NextSteps   []string         `json:"next_steps" jsonschema_description:"Follow-ups agreed in the meeting"`
	Sentiment   string           `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative" jsonschema_description:"Overall tone of the meeting"`
	ActionItems []ActionItemItem `json:"action_items" jsonschema_description:"Concrete tasks with an owner or deadline"`
}

type ActionItemItem struct {
	Description string  `json:"description" jsonschema_description:"What has to be done, with enough context to act on it"`
	Assignee    string  `json:"assignee" jsonschema_description:"Name or email of the owner, empty if not stated"`
	DueDate     string  `json:"due_date" jsonschema_description:"YYYY-MM-DD, empty if not stated"`
	Priority    string  `json:"priority" jsonschema:"enum=low,enum=medium,enum=high,enum=urgent"`
	Confidence  float64 `json:"confidence" jsonschema_description:"0.0-1.0 confidence this is a real commitment"`
}

var artifactsSchema = llm.GenerateSchema[ArtifactsResponse]()

const (
	artifactsSystemPrompt = `You are an expert meeting analyst. Summarize the meeting and extract decisions, next steps and action items. Be objective and factual; never invent owners or dates that were not said.`

	// Keeps long meetings inside the model's context window.
	maxTranscriptChars = 60000
)

type LLMExtractor struct {
	llm      llm.Client
	attempts int
}

func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{llm: client, attempts: 3}
}

func (e *LLMExtractor) Extract(ctx context.Context, meeting *model.Meeting, transcript *model.Transcript) (*model.Artifacts, error) {
	prompt := buildArtifactsPrompt(meeting, transcript)

	var (
		response ArtifactsResponse
		llmResp  *llm.Response
		err      error
	)
	start := time.Now()
	for attempt := 0; attempt < e.attempts; attempt++ {
		llmResp, err = e.llm.Chat(ctx, llm.Request{
			SystemPrompt: artifactsSystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   "meeting_artifacts",
			Schema:       artifactsSchema,
			MaxTokens:    3000,
			Temperature:  llm.Temp(0.3),
		}, &response)
		if err == nil {
			break
		}
		if !llm.IsRetryable(err) {
			return nil, fmt.Errorf("artifact extraction: %w", err)
		}
		slog.WarnContext(ctx, "artifact extraction retry", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(1<<attempt) * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("artifact extraction after %d attempts: %w", e.attempts, err)
	}

	artifacts := &model.Artifacts{
		MeetingID:   meeting.ID,
		Summary:     response.Summary,
		KeyPoints:   response.KeyPoints,
		Decisions:   response.Decisions,
		NextSteps:   response.NextSteps,
		Sentiment:   response.Sentiment,
		ActionItems: make([]model.ActionItem, 0, len(response.ActionItems)),
		Model:       e.llm.Model(),
		CreatedAt:   time.Now().UTC(),
	}
	for _, item := range response.ActionItems {
		artifacts.ActionItems = append(artifacts.ActionItems, model.ActionItem(item))
	}

	attrs := []any{
		"action_items", len(artifacts.ActionItems),
		"latency_ms", time.Since(start).Milliseconds(),
	}
	if llmResp != nil {
		attrs = append(attrs, "prompt_tokens", llmResp.PromptTokens, "completion_tokens", llmResp.CompletionTokens)
	}
	slog.InfoContext(ctx, "artifacts extracted", attrs...)

	return artifacts, nil
}

func buildArtifactsPrompt(meeting *model.Meeting, transcript *model.Transcript) string {
	text := transcript.Text
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars]
	}

	var b strings.Builder
	b.WriteString("Meeting Title: ")
	if meeting.Title != "" {
		b.WriteString(meeting.Title)
	} else {
		b.WriteString("(untitled)")
	}
	b.WriteString("\n\nTranscription:\n")
	b.WriteString(text)
	return b.String()
}
