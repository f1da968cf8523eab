package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client issues a single structured-output completion and decodes the JSON
// answer into result.
type Client interface {
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default
}

type Response struct {
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

var (
	// ErrTruncated means the answer hit MaxTokens; the JSON is incomplete.
	ErrTruncated = errors.New("llm response truncated")
	ErrRefused   = errors.New("llm refused the request")
	ErrNoChoices = errors.New("no choices in response")
)

// Config for the OpenAI-compatible endpoint. MaxRetries is the SDK's own
// retry budget per call; zero keeps the SDK default.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 2000
)

type client struct {
	openai openai.Client
	model  string
}

func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &client{
		openai: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (c *client) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	slog.DebugContext(ctx, "llm chat completed",
		"finish_reason", finishReason(resp),
		"model", c.model,
		"schema", req.SchemaName,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	if err := decodeChoice(resp.Choices[0], result); err != nil {
		return nil, err
	}

	return &Response{
		Model:            resp.Model,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

// decodeChoice rejects refusals and truncated answers before unmarshaling;
// a cut-off JSON document would otherwise surface as a confusing syntax
// error.
func decodeChoice(choice openai.ChatCompletionChoice, result any) error {
	if choice.Message.Refusal != "" {
		return fmt.Errorf("%w: %s", ErrRefused, choice.Message.Refusal)
	}
	if choice.FinishReason == "length" {
		return ErrTruncated
	}
	if choice.Message.Content == "" {
		return fmt.Errorf("empty response content (finish reason %q)", choice.FinishReason)
	}
	if err := json.Unmarshal([]byte(choice.Message.Content), result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *client) Model() string {
	return c.model
}

// GenerateSchema reflects a strict JSON schema (no $refs, no extra
// properties) for T.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

// IsRetryable reports whether a Chat error is worth another attempt. Rate
// limits, 5xx and transport errors are. Cancellation, 4xx, refusals and
// truncation are not; the same transcript would fail the same way.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrRefused) || errors.Is(err, ErrTruncated) {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}

func finishReason(resp *openai.ChatCompletion) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return string(resp.Choices[0].FinishReason)
}
