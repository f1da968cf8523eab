package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const userAgent = "meetrelay/1.0"

// Client talks to the meeting-bot provider's REST API.
type Client interface {
	GetBot(ctx context.Context, botID string) (*Bot, error)
	GetScreenshots(ctx context.Context, botID string) ([]Screenshot, error)
	GetTranscript(ctx context.Context, recordingID string) ([]TranscriptEntry, error)
	StartRecording(ctx context.Context, botID string) error
	StopRecording(ctx context.Context, botID string) error
	PauseRecording(ctx context.Context, botID string) error
	ResumeRecording(ctx context.Context, botID string) error
}

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryWait  time.Duration // minimum backoff; zero keeps the library default
}

type client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

// New builds a client that retries connection errors, 429s and 5xx
// responses with exponential backoff.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.Logger = slog.Default()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.RetryWait > 0 {
		rc.RetryWaitMin = cfg.RetryWait
		rc.RetryWaitMax = 4 * cfg.RetryWait
	}

	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    rc,
	}, nil
}

func (c *client) GetBot(ctx context.Context, botID string) (*Bot, error) {
	var bot Bot
	if err := c.doJSON(ctx, "get bot", http.MethodGet, "/bot/"+url.PathEscape(botID), nil, &bot); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (c *client) GetScreenshots(ctx context.Context, botID string) ([]Screenshot, error) {
	var page struct {
		Results []Screenshot `json:"results"`
	}
	if err := c.doJSON(ctx, "get screenshots", http.MethodGet, "/bot/"+url.PathEscape(botID)+"/screenshots", nil, &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []Screenshot{}, nil
	}
	return page.Results, nil
}

func (c *client) GetTranscript(ctx context.Context, recordingID string) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	if err := c.doJSON(ctx, "get transcript", http.MethodGet, "/recording/"+url.PathEscape(recordingID)+"/transcript", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *client) StartRecording(ctx context.Context, botID string) error {
	return c.recordingAction(ctx, botID, "start")
}

func (c *client) StopRecording(ctx context.Context, botID string) error {
	return c.recordingAction(ctx, botID, "stop")
}

func (c *client) PauseRecording(ctx context.Context, botID string) error {
	return c.recordingAction(ctx, botID, "pause")
}

func (c *client) ResumeRecording(ctx context.Context, botID string) error {
	return c.recordingAction(ctx, botID, "resume")
}

func (c *client) recordingAction(ctx context.Context, botID, action string) error {
	path := fmt.Sprintf("/bot/%s/recording/%s", url.PathEscape(botID), action)
	return c.doJSON(ctx, action+" recording", http.MethodPost, path, nil, nil)
}

func (c *client) doJSON(ctx context.Context, op, method, path string, body any, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var reqBody any
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recall %s: %w", op, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "recall api call",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("recall %s: reading response: %w", op, err)
	}

	if resp.StatusCode >= 400 {
		return newProviderError(op, resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("recall %s: decoding response: %w", op, err)
		}
	}
	return nil
}
