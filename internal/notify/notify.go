package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	TypeBotWaitingRoom         = "bot_waiting_room"
	TypeBotRecordingPermission = "bot_recording_permission_denied"
	TypeBotFatalError          = "bot_fatal_error"

	alertTypeFatal = "recall_bot_fatal_error"
)

// ClientNotification is delivered to the meeting's client through the
// notification service.
type ClientNotification struct {
	Type               string    `json:"type"`
	MeetingID          int64     `json:"meetingId"`
	ClientID           string    `json:"clientId"`
	BotID              string    `json:"botId"`
	Message            string    `json:"message"`
	SubCode            string    `json:"subCode,omitempty"`
	Diagnosis          any       `json:"diagnosis,omitempty"`
	TroubleshootingURL string    `json:"troubleshootingUrl,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// FatalAlert goes to operators, not to the client.
type FatalAlert struct {
	Type         string    `json:"type"`
	BotID        string    `json:"botId"`
	ErrorMessage string    `json:"errorMessage"`
	ErrorCode    string    `json:"errorCode"`
	SubCode      string    `json:"subCode"`
	Diagnosis    any       `json:"diagnosis,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Notifier interface {
	NotifyClient(ctx context.Context, n ClientNotification) error
	SendFatalAlert(ctx context.Context, a FatalAlert) error
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type httpNotifier struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

func NewHTTP(cfg Config) Notifier {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.Logger = slog.Default()
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	return &httpNotifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    rc,
	}
}

func (n *httpNotifier) NotifyClient(ctx context.Context, cn ClientNotification) error {
	if cn.Timestamp.IsZero() {
		cn.Timestamp = time.Now().UTC()
	}
	return n.post(ctx, "/api/v1/notifications/send", cn)
}

func (n *httpNotifier) SendFatalAlert(ctx context.Context, a FatalAlert) error {
	if a.Type == "" {
		a.Type = alertTypeFatal
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return n.post(ctx, "/api/v1/alerts/fatal-error", a)
}

func (n *httpNotifier) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting %s: %w", path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("posting %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// Noop is used when no notification service is configured.
type Noop struct{}

func (Noop) NotifyClient(context.Context, ClientNotification) error { return nil }
func (Noop) SendFatalAlert(context.Context, FatalAlert) error { return nil }

// Async delivers in the background so callers never wait on the
// notification service. Failures are logged. Wait blocks until in-flight
// deliveries finish.
type Async struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

func (a *Async) NotifyClient(ctx context.Context, n ClientNotification) error {
	a.spawn(ctx, "client notification", func(ctx context.Context) error {
		return a.next.NotifyClient(ctx, n)
	}, "notification_type", n.Type, "bot_id", n.BotID, "meeting_id", n.MeetingID)
	return nil
}

func (a *Async) SendFatalAlert(ctx context.Context, alert FatalAlert) error {
	a.spawn(ctx, "fatal alert", func(ctx context.Context) error {
		return a.next.SendFatalAlert(ctx, alert)
	}, "bot_id", alert.BotID, "sub_code", alert.SubCode)
	return nil
}

func (a *Async) spawn(ctx context.Context, what string, fn func(context.Context) error, attrs ...any) {
	// Detached from the request so the delivery outlives the response.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to send "+what, append(attrs, "error", err)...)
			return
		}
		slog.InfoContext(ctx, what+" sent", attrs...)
	}()
}

func (a *Async) Wait() {
	a.wg.Wait()
}
