package notifications

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"streamcap/internal/config"
)

const userAgent = "Streamcap-Go/0.1.0"

// Service defines the notification surface exposed to the recording engine.
type Service interface {
	NotifyRecordingStarted(ctx context.Context, name, title string) error
	NotifySessionFinished(ctx context.Context, name string, parts int) error
	NotifySupervisorFailed(ctx context.Context, name string, err error) error
	NotifyDaemonStarted(ctx context.Context, targets int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = 2
	client.HTTPClient.Timeout = timeout

	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *retryablehttp.Client
}

func (n *ntfyService) NotifyRecordingStarted(ctx context.Context, name, title string) error {
	name = strings.TrimSpace(name)
	message := fmt.Sprintf("Recording started: %s", name)
	if title = strings.TrimSpace(title); title != "" {
		message = fmt.Sprintf("%s\n%s", message, title)
	}
	data := payload{
		title:   "Streamcap - Recording",
		message: message,
		tags:    []string{"streamcap", "recording", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySessionFinished(ctx context.Context, name string, parts int) error {
	name = strings.TrimSpace(name)
	data := payload{
		title:   "Streamcap - Session Finished",
		message: fmt.Sprintf("Session finished: %s (%d parts)", name, parts),
		tags:    []string{"streamcap", "session", "finished"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySupervisorFailed(ctx context.Context, name string, err error) error {
	var builder strings.Builder
	builder.WriteString("Supervision stopped")
	if name = strings.TrimSpace(name); name != "" {
		builder.WriteString(" for ")
		builder.WriteString(name)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Streamcap - Error",
		message:  builder.String(),
		tags:     []string{"streamcap", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context, targets int) error {
	data := payload{
		title:   "Streamcap - Started",
		message: fmt.Sprintf("Watching %d targets", targets),
		tags:    []string{"streamcap", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Streamcap - Test",
		message:  "Notification system test",
		tags:     []string{"streamcap", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRecordingStarted(context.Context, string, string) error { return nil }
func (noopService) NotifySessionFinished(context.Context, string, int) error     { return nil }
func (noopService) NotifySupervisorFailed(context.Context, string, error) error  { return nil }
func (noopService) NotifyDaemonStarted(context.Context, int) error               { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
