package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mec/internal/config"
)

const userAgent = "mec/0.1"

// Service defines the alerts the daemons raise.
type Service interface {
	NotifyRunFailed(ctx context.Context, adapter string, err error) error
	NotifyRunDeferred(ctx context.Context, adapter string, until time.Time) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
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
	client   *http.Client
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, adapter string, err error) error {
	reason := "unknown"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, payload{
		title:    "mec - Run Failed",
		message:  fmt.Sprintf("%s run failed: %s", strings.TrimSpace(adapter), reason),
		tags:     []string{"mec", adapter, "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRunDeferred(ctx context.Context, adapter string, until time.Time) error {
	return n.send(ctx, payload{
		title:   "mec - Run Deferred",
		message: fmt.Sprintf("%s quota exhausted; next run not before %s", strings.TrimSpace(adapter), until.Format(time.RFC3339)),
		tags:    []string{"mec", adapter, "deferred"},
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "mec - Test",
		message:  "Notification system test",
		tags:     []string{"mec", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
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

func (noopService) NotifyRunFailed(context.Context, string, error) error       { return nil }
func (noopService) NotifyRunDeferred(context.Context, string, time.Time) error { return nil }
func (noopService) TestNotification(context.Context) error                     { return nil }

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
