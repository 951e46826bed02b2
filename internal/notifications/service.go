package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shotreel/internal/config"
)

const userAgent = "shotreel/0.1"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyShotCompleted(ctx context.Context, shotNumber int, videoURL string) error
	NotifyShotFailed(ctx context.Context, shotNumber int, message string) error
	NotifyRenderFinished(ctx context.Context, completed, failed int, duration time.Duration) error
	NotifyVideoReady(ctx context.Context, title, videoURL string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	settings := cfg.Notifications
	topic := strings.TrimSpace(settings.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(settings.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		settings: settings,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) NotifyShotCompleted(ctx context.Context, shotNumber int, videoURL string) error {
	if !n.settings.ShotCompleted {
		return nil
	}
	return n.send(ctx, payload{
		title:   "shotreel - Shot Rendered",
		message: fmt.Sprintf("🎬 Shot %d rendered", shotNumber),
		tags:    []string{"shotreel", "shot", "completed"},
		click:   strings.TrimSpace(videoURL),
	})
}

func (n *ntfyService) NotifyShotFailed(ctx context.Context, shotNumber int, message string) error {
	if !n.settings.ShotFailures {
		return nil
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "shotreel - Shot Failed",
		message:  fmt.Sprintf("❌ Shot %d failed: %s", shotNumber, message),
		tags:     []string{"shotreel", "shot", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyRenderFinished(ctx context.Context, completed, failed int, duration time.Duration) error {
	if !n.settings.RenderFinished {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "shotreel - Render Complete"
	message := fmt.Sprintf("All %d shots rendered in %s", completed, duration)
	if failed > 0 {
		title = "shotreel - Render Complete (with errors)"
		message = fmt.Sprintf("%d shots rendered, %d failed in %s", completed, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"shotreel", "render", "completed"},
	})
}

func (n *ntfyService) NotifyVideoReady(ctx context.Context, title, videoURL string) error {
	if !n.settings.VideoReady {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "final video"
	}
	videoURL = strings.TrimSpace(videoURL)
	message := fmt.Sprintf("✅ Ready to watch: %s", title)
	if videoURL != "" {
		message = fmt.Sprintf("%s\n%s", message, videoURL)
	}
	return n.send(ctx, payload{
		title:    "shotreel - Video Ready",
		message:  message,
		tags:     []string{"shotreel", "stitch", "completed"},
		priority: "high",
		click:    videoURL,
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "shotreel - Error",
		message:  builder.String(),
		tags:     []string{"shotreel", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "shotreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"shotreel", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

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
	if data.click != "" {
		req.Header.Set("Click", data.click)
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

func (noopService) NotifyShotCompleted(context.Context, int, string) error              { return nil }
func (noopService) NotifyShotFailed(context.Context, int, string) error                 { return nil }
func (noopService) NotifyRenderFinished(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyVideoReady(context.Context, string, string) error              { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
