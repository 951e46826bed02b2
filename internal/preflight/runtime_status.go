package preflight

import (
	"strings"

	"shotreel/internal/config"
)

// CheckNotificationsFromConfig reports whether push notifications are
// configured. It does not contact the ntfy server.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
