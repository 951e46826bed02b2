// Package notifications delivers pipeline events via ntfy.
//
// The service publishes to the topic URL configured in config.toml and
// degrades to a no-op when no topic is set. Per-event switches in the
// [notifications] section silence individual event kinds so the pipeline
// can call every method unconditionally.
package notifications
