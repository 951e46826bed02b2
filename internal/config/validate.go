package config

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Validate ensures the configuration is usable.
//
// The LLM API key is not required here so read-only commands work without
// credentials; the LLM client rejects requests when it is missing.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.BaseURL == "" {
		return errors.New("render.base_url must be set")
	}
	if _, err := url.ParseRequestURI(c.Render.BaseURL); err != nil {
		return fmt.Errorf("render.base_url: %w", err)
	}
	if err := ensurePositiveMap(map[string]int{
		"render.timeout_seconds":       c.Render.TimeoutSeconds,
		"render.poll_interval_seconds": c.Render.PollIntervalSeconds,
		"render.shot_max_polls":        c.Render.ShotMaxPolls,
		"render.stitch_max_polls":      c.Render.StitchMaxPolls,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.QueueSpacingSeconds < 0 {
		return errors.New("pipeline.queue_spacing_seconds must not be negative")
	}
	if c.Pipeline.CodegenSpacingMillis < 0 {
		return errors.New("pipeline.codegen_spacing_ms must not be negative")
	}
	if c.Pipeline.MaxAutoFixAttempts < 0 {
		return errors.New("pipeline.max_autofix_attempts must not be negative")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
