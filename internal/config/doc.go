// Package config loads, normalizes, and validates shotreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SHOTREEL_LLM_API_KEY and SHOTREEL_RENDER_URL. The Config type centralizes
// every knob the CLI and pipeline need, so the data directory, LLM
// credentials, and render backend are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
