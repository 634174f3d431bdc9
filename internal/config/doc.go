// Package config loads, normalizes, and validates tandem configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ABS_TOKEN and KOSYNC_KEY. The Config type centralizes every knob the daemon
// and CLI need: provider credentials, reconciliation thresholds, transcription
// settings, and resolver calibration.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
