// Package config loads, normalizes, and validates clustersync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// AWS_REGION and CLUSTERSYNC_ACCESS_KEY. The Config type centralizes every knob
// the stages and CLI need so dataset, results and state directories plus remote
// store credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
