// Package config loads, normalizes, and validates echosync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ECHOSYNC_API_TOKEN. The Config type centralizes every knob the daemon and
// CLI need: the data directory holding the case database, the API bind
// address, and the remote backend settings that select local or remote mode.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
