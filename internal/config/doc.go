// Package config loads, normalizes, and validates mec configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TICKETMASTER_API_KEY and MEC_NATS_URL. The Config type centralizes every
// knob the scraper daemon, the handler daemon, and the CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
