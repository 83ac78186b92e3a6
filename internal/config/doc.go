// Package config loads, normalizes, and validates mangarecap configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and FREESOUND_API_KEY. The Config type centralizes the
// assembly engine knobs (frame, motion, timing, subtitles, audio) alongside
// collaborator credentials so one pass discovers everything a render needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
