// Package config loads, normalizes, and validates disckit configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DISCKIT_LIBRARY_DIR environment
// fallback. Components receive the sub-values they need (backup policy, step
// toggles) from the loaded Config rather than reading global state.
package config
