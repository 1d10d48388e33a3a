// Package config loads the strata service settings from multiple sources
// (YAML file, environment variables, CLI flags) with precedence: CLI flags >
// YAML config > Environment variables > Defaults. Besides the HTTP settings it
// describes the overlay stack to serve: search roots, ordered overlay
// definitions and the secret store backing secret overlays.
package config
