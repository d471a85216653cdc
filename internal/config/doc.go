// Package config loads the deepcast TOML configuration and defines the
// per-run pipeline request value object.
package config
