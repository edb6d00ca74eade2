// Package config loads, validates, and defaults workq's TOML configuration.
//
// Configuration is resolved from an explicit --config path, a workq.toml in
// the working directory, or ~/.config/workq/config.toml, in that order. All
// path fields are tilde-expanded and made absolute during load, so consumers
// never deal with relative or unexpanded paths.
package config
