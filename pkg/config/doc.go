// Package config loads the bridge configuration from environment
// variables, with an optional YAML file overlay, and validates it before
// anything is constructed from it. The resulting Config is immutable and
// safely shared across concurrent requests.
package config
