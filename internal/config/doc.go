// Package config loads hwbot's configuration from an optional JSON/YAML file
// and the environment, validates it, and watches the file for changes.
package config
