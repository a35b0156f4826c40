// Package config defines the service configuration for the rule engine.
//
// Configuration is loaded from a YAML file, filled with defaults, and
// validated. Environment variables prefixed with DAZZLE_ override file
// values, so a container deployment can run without a config file at
// all.
//
// # Loading sequence
//
//  1. Parse the YAML file (optional for LoadWithEnvOverrides)
//  2. Apply defaults for unset fields
//  3. Apply environment variable overrides
//  4. Validate the final configuration
package config
