// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and command-line flags.
// It provides type-safe access to application settings needed by different
// components while keeping configuration details separate from business logic.
package config
