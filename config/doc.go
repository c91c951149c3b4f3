// Package config loads the rxrewrite configuration.
//
// Values come, in increasing precedence, from Defaults, a config.yml file,
// a .env file and RXREWRITE_* environment variables. Environment variable
// names map onto nested keys by their underscores, so
// RXREWRITE_ADAPTER_SUBSCRIBE_TIMEOUT=2s sets adapter.subscribe_timeout.
//
//	cfg, err := config.Load(config.WithConfigFile("config.yml"))
//
// Load applies defaults and validates the result; validation failures are
// INVALID_INPUT errors listing every failing field.
package config
