// Package config provides configuration management for the celviz CLI.
//
// Configuration is loaded from CELVIZ_* environment variables and validated
// on startup. Every option has a default, so an empty environment is valid.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt := runtime.New(runtime.WithBudget(cfg.Budget()))
package config
