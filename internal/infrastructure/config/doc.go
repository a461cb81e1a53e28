// Package config handles loading and validating Gray Hearth configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (HEARTH_*)
//   - Validation of required fields, reporting every problem at once
//   - Default value handling
//
// The recipes section seeds the cooking catalog; when it is empty the
// built-in campfire recipes are used.
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Simulation.Role, cfg.TickInterval())
package config
