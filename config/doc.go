// Package config loads and validates the rs-proxyd daemon configuration.
//
// Configuration layers, later layers winning: built-in defaults, an optional
// YAML file, then RS_PROXYD_* environment variables. Load applies all three
// and validates the result; a configuration that fails validation never
// reaches the daemon.
//
//	cfg, err := config.Load("/etc/rs-proxyd/config.yaml")
//
// Keys are kebab-case, matching the module's wire convention:
//
//	log:
//	  level: info
//	  format: json
//	nats:
//	  url: nats://localhost:4222
//	  publish-build-log: true
//	devices:
//	  - serial: "943222071234"
//	    descriptor: /etc/rs-proxyd/d435i.json
//	gateway:
//	  port: 8080
//	metrics:
//	  port: 9090
package config
