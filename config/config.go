package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/timor11/librealsense/errors"
)

const component = "Config"

// Config is the daemon's complete configuration. Keys are kebab-case to
// match the wire convention used everywhere else in this module.
type Config struct {
	InstanceID string        `yaml:"instance-id"`
	Log        LogConfig     `yaml:"log"`
	NATS       NATSConfig    `yaml:"nats"`
	Devices    []Device      `yaml:"devices"`
	Sensor     SensorConfig  `yaml:"sensor"`
	Gateway    GatewayConfig `yaml:"gateway"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// LogConfig controls the daemon's structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NATSConfig defines the NATS connection. URL accepts a comma-separated
// server list. Credentials and TLS are optional; PublishBuildLog enables the
// per-device build log subjects.
type NATSConfig struct {
	URL             string        `yaml:"url"`
	Name            string        `yaml:"name"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Token           string        `yaml:"token"`
	MaxReconnects   int           `yaml:"max-reconnects"`
	ReconnectWait   time.Duration `yaml:"reconnect-wait"`
	TLS             TLSConfig     `yaml:"tls"`
	PublishBuildLog bool          `yaml:"publish-build-log"`
}

// TLSConfig points at the certificate files for a secured NATS connection.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert-file"`
	KeyFile  string `yaml:"key-file"`
	CAFile   string `yaml:"ca-file"`
}

// Device describes one camera the daemon adopts: the self-description
// document to load and, optionally, the serial it must carry and a metadata
// subject override. An empty subject derives from the descriptor's topic
// root.
type Device struct {
	Serial          string `yaml:"serial"`
	Descriptor      string `yaml:"descriptor"`
	MetadataSubject string `yaml:"metadata-subject"`
}

// SensorConfig tunes per-sensor behavior.
type SensorConfig struct {
	MetadataDepth int `yaml:"metadata-depth"`
}

// GatewayConfig controls the read-only HTTP/WebSocket surface.
type GatewayConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Port           int      `yaml:"port"`
	LookupRate     float64  `yaml:"lookup-rate"`
	LookupBurst    int      `yaml:"lookup-burst"`
	ClientBuffer   int      `yaml:"client-buffer"`
	AllowedOrigins []string `yaml:"allowed-origins"`
}

// MetricsConfig controls the Prometheus scrape server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Default returns the configuration the daemon runs with when no file is
// given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Name:          "rs-proxyd",
			MaxReconnects: 60,
			ReconnectWait: 2 * time.Second,
		},
		Sensor: SensorConfig{
			MetadataDepth: 8,
		},
		Gateway: GatewayConfig{
			Enabled:      true,
			Port:         8080,
			LookupRate:   50,
			LookupBurst:  100,
			ClientBuffer: 256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file if a
// path is given, then environment overrides, then validation. A missing file
// at an explicitly given path is an error; an empty path skips the file
// layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrMissingConfig, err),
				component, "Load", "read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				component, "Load", "decode config file")
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays RS_PROXYD_* environment variables. Environment wins over
// the file for deployment-time overrides.
func (c *Config) applyEnv() {
	c.InstanceID = getEnv("RS_PROXYD_INSTANCE_ID", c.InstanceID)
	c.Log.Level = getEnv("RS_PROXYD_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("RS_PROXYD_LOG_FORMAT", c.Log.Format)
	c.NATS.URL = getEnv("RS_PROXYD_NATS_URL", c.NATS.URL)
	c.NATS.Username = getEnv("RS_PROXYD_NATS_USERNAME", c.NATS.Username)
	c.NATS.Password = getEnv("RS_PROXYD_NATS_PASSWORD", c.NATS.Password)
	c.NATS.Token = getEnv("RS_PROXYD_NATS_TOKEN", c.NATS.Token)
	c.Gateway.Port = getEnvInt("RS_PROXYD_GATEWAY_PORT", c.Gateway.Port)
	c.Metrics.Port = getEnvInt("RS_PROXYD_METRICS_PORT", c.Metrics.Port)
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if !validLogLevel(c.Log.Level) {
		return invalid(fmt.Sprintf("log.level %q (want debug, info, warn or error)", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid(fmt.Sprintf("log.format %q (want json or text)", c.Log.Format))
	}

	if c.NATS.URL == "" {
		return invalid("nats.url is required")
	}
	if c.NATS.ReconnectWait < 0 {
		return invalid("nats.reconnect-wait must not be negative")
	}
	if c.NATS.TLS.Enabled {
		if c.NATS.TLS.CertFile == "" || c.NATS.TLS.KeyFile == "" {
			return invalid("nats.tls requires cert-file and key-file when enabled")
		}
	}

	for i, dev := range c.Devices {
		if dev.Descriptor == "" {
			return invalid(fmt.Sprintf("devices[%d].descriptor is required", i))
		}
		if dev.Serial != "" && !validSubjectToken(dev.Serial) {
			return invalid(fmt.Sprintf("devices[%d].serial %q is not subject-safe", i, dev.Serial))
		}
	}

	if c.Sensor.MetadataDepth <= 0 {
		return invalid("sensor.metadata-depth must be positive")
	}

	if c.Gateway.Enabled {
		if err := validPort("gateway.port", c.Gateway.Port); err != nil {
			return err
		}
		if c.Gateway.LookupRate <= 0 {
			return invalid("gateway.lookup-rate must be positive")
		}
		if c.Gateway.LookupBurst < 1 {
			return invalid("gateway.lookup-burst must be at least 1")
		}
		if c.Gateway.ClientBuffer < 1 {
			return invalid("gateway.client-buffer must be at least 1")
		}
	}

	if c.Metrics.Enabled {
		if err := validPort("metrics.port", c.Metrics.Port); err != nil {
			return err
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return invalid(fmt.Sprintf("metrics.path %q must start with /", c.Metrics.Path))
		}
	}

	if c.Gateway.Enabled && c.Metrics.Enabled && c.Gateway.Port == c.Metrics.Port {
		return invalid(fmt.Sprintf("gateway and metrics cannot share port %d", c.Gateway.Port))
	}

	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg),
		component, "Validate", "check configuration")
}

func validPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return invalid(fmt.Sprintf("%s %d out of range", field, port))
	}
	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// validSubjectToken reports whether s can stand as one token of a NATS
// subject: letters, digits, dash and underscore only.
func validSubjectToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}
