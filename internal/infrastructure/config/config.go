package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Selected-devices filter modes.
const (
	SelectModeDefault = "default"
	SelectModeInclude = "include"
	SelectModeExclude = "exclude"
)

// Config is the root configuration structure for the fimp2ha bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Discovery     DiscoveryConfig     `yaml:"discovery"`
	Database      DatabaseConfig      `yaml:"database"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	API           APIConfig           `yaml:"api"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
// The broker is the hub's own broker; FIMP and Home Assistant share it.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`

	// ConnectTimeout bounds the single initial connect attempt (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
//
// Reconnection is off by default: a lost connection stops the bridge and
// the supervisor (systemd, docker) restarts it.
type MQTTReconnectConfig struct {
	Enabled      bool `yaml:"enabled"`
	InitialDelay int  `yaml:"initial_delay"`
	MaxDelay     int  `yaml:"max_delay"`
}

// HomeAssistantConfig contains Home Assistant MQTT discovery settings.
type HomeAssistantConfig struct {
	// DiscoveryPrefix is the root of discovery config topics.
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// StatusTopic is where Home Assistant announces "online" after a restart.
	StatusTopic string `yaml:"status_topic"`

	// Retain publishes discovery configs as retained messages.
	Retain bool `yaml:"retain"`
}

// DiscoveryConfig controls the discovery cycle.
type DiscoveryConfig struct {
	// SelectedDevicesMode is one of default, include, exclude.
	SelectedDevicesMode string `yaml:"selected_devices_mode"`

	// SelectedDevices lists devices as "<adapter>_<address>" (e.g. "zw_12").
	SelectedDevices []string `yaml:"selected_devices"`

	// Debug logs every created and skipped device.
	Debug bool `yaml:"debug"`

	// CatalogTimeout is how long to wait for the hub's device catalog (seconds).
	CatalogTimeout int `yaml:"catalog_timeout"`

	// RequestTimeout is how long to wait for a device parameter report (seconds).
	RequestTimeout int `yaml:"request_timeout"`

	// StatusDelay is the pause before initial statuses are published (seconds).
	StatusDelay int `yaml:"status_delay"`

	// RemoveStale clears discovery configs for entities no longer reported by the hub.
	RemoveStale bool `yaml:"remove_stale"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment overrides.
//
// An empty path skips the file and uses defaults plus environment, which is
// how the bridge runs when configured purely through a .env file.
// A .env file in the working directory is loaded first (best-effort);
// variables already present in the environment win.
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:   "fimp2ha",
			Name: "FIMP to Home Assistant",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1884,
				ClientID:       "fimp2ha",
				ConnectTimeout: 5,
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				Enabled:      false,
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		HomeAssistant: HomeAssistantConfig{
			DiscoveryPrefix: "homeassistant",
			StatusTopic:     "homeassistant/status",
		},
		Discovery: DiscoveryConfig{
			SelectedDevicesMode: SelectModeDefault,
			CatalogTimeout:      10,
			RequestTimeout:      5,
			StatusDelay:         2,
			RemoveStale:         true,
		},
		Database: DatabaseConfig{
			Path:        "./data/fimp2ha.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8099,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
//
// The FIMP_* / CLIENT_ID / DEBUG / SELECTED_DEVICES* names are kept from the
// add-on environment so existing .env files keep working.
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("FIMP_SERVER"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FIMP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("FIMP_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FIMP_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}

	// Discovery
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Discovery.Debug = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SELECTED_DEVICES_MODE"); v != "" {
		cfg.Discovery.SelectedDevicesMode = strings.ToLower(v)
	}
	if v := os.Getenv("SELECTED_DEVICES"); v != "" {
		cfg.Discovery.SelectedDevices = splitList(v)
	}

	// Database
	if v := os.Getenv("FIMP2HA_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("FIMP2HA_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("FIMP2HA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required (set FIMP_SERVER)")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.ClientID == "" {
		errs = append(errs, "mqtt.broker.client_id is required")
	}
	if c.MQTT.Broker.ConnectTimeout <= 0 {
		errs = append(errs, "mqtt.broker.connect_timeout must be positive")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Home Assistant validation
	if c.HomeAssistant.DiscoveryPrefix == "" {
		errs = append(errs, "homeassistant.discovery_prefix is required")
	}

	// Discovery validation
	switch c.Discovery.SelectedDevicesMode {
	case SelectModeDefault, SelectModeInclude, SelectModeExclude:
	default:
		errs = append(errs, "discovery.selected_devices_mode must be default, include, or exclude")
	}
	if c.Discovery.CatalogTimeout <= 0 || c.Discovery.RequestTimeout <= 0 {
		errs = append(errs, "discovery timeouts must be positive")
	}
	if c.Discovery.StatusDelay < 0 {
		errs = append(errs, "discovery.status_delay cannot be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ConnectTimeout returns the initial MQTT connect window as a Duration.
func (c MQTTConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.Broker.ConnectTimeout) * time.Second
}

// CatalogTimeoutDuration returns the catalog request timeout as a Duration.
func (c DiscoveryConfig) CatalogTimeoutDuration() time.Duration {
	return time.Duration(c.CatalogTimeout) * time.Second
}

// RequestTimeoutDuration returns the device parameter request timeout as a Duration.
func (c DiscoveryConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// StatusDelayDuration returns the initial status delay as a Duration.
func (c DiscoveryConfig) StatusDelayDuration() time.Duration {
	return time.Duration(c.StatusDelay) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
