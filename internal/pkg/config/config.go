package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Map       MapConfig       `mapstructure:"map"`
	Location  LocationConfig  `mapstructure:"location"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	ZoomTTL int    `mapstructure:"zoom_ttl"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// MapConfig bounds the zoom levels a map facade accepts.
type MapConfig struct {
	DefaultZoom    float64 `mapstructure:"default_zoom"`
	MinZoom        float64 `mapstructure:"min_zoom"`
	MaxZoom        float64 `mapstructure:"max_zoom"`
	ViewportWidth  int     `mapstructure:"viewport_width"`
	ViewportHeight int     `mapstructure:"viewport_height"`
}

// LocationConfig holds the fallback coordinate and the platform timeout for
// device geolocation.
type LocationConfig struct {
	DefaultLat    float64       `mapstructure:"default_lat"`
	DefaultLng    float64       `mapstructure:"default_lng"`
	DeviceTimeout time.Duration `mapstructure:"device_timeout"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173, capacitor://localhost")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject", "whispers.events")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.zoom_ttl", 30*24*3600)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("map.default_zoom", 13)
	v.SetDefault("map.min_zoom", 2)
	v.SetDefault("map.max_zoom", 20)
	v.SetDefault("map.viewport_width", 390)
	v.SetDefault("map.viewport_height", 844)
	// Downtown Los Angeles
	v.SetDefault("location.default_lat", 34.0522)
	v.SetDefault("location.default_lng", -118.2437)
	v.SetDefault("location.device_timeout", "10s")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: WHISPERS_NATS_URL → nats.url
	v.SetEnvPrefix("WHISPERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats.enabled")
	}
	if c.NATS.Enabled && c.NATS.Subject == "" {
		errs = append(errs, "nats.subject is required when nats.enabled")
	}
	if c.Map.MinZoom < 0 || c.Map.MaxZoom < c.Map.MinZoom {
		errs = append(errs, fmt.Sprintf("map zoom range invalid: [%g, %g]", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.DefaultZoom < c.Map.MinZoom || c.Map.DefaultZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.default_zoom %g outside [%g, %g]", c.Map.DefaultZoom, c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.ViewportWidth <= 0 || c.Map.ViewportHeight <= 0 {
		errs = append(errs, "map viewport size must be positive")
	}
	if c.Location.DefaultLat < -90 || c.Location.DefaultLat > 90 {
		errs = append(errs, fmt.Sprintf("location.default_lat out of range: %g", c.Location.DefaultLat))
	}
	if c.Location.DefaultLng < -180 || c.Location.DefaultLng > 180 {
		errs = append(errs, fmt.Sprintf("location.default_lng out of range: %g", c.Location.DefaultLng))
	}
	if c.Location.DeviceTimeout <= 0 {
		errs = append(errs, "location.device_timeout must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
