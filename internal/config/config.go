// Package config loads the onsight YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts strings like "30s" or "1m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds all server settings.
type Config struct {
	Server struct {
		Port          int      `yaml:"port"`
		SessionSecret string   `yaml:"session_secret"`
		CORSOrigins   []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Passkey struct {
		RPID     string `yaml:"rp_id"`
		RPName   string `yaml:"rp_name"`
		RPOrigin string `yaml:"rp_origin"`
	} `yaml:"passkey"`

	Tracking struct {
		MatchRadiusKm float64  `yaml:"match_radius_km"`
		HourlyRate    float64  `yaml:"hourly_rate"`
		TickInterval  Duration `yaml:"tick_interval"`
	} `yaml:"tracking"`

	Geocoder struct {
		URL     string   `yaml:"url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"geocoder"`

	DevMode bool `yaml:"dev_mode"`
}

// Default returns a config with working defaults for local use.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	cfg.Passkey.RPID = "localhost"
	cfg.Passkey.RPName = "Onsight"
	cfg.Passkey.RPOrigin = "http://localhost:8080"
	cfg.Tracking.MatchRadiusKm = 0.1
	cfg.Tracking.HourlyRate = 60
	cfg.Tracking.TickInterval = Duration(30 * time.Second)
	cfg.Geocoder.URL = "https://nominatim.openstreetmap.org/reverse"
	cfg.Geocoder.Timeout = Duration(5 * time.Second)
	return cfg
}

// Load reads the YAML config at path, expanding ${ENV_VAR} placeholders.
// Missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Replace environment variable placeholders in the YAML content
	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		placeholder := "${" + pair[0] + "}"
		content = strings.ReplaceAll(content, placeholder, pair[1])
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Server.SessionSecret == "" {
		cfg.Server.SessionSecret = os.Getenv("SESSION_SECRET")
	}

	return cfg, nil
}
