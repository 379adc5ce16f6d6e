// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Bootstrap is the root configuration structure.
type Bootstrap struct {
	Server  *Server
	Backend *Backend
	Poller  *Poller
	Data    *Data
	Log     *Log
}

// Server holds the portal HTTP server configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds HTTP listener settings.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout time.Duration
}

// Backend holds the remote commerce backend configuration.
type Backend struct {
	// BaseURL is the backend root, e.g. https://api.store.example.com
	BaseURL string
	// DefaultLocale is used when a session carries no locale (en or ar)
	DefaultLocale string
	// Timeout applies to login/profile/history calls; the poller carries
	// its own timeout (see Poller.Timeout)
	Timeout time.Duration
}

// Poller holds the credit notification poller configuration.
// Production mode widens the interval (30s -> 45s), the timeout (10s -> 15s)
// and the initial delay (1s -> 2s), and enables the circuit breaker.
type Poller struct {
	Interval     time.Duration
	Timeout      time.Duration
	InitialDelay time.Duration
	Production   bool
}

// Data holds data layer configuration.
type Data struct {
	Redis *Data_Redis
}

// Data_Redis holds Redis connection settings for the session cache.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with CREDITPULSE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - BACKEND_BASE_URL or CREDITPULSE_BACKEND_BASE_URL: commerce backend root URL
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with CREDITPULSE_ prefix
	v.SetEnvPrefix("CREDITPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without CREDITPULSE_ prefix) for compatibility
	_ = v.BindEnv("backend.base_url", "BACKEND_BASE_URL", "CREDITPULSE_BACKEND_BASE_URL")
	_ = v.BindEnv("data.redis.addr", "CREDITPULSE_DATA_REDIS_ADDR")
	_ = v.BindEnv("poller.production", "CREDITPULSE_POLLER_PRODUCTION")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Production mode widens poll timings unless explicitly configured
	production := v.GetBool("poller.production")
	if production {
		if !v.IsSet("poller.interval") {
			v.Set("poller.interval", 45*time.Second)
		}
		if !v.IsSet("poller.timeout") {
			v.Set("poller.timeout", 15*time.Second)
		}
		if !v.IsSet("poller.initial_delay") {
			v.Set("poller.initial_delay", 2*time.Second)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: v.GetDuration("server.http.timeout"),
			},
		},
		Backend: &Backend{
			BaseURL:       v.GetString("backend.base_url"),
			DefaultLocale: v.GetString("backend.default_locale"),
			Timeout:       v.GetDuration("backend.timeout"),
		},
		Poller: &Poller{
			Interval:     v.GetDuration("poller.interval"),
			Timeout:      v.GetDuration("poller.timeout"),
			InitialDelay: v.GetDuration("poller.initial_delay"),
			Production:   production,
		},
		Data: &Data{
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Backend defaults
	// Note: backend.base_url (BACKEND_BASE_URL) is required from environment
	v.SetDefault("backend.default_locale", "en")
	v.SetDefault("backend.timeout", 10*time.Second)

	// Poller defaults (development profile; production widens these)
	v.SetDefault("poller.interval", 30*time.Second)
	v.SetDefault("poller.timeout", 10*time.Second)
	v.SetDefault("poller.initial_delay", 1*time.Second)
	v.SetDefault("poller.production", false)

	// Data defaults
	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Backend == nil || bc.Backend.BaseURL == "" {
		missingFields = append(missingFields, "backend.base_url (BACKEND_BASE_URL)")
	}

	if bc.Backend != nil && bc.Backend.DefaultLocale != "" {
		locale := bc.Backend.DefaultLocale
		if locale != "en" && locale != "ar" {
			return fmt.Errorf("backend.default_locale must be en or ar, got %q", locale)
		}
	}

	if bc.Poller != nil && bc.Poller.Interval < time.Second {
		return fmt.Errorf("poller.interval must be at least 1s, got %s", bc.Poller.Interval)
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
