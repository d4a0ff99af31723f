package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	API       APIConfig         `yaml:"api"`
	Cache     CacheConfig       `yaml:"cache"`
	Resources ResourcesConfig   `yaml:"resources"`
	Stub      StubConfig        `yaml:"stub"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	return c.Stub.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// APIConfig holds the admin backend connection configuration.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the API configuration.
func (c *APIConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("api: timeout must not be negative")
	}
	return nil
}

// CacheConfig holds the query cache configuration. Zero capacity means the
// built-in default.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Capacity, validation.Min(0)),
	)
}

// ResourcesConfig points at the optional resource registry file. When Path
// is empty the compiled-in registry is used.
type ResourcesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// StubConfig holds the development stub backend configuration.
type StubConfig struct {
	Port       int    `yaml:"port"`
	SQLitePath string `yaml:"sqlite_path"`
	Token      string `yaml:"token"`
	Seed       bool   `yaml:"seed"`
}

// Address returns the stub server listen address.
func (c *StubConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the stub configuration.
func (c *StubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.Token, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Capacity: 128,
		},
		Stub: StubConfig{
			Port:       8080,
			SQLitePath: "./raido.db",
			Token:      "dev-token",
			Seed:       true,
		},
	}
}
