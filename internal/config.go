package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/archiver/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// Clock modes.
const (
	ClockModeSequence = "sequence"
	ClockModeUnix     = "unix"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Clock   ClockConfig       `yaml:"clock"`
	Events  EventsConfig      `yaml:"events"`
	MCP     MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Clock.Validate(); err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return c.MCP.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	FS       FSConfig       `yaml:"fs"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FSConfig holds the root directory of the file-system store.
type FSConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds the PostgreSQL connection string.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate checks that the chosen driver has the settings it needs.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required,
			validation.In(store.DriverMemory, store.DriverSQLite, store.DriverFS, store.DriverPostgres)),
		validation.Field(&c.SQLite, validation.By(func(any) error {
			if c.Driver == store.DriverSQLite && c.SQLite.Path == "" {
				return errors.New("path is required for the sqlite driver")
			}
			return nil
		})),
		validation.Field(&c.FS, validation.By(func(any) error {
			if c.Driver == store.DriverFS && c.FS.Path == "" {
				return errors.New("path is required for the fs driver")
			}
			return nil
		})),
		validation.Field(&c.Postgres, validation.By(func(any) error {
			if c.Driver == store.DriverPostgres && c.Postgres.DSN == "" {
				return errors.New("dsn is required for the postgres driver")
			}
			return nil
		})),
	)
}

// StoreConfig converts the section into the store package's selector.
func (c *StorageConfig) StoreConfig() store.Config {
	cfg := store.Config{Driver: c.Driver}
	switch c.Driver {
	case store.DriverSQLite:
		cfg.Path = c.SQLite.Path
	case store.DriverFS:
		cfg.Path = c.FS.Path
	case store.DriverPostgres:
		cfg.DSN = c.Postgres.DSN
	}
	return cfg
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request acts as Identity, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty and
//     requests presenting it act as Identity.
//   - "jwt": HS256 Bearer JWTs signed with JWTSecret; the subject claim is
//     the caller identity.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	Token     string `yaml:"token"`
	Identity  string `yaml:"identity"`
	JWTSecret string `yaml:"jwt_secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeJWT)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case AuthModeToken:
		if c.Token == "" {
			return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
		}
		if c.Identity == "" {
			return fmt.Errorf("auth: mode is %q but identity is empty", AuthModeToken)
		}
	case AuthModeJWT:
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("auth: mode is %q but jwt_secret is shorter than 32 bytes", AuthModeJWT)
		}
	case AuthModeDisabled:
		if c.Identity == "" {
			return fmt.Errorf("auth: mode is %q but identity is empty", AuthModeDisabled)
		}
	}
	return nil
}

// AuthEnabled returns true when requests must carry credentials.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken || c.Mode == AuthModeJWT
}

// ClockConfig selects the logical clock used for created_at.
type ClockConfig struct {
	Mode string `yaml:"mode"`
}

// Validate validates the clock configuration.
func (c *ClockConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(ClockModeSequence, ClockModeUnix)),
	)
}

// EventsConfig configures the SSE event stream.
type EventsConfig struct {
	KeepAlive time.Duration `yaml:"keepalive"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.KeepAlive, validation.Required, validation.Min(time.Second)),
	)
}

// MCPConfig configures the stdio MCP server.
type MCPConfig struct {
	// Identity is the submitter recorded for books archived over MCP.
	Identity string `yaml:"identity"`
}

// Validate validates the MCP configuration.
func (c *MCPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Identity, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver: store.DriverSQLite,
			SQLite: SQLiteConfig{Path: "./archiver.db"},
			FS:     FSConfig{Path: "./archive"},
		},
		Auth: AuthConfig{
			Mode:     AuthModeDisabled,
			Identity: "local",
		},
		Clock: ClockConfig{
			Mode: ClockModeSequence,
		},
		Events: EventsConfig{
			KeepAlive: 15 * time.Second,
		},
		MCP: MCPConfig{
			Identity: "mcp",
		},
	}
}
