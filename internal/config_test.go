package internal

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/archiver/internal/store"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Identity: "local"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Identity: "local"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_DisabledModeNeedsIdentity(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("disabled mode without identity should fail")
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret", Identity: "alice"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "", Identity: "alice"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_JWTMode(t *testing.T) {
	cfg := AuthConfig{Mode: "jwt", JWTSecret: "short"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("short jwt secret should fail")
	}
	cfg.JWTSecret = strings.Repeat("k", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("jwt mode with 32-byte secret should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("jwt mode should be enabled")
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_Defaults(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestStorageConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StorageConfig
		wantErr bool
	}{
		{"memory", StorageConfig{Driver: store.DriverMemory}, false},
		{"sqlite", StorageConfig{Driver: store.DriverSQLite, SQLite: SQLiteConfig{Path: "a.db"}}, false},
		{"sqlite no path", StorageConfig{Driver: store.DriverSQLite}, true},
		{"fs no path", StorageConfig{Driver: store.DriverFS}, true},
		{"postgres no dsn", StorageConfig{Driver: store.DriverPostgres}, true},
		{"postgres", StorageConfig{Driver: store.DriverPostgres, Postgres: PostgresConfig{DSN: "postgres://x"}}, false},
		{"unknown", StorageConfig{Driver: "bolt"}, true},
		{"empty", StorageConfig{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStorageConfig_StoreConfig(t *testing.T) {
	cfg := StorageConfig{
		Driver:   store.DriverFS,
		SQLite:   SQLiteConfig{Path: "a.db"},
		FS:       FSConfig{Path: "/var/archive"},
		Postgres: PostgresConfig{DSN: "postgres://x"},
	}
	got := cfg.StoreConfig()
	if got.Driver != store.DriverFS || got.Path != "/var/archive" || got.DSN != "" {
		t.Errorf("StoreConfig() = %+v", got)
	}

	cfg.Driver = store.DriverPostgres
	if got := cfg.StoreConfig(); got.DSN != "postgres://x" || got.Path != "" {
		t.Errorf("StoreConfig() = %+v", got)
	}
}

func TestClockAndEventsConfig(t *testing.T) {
	if err := (&ClockConfig{Mode: "lamport"}).Validate(); err == nil {
		t.Error("unknown clock mode should fail")
	}
	if err := (&ClockConfig{Mode: ClockModeUnix}).Validate(); err != nil {
		t.Errorf("unix clock should pass: %v", err)
	}
	if err := (&EventsConfig{KeepAlive: 10 * time.Millisecond}).Validate(); err == nil {
		t.Error("sub-second keepalive should fail")
	}
}
