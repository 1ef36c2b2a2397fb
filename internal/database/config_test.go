package database

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Path != "launchdock.db" {
		t.Errorf("Expected default path launchdock.db, got %s", config.Path)
	}
	if config.JournalMode != "WAL" {
		t.Errorf("Expected WAL journal mode, got %s", config.JournalMode)
	}
	if config.Environment != "production" {
		t.Errorf("Expected production environment, got %s", config.Environment)
	}
	if !config.ForeignKeys {
		t.Error("Foreign keys should be enabled by default")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestTestConfig(t *testing.T) {
	config := TestConfig()

	if !config.IsInMemory() {
		t.Error("Test config should use an in-memory database")
	}
	if config.JournalMode == "WAL" {
		t.Error("WAL is meaningless for in-memory databases")
	}
	if !config.ForceSingleConnection {
		t.Error("Test config should force a single connection")
	}
	if !config.IsTest() {
		t.Error("Test config should report the test environment")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Test config should validate: %v", err)
	}
}

func TestConfigForEnvironment(t *testing.T) {
	tests := []struct {
		env      string
		expected string
	}{
		{"development", "development"},
		{"test", "test"},
		{"production", "production"},
		{"unknown", "production"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			config := ConfigForEnvironment(tt.env)
			if config.Environment != tt.expected {
				t.Errorf("ConfigForEnvironment(%q).Environment = %q, want %q",
					tt.env, config.Environment, tt.expected)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LAUNCHDOCK_DB_PATH", "/tmp/override.db")
	t.Setenv("LAUNCHDOCK_DB_MAX_CONNECTIONS", "2")
	t.Setenv("LAUNCHDOCK_DB_JOURNAL_MODE", "DELETE")
	t.Setenv("LAUNCHDOCK_DB_FOREIGN_KEYS", "off")
	t.Setenv("LAUNCHDOCK_DB_CONN_MAX_LIFETIME", "1h")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err != nil {
		t.Fatalf("LoadFromEnvironment failed: %v", err)
	}

	if config.Path != "/tmp/override.db" {
		t.Errorf("Path override not applied: %s", config.Path)
	}
	if config.MaxConnections != 2 {
		t.Errorf("MaxConnections override not applied: %d", config.MaxConnections)
	}
	if config.JournalMode != "DELETE" {
		t.Errorf("JournalMode override not applied: %s", config.JournalMode)
	}
	if config.ForeignKeys {
		t.Error("ForeignKeys=off override not applied")
	}
	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("ConnMaxLifetime override not applied: %v", config.ConnMaxLifetime)
	}
}

func TestLoadFromEnvironmentIgnoresInvalid(t *testing.T) {
	t.Setenv("LAUNCHDOCK_DB_MAX_CONNECTIONS", "not-a-number")
	t.Setenv("LAUNCHDOCK_DB_FOREIGN_KEYS", "maybe")

	config := DefaultConfig()
	if err := config.LoadFromEnvironment(); err != nil {
		t.Fatalf("LoadFromEnvironment failed: %v", err)
	}

	if config.MaxConnections != 4 {
		t.Errorf("Invalid MaxConnections should be ignored, got %d", config.MaxConnections)
	}
	if !config.ForeignKeys {
		t.Error("Invalid boolean should be ignored")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.Path = "" }},
		{"zero connections", func(c *Config) { c.MaxConnections = 0 }},
		{"idle exceeds max", func(c *Config) { c.MaxIdleConns = 10; c.MaxConnections = 2 }},
		{"bad journal mode", func(c *Config) { c.JournalMode = "SIDEWAYS" }},
		{"wal in memory", func(c *Config) { c.Path = ":memory:"; c.JournalMode = "WAL" }},
		{"bad sync mode", func(c *Config) { c.SynchronousMode = "SOMETIMES" }},
		{"zero cache", func(c *Config) { c.CacheSize = 0 }},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -1 }},
		{"bad environment", func(c *Config) { c.Environment = "staging" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestGetConnectionString(t *testing.T) {
	config := DefaultConfig()
	config.Path = "/data/launchdock.db"

	connStr := config.GetConnectionString()

	if !strings.HasPrefix(connStr, "/data/launchdock.db?") {
		t.Errorf("Connection string should start with the path: %s", connStr)
	}
	for _, fragment := range []string{
		"_foreign_keys=on",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
		"_cache_size=-2000",
		"_busy_timeout=30000",
	} {
		if !strings.Contains(connStr, fragment) {
			t.Errorf("Connection string missing %q: %s", fragment, connStr)
		}
	}
}

func TestClone(t *testing.T) {
	original := DefaultConfig()
	clone := original.Clone()

	clone.Path = "changed.db"
	clone.MaxConnections = 99

	if original.Path == clone.Path {
		t.Error("Clone should not share state with the original")
	}
	if original.MaxConnections == clone.MaxConnections {
		t.Error("Clone should not share state with the original")
	}
}
