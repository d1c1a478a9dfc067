package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://remote.example.com/web")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.HTTPHost != "127.0.0.1" {
		t.Fatalf("expected loopback host by default, got %s", cfg.HTTPHost)
	}
	if cfg.ListenAddr() != "127.0.0.1:8080" {
		t.Fatalf("expected listen addr 127.0.0.1:8080, got %s", cfg.ListenAddr())
	}
	if cfg.SessionBackend != BackendSQLite {
		t.Fatalf("expected sqlite backend, got %s", cfg.SessionBackend)
	}
	if cfg.SessionKey != "auth_user" {
		t.Fatalf("expected auth_user key, got %s", cfg.SessionKey)
	}
	if cfg.ResendWindowSeconds != 30 {
		t.Fatalf("expected resend window 30, got %d", cfg.ResendWindowSeconds)
	}
	if cfg.RemoteTimeout != 10*time.Second {
		t.Fatalf("expected remote timeout 10s, got %s", cfg.RemoteTimeout)
	}
}

func TestLoadConfig_RequiresRemote(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without REMOTE_BASE_URL")
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			RemoteBaseURL:       "https://remote.example.com",
			RemoteTimeout:       time.Second,
			ResendWindowSeconds: 30,
			SessionKey:          "auth_user",
			SessionSQLitePath:   "session.db",
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"sqlite ok", func(c *Config) { c.SessionBackend = "SQLite" }, false},
		{"memory ok", func(c *Config) { c.SessionBackend = BackendMemory }, false},
		{"postgres needs url", func(c *Config) { c.SessionBackend = BackendPostgres }, true},
		{"postgres ok", func(c *Config) {
			c.SessionBackend = BackendPostgres
			c.DatabaseURL = "postgres://localhost/db"
		}, false},
		{"redis needs addr", func(c *Config) { c.SessionBackend = BackendRedis }, true},
		{"unknown backend", func(c *Config) { c.SessionBackend = "etcd" }, true},
		{"empty key", func(c *Config) {
			c.SessionBackend = BackendMemory
			c.SessionKey = " "
		}, true},
		{"zero window", func(c *Config) {
			c.SessionBackend = BackendMemory
			c.ResendWindowSeconds = 0
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestConfigDeviceKey(t *testing.T) {
	cfg := Config{SessionDeviceKey: " kiosk-1 "}
	if got := cfg.DeviceKey(); got != "kiosk-1" {
		t.Fatalf("expected configured key, got %q", got)
	}

	cfg.SessionDeviceKey = ""
	first := cfg.DeviceKey()
	if first == "" || first != cfg.DeviceKey() {
		t.Fatalf("expected stable derived key, got %q", first)
	}
}

func TestConfigListenAddr(t *testing.T) {
	cases := []struct {
		host, port, want string
	}{
		{"127.0.0.1", "8080", "127.0.0.1:8080"},
		{"0.0.0.0", "9000", "0.0.0.0:9000"},
		{"::1", "8080", "[::1]:8080"},
		{"", "8080", ":8080"},
	}
	for _, tc := range cases {
		cfg := Config{HTTPHost: tc.host, HTTPPort: tc.port}
		if got := cfg.ListenAddr(); got != tc.want {
			t.Fatalf("host %q port %q: expected %s, got %s", tc.host, tc.port, tc.want, got)
		}
	}
}
