package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/google/uuid"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config centraliza la configuración del dashboard.
type Config struct {
	// El servidor expone la sesion del dispositivo sin credencial por cliente: por defecto solo loopback.
	HTTPHost string `env:"HTTP_HOST" envDefault:"127.0.0.1"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	RemoteBaseURL string        `env:"REMOTE_BASE_URL,required,notEmpty"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`

	ResendWindowSeconds int `env:"OTP_RESEND_WINDOW_SECONDS" envDefault:"30"`

	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"sqlite"`
	SessionKey         string        `env:"SESSION_KEY" envDefault:"auth_user"`
	SessionSQLitePath  string        `env:"SESSION_SQLITE_PATH" envDefault:"admin-panel-session.db"`
	SessionDeviceKey   string        `env:"SESSION_DEVICE_KEY"`
	SessionSigningKey  string        `env:"SESSION_SIGNING_KEY"`
	SessionRedisPrefix string        `env:"SESSION_REDIS_PREFIX" envDefault:"admin-panel:session:"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"0s"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AttemptLimitWindow time.Duration `env:"ATTEMPT_LIMIT_WINDOW" envDefault:"1m"`
	AttemptLimitMax    int           `env:"ATTEMPT_LIMIT_MAX" envDefault:"20"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que env no puede expresar con tags.
func (c *Config) Validate() error {
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	switch c.SessionBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.SessionSQLitePath) == "" {
			return fmt.Errorf("SESSION_SQLITE_PATH is required for sqlite backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required for redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if strings.TrimSpace(c.SessionKey) == "" {
		return fmt.Errorf("SESSION_KEY must not be empty")
	}
	if c.ResendWindowSeconds <= 0 {
		return fmt.Errorf("OTP_RESEND_WINDOW_SECONDS must be positive")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	return nil
}

// ListenAddr arma host:puerto para el servidor local.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(strings.TrimSpace(c.HTTPHost), c.HTTPPort)
}

// DeviceKey identifica este dispositivo en el backend postgres.
// Sin valor configurado se deriva del hostname para que sobreviva reinicios.
func (c *Config) DeviceKey() string {
	if key := strings.TrimSpace(c.SessionDeviceKey); key != "" {
		return key
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)).String()
}
