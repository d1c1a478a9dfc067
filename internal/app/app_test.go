package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admin-panel/internal/config"
	"admin-panel/internal/domain"
	"admin-panel/internal/service"
)

func baseConfig() *config.Config {
	return &config.Config{
		RemoteBaseURL:       "http://127.0.0.1:1/web",
		RemoteTimeout:       time.Second,
		ResendWindowSeconds: 30,
		SessionKey:          "auth_user",
		SessionRedisPrefix:  "admin-panel:session:",
		AttemptLimitWindow:  time.Minute,
		AttemptLimitMax:     5,
	}
}

func TestNew_SQLiteSurvivesRestart(t *testing.T) {
	cfg := baseConfig()
	cfg.SessionBackend = config.BackendSQLite
	cfg.SessionSQLitePath = filepath.Join(t.TempDir(), "session.db")
	cfg.SessionSigningKey = "secret"
	ctx := context.Background()

	first, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	first.Session.Init(ctx)
	require.NoError(t, first.Session.Login(ctx, domain.Identity{UserID: "u1", Email: "a@b.co"}))
	first.Close()

	second, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	defer second.Close()
	second.Session.Init(ctx)
	assert.Equal(t, service.ViewProtected, second.Guard.Decide())
}

func TestNew_RedisBackendAndLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.SessionBackend = config.BackendRedis
	cfg.RedisAddr = mr.Addr()
	ctx := context.Background()

	a, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	a.Session.Init(ctx)
	require.NoError(t, a.Session.Login(ctx, domain.Identity{Email: "a@b.co"}))
	assert.True(t, mr.Exists("admin-panel:session:auth_user"))

	ok, _ := a.Limiter.Allow(ctx, "127.0.0.1|login")
	assert.True(t, ok)
	assert.True(t, mr.Exists("admin-panel:session:attempts:127.0.0.1|login"))
}

func TestNew_MemoryBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.SessionBackend = config.BackendMemory
	ctx := context.Background()

	a, err := New(ctx, cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, service.ViewLoading, a.Guard.Decide())
	a.Session.Init(ctx)
	assert.Equal(t, service.ViewCredentials, a.Guard.Decide())
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := baseConfig()
	cfg.SessionBackend = "etcd"
	_, err := New(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}
