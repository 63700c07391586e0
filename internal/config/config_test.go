package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PUSH_PROVIDER", "")
	t.Setenv("NOTIFY_PRUNE_MODE", "")
	t.Setenv("NATS_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, PushProviderLog, cfg.Push.Provider)
	assert.Equal(t, PruneModeAll, cfg.Notify.PruneMode)
	assert.Equal(t, "ttk.events", cfg.NATS.Subject)
	assert.False(t, cfg.NATS.Enabled())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_KEY_PREFIX", "test")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("NOTIFY_PRUNE_MODE", "UNREGISTERED")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverRedis, cfg.Store.Driver)
	assert.Equal(t, "test", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.NATS.Enabled())
	assert.Equal(t, PruneModeUnregistered, cfg.Notify.PruneMode)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}

func TestLoadRejectsInvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Store:  StoreConfig{Driver: StoreDriverSQLite},
			Push:   PushConfig{Provider: PushProviderLog},
			Notify: NotifyConfig{PruneMode: PruneModeAll},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: "STORE_DRIVER"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = StoreDriverPostgres }, wantErr: "POSTGRES_DSN"},
		{name: "fcm without credentials", mutate: func(c *Config) { c.Push.Provider = PushProviderFCM }, wantErr: "FCM_CREDENTIALS_FILE"},
		{name: "unknown provider", mutate: func(c *Config) { c.Push.Provider = "apns" }, wantErr: "PUSH_PROVIDER"},
		{name: "unknown prune mode", mutate: func(c *Config) { c.Notify.PruneMode = "never" }, wantErr: "NOTIFY_PRUNE_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
