package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("AUTH_REFRESH_STORE", "")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL_HOURS", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_REFRESH_SECRET", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RefreshStoreMemory, cfg.Auth.RefreshStore)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/auth")
	t.Setenv("AUTH_REFRESH_STORE", "Redis")
	t.Setenv("AUTH_JWT_SECRET", "a")
	t.Setenv("AUTH_REFRESH_SECRET", "b")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("APP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RefreshStoreRedis, cfg.Auth.RefreshStore)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:9000", cfg.App.Addr())
}

func TestLoad_PostgresStoreIsDefaultWithDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/auth")
	t.Setenv("AUTH_REFRESH_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, RefreshStorePostgres, cfg.Auth.RefreshStore)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Postgres: PostgresConfig{DSN: "postgres://localhost/auth"},
			Auth: AuthConfig{
				JWTSecret:     "access",
				RefreshSecret: "refresh",
				RefreshStore:  RefreshStorePostgres,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing access secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "missing refresh secret", mutate: func(c *Config) { c.Auth.RefreshSecret = "" }, wantErr: true},
		{name: "shared secret", mutate: func(c *Config) { c.Auth.RefreshSecret = "access" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Postgres.DSN = "" }, wantErr: true},
		{name: "memory without dsn", mutate: func(c *Config) {
			c.Postgres.DSN = ""
			c.Auth.RefreshStore = RefreshStoreMemory
		}},
		{name: "unknown store", mutate: func(c *Config) { c.Auth.RefreshStore = "etcd" }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 3*time.Second, AppConfig{RequestTimeoutSeconds: 3}.RequestTimeout())
}
