package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 10*time.Minute, cfg.Courier.SyncStaleAfter)
	assert.False(t, cfg.Orders.RestockOnCancel)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "password", cfg.Seed.DefaultPassword)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BABURCHI_APP_PORT", "8080")
	t.Setenv("BABURCHI_DATABASE_DRIVER", "Postgres")
	t.Setenv("BABURCHI_ORDERS_RESTOCK_ON_CANCEL", "true")
	t.Setenv("BABURCHI_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BABURCHI_COURIER_SYNC_STALE_AFTER", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Orders.RestockOnCancel)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Minute, cfg.Courier.SyncStaleAfter)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("BABURCHI_DATABASE_DRIVER", "mysql")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"default secret in production", func(c *Config) { c.App.Env = "production" }, true},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"storage without credentials", func(c *Config) { c.Storage.Enabled = true }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				App:      AppConfig{Env: "development"},
				Database: DatabaseConfig{Driver: "sqlite"},
				JWT:      JWTConfig{Secret: "change-me-in-production"},
				Kafka:    KafkaConfig{Brokers: []string{"localhost:9092"}},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable", TimeZone: "Asia/Dhaka"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=Asia/Dhaka", d.PostgresDSN())

	d.URL = "postgres://x"
	assert.Equal(t, "postgres://x", d.PostgresDSN())
}
