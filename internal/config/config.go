package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Log      LogConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Courier  CourierConfig
	Orders   OrdersConfig
	Storage  StorageConfig
	Invoice  InvoiceConfig
	Seed     SeedConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig selects the gorm dialector. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

type JWTConfig struct {
	Secret      string
	Expiration  time.Duration
	Issuer      string
	IdleTimeout time.Duration // 0 disables the inactivity check
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// RedisConfig enables the shared cache when Enabled is true; otherwise an in-process cache is used.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled    bool
	Brokers    []string
	Topic      string
	BufferSize int
}

type CourierConfig struct {
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	SyncStaleAfter  time.Duration
}

type OrdersConfig struct {
	RestockOnCancel   bool
	DashboardCacheTTL time.Duration
}

// StorageConfig configures S3-compatible storage for the brand logo.
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string
}

type InvoiceConfig struct {
	PDFEnabled bool
	ChromeURL  string // remote debugging URL; empty launches a local browser
	Timeout    time.Duration
}

type SeedConfig struct {
	Enabled         bool
	DefaultPassword string
}

// Load reads configuration from an optional config file and BABURCHI_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BABURCHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.sslmode"),
			TimeZone:        v.GetString("database.timezone"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("jwt.secret"),
			Expiration:  v.GetDuration("jwt.expiration"),
			Issuer:      v.GetString("jwt.issuer"),
			IdleTimeout: v.GetDuration("jwt.idle_timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Enabled:    v.GetBool("kafka.enabled"),
			Brokers:    splitList(v.GetString("kafka.brokers")),
			Topic:      v.GetString("kafka.topic"),
			BufferSize: v.GetInt("kafka.buffer_size"),
		},
		Courier: CourierConfig{
			Timeout:         v.GetDuration("courier.timeout"),
			MaxRetries:      v.GetUint64("courier.max_retries"),
			InitialInterval: v.GetDuration("courier.initial_interval"),
			SyncStaleAfter:  v.GetDuration("courier.sync_stale_after"),
		},
		Orders: OrdersConfig{
			RestockOnCancel:   v.GetBool("orders.restock_on_cancel"),
			DashboardCacheTTL: v.GetDuration("orders.dashboard_cache_ttl"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			PublicURL:    v.GetString("storage.public_url"),
		},
		Invoice: InvoiceConfig{
			PDFEnabled: v.GetBool("invoice.pdf_enabled"),
			ChromeURL:  v.GetString("invoice.chrome_url"),
			Timeout:    v.GetDuration("invoice.timeout"),
		},
		Seed: SeedConfig{
			Enabled:         v.GetBool("seed.enabled"),
			DefaultPassword: v.GetString("seed.default_password"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Baburchi Admin")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "baburchi")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Dhaka")
	v.SetDefault("database.sqlite_path", "baburchi.db")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.slow_threshold", time.Second)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiration", 24*time.Hour)
	v.SetDefault("jwt.issuer", "baburchi-admin")
	v.SetDefault("jwt.idle_timeout", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "baburchi.orders")
	v.SetDefault("kafka.buffer_size", 256)

	v.SetDefault("courier.timeout", 15*time.Second)
	v.SetDefault("courier.max_retries", 3)
	v.SetDefault("courier.initial_interval", 500*time.Millisecond)
	v.SetDefault("courier.sync_stale_after", 10*time.Minute)

	v.SetDefault("orders.restock_on_cancel", false)
	v.SetDefault("orders.dashboard_cache_ttl", 30*time.Second)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "baburchi")
	v.SetDefault("storage.use_path_style", true)

	v.SetDefault("invoice.pdf_enabled", false)
	v.SetDefault("invoice.timeout", 30*time.Second)

	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.default_password", "password")
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.App.Env == "production" && c.JWT.Secret == "change-me-in-production" {
		return fmt.Errorf("jwt secret must be changed in production")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	if c.Storage.Enabled && (c.Storage.Bucket == "" || c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return fmt.Errorf("storage bucket and credentials are required when storage is enabled")
	}
	return nil
}

// PostgresDSN builds the connection string when no URL is configured.
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
