package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Env    string
	Server ServerConfig
	Store  StoreConfig
	DB     DBConfig
	Redis  RedisConfig
	Upload UploadConfig
	Chat   ChatConfig
	Log    LogConfig
	CORS   CORSConfig
}

type ServerConfig struct {
	Address         string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the durable message store: postgres, sqlite or redis.
type StoreConfig struct {
	Driver string
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	SSLMode  string `mapstructure:"sslmode"`
	Path     string // sqlite file
}

type RedisConfig struct {
	URL string
}

// UploadConfig selects the object store for uploaded files: fs or nats.
type UploadConfig struct {
	Backend     string
	Dir         string
	NATSURL     string `mapstructure:"nats_url"`
	Bucket      string
	MaxBytes    int64         `mapstructure:"max_bytes"`
	CacheMaxAge time.Duration `mapstructure:"cache_max_age"`
}

type ChatConfig struct {
	// EchoSender includes the sending connection in the raw re-broadcast.
	EchoSender bool  `mapstructure:"echo_sender"`
	SendBuffer int   `mapstructure:"send_buffer"`
	ReadLimit  int64 `mapstructure:"read_limit"`
}

type LogConfig struct {
	Level string
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

var (
	ErrUnknownStoreDriver   = errors.New("unknown store driver")
	ErrUnknownUploadBackend = errors.New("unknown upload backend")
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "partychat")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "partychat.db")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("upload.backend", "fs")
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.nats_url", "nats://localhost:4222")
	v.SetDefault("upload.bucket", "partychat-uploads")
	v.SetDefault("upload.max_bytes", 15<<20)
	v.SetDefault("upload.cache_max_age", 7*24*time.Hour)
	v.SetDefault("chat.echo_sender", false)
	v.SetDefault("chat.send_buffer", 256)
	v.SetDefault("chat.read_limit", 8<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads config.yaml from ./pkg/config or the working directory, then
// applies PARTYCHAT_* environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	// .env is optional, only used in development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./pkg/config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTYCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects driver and backend names nothing can serve.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite", "redis":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.Store.Driver)
	}
	switch c.Upload.Backend {
	case "fs", "nats":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownUploadBackend, c.Upload.Backend)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PostgresDSN builds the DSN for the postgres driver.
func (c DBConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}
