package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// StorageConfig holds object storage configuration.
// Driver is "s3" (AWS SDK) or "minio" (any S3-compatible endpoint).
type StorageConfig struct {
	Driver     string        `yaml:"driver"`
	Region     string        `yaml:"region"`
	Bucket     string        `yaml:"bucket"`
	AccessKey  string        `yaml:"access_key"`
	SecretKey  string        `yaml:"secret_key"`
	Endpoint   string        `yaml:"endpoint"`
	UseSSL     bool          `yaml:"use_ssl"`
	Folder     string        `yaml:"folder"`
	PresignTTL time.Duration `yaml:"presign_ttl"`
}

// RedisConfig holds redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// RateLimitConfig limits join and sign-in attempts per caller
type RateLimitConfig struct {
	JoinPerMinute   int `yaml:"join_per_minute"`
	JoinBurst       int `yaml:"join_burst"`
	SignInPerMinute int `yaml:"signin_per_minute"`
	SignInBurst     int `yaml:"signin_burst"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides (a .env file in the working directory is loaded first if present).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			MaxUploadBytes: 15 << 20,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Port:     5432,
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Storage: StorageConfig{
			Driver:     "s3",
			Folder:     "photos",
			UseSSL:     true,
			PresignTTL: time.Hour,
		},
		JWT: JWTConfig{
			TTL: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			JoinPerMinute:   10,
			JoinBurst:       5,
			SignInPerMinute: 20,
			SignInBurst:     10,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.Password, "DATABASE_PASSWORD")
	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.Storage.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&cfg.Storage.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&cfg.Storage.Region, "AWS_REGION")
	setString(&cfg.Storage.Bucket, "S3_BUCKET")
	setString(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if v, ok := os.LookupEnv("SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate reports every missing required value
func (c *Config) Validate() error {
	var missing []string

	if c.Database.Host == "" {
		missing = append(missing, "database.host")
	}
	if c.Database.User == "" {
		missing = append(missing, "database.user")
	}
	if c.Database.DBName == "" {
		missing = append(missing, "database.dbname")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "storage.bucket")
	}
	if c.Storage.Region == "" {
		missing = append(missing, "storage.region")
	}
	if c.Storage.AccessKey == "" {
		missing = append(missing, "storage.access_key")
	}
	if c.Storage.SecretKey == "" {
		missing = append(missing, "storage.secret_key")
	}
	if c.Storage.Driver == "minio" && c.Storage.Endpoint == "" {
		missing = append(missing, "storage.endpoint")
	}
	if c.Redis.Addr == "" {
		missing = append(missing, "redis.addr")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Storage.Driver != "s3" && c.Storage.Driver != "minio" {
		return errors.New("storage.driver must be s3 or minio")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// MigrationURL returns the connection URL understood by the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrationURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
