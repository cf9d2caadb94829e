package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port          string    `yaml:"port" env:"PORT" env-default:"8080"`
	JWTSecret     string    `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	JWTTTLMinutes int       `yaml:"jwt_ttl_minutes" env:"JWT_TTL_MINUTES" env-default:"1440"`
	Database      Database  `yaml:"database"`
	Redis         Redis     `yaml:"redis"`
	Kafka         Kafka     `yaml:"kafka"`
	Cache         Cache     `yaml:"cache"`
	RateLimit     RateLimit `yaml:"rate_limit"`
	Log           Log       `yaml:"log"`
	Worker        Worker    `yaml:"worker"`
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

type Worker struct {
	MaxWorkers int `yaml:"max_workers" env:"WORKER_MAX_WORKERS" env-default:"10"`
}

type Database struct {
	User         string `yaml:"user" env:"DB_USER" env-required:"true"`
	Password     string `yaml:"password" env:"DB_PASSWORD" env-required:"true"`
	DatabaseName string `yaml:"database_name" env:"DB_NAME" env-required:"true"`
	Host         string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port         string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode      string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`

	// Connection Pool Settings
	MaxOpenConns    int `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	ConnMaxLifetime int `yaml:"conn_max_lifetime_minutes" env:"DB_CONN_MAX_LIFETIME" env-default:"30"`
}

func (d *Database) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DatabaseName, d.SSLMode)
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`

	// Circuit breaker around every cache round trip
	BreakerMaxFailures    uint32 `yaml:"breaker_max_failures" env:"REDIS_BREAKER_MAX_FAILURES" env-default:"5"`
	BreakerTimeoutSeconds int    `yaml:"breaker_timeout_seconds" env:"REDIS_BREAKER_TIMEOUT" env-default:"30"`
}

func (r *Redis) GetRedisURL() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type Kafka struct {
	Brokers             []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
	BookingEventsTopic  string   `yaml:"booking_events_topic" env:"KAFKA_BOOKING_EVENTS_TOPIC" env-default:"booking-events"`
	PaymentResultsTopic string   `yaml:"payment_results_topic" env:"KAFKA_PAYMENT_RESULTS_TOPIC" env-default:"payment-results"`
	ConsumerGroup       string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"gigbooking"`
}

type Cache struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL" env-default:"3600"`
}

func (c Cache) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type RateLimit struct {
	Enabled       bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	Max           int  `yaml:"max" env:"RATE_LIMIT_MAX" env-default:"100"`
	WindowSeconds int  `yaml:"window_seconds" env:"RATE_LIMIT_WINDOW" env-default:"900"`
}

func (r RateLimit) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Env   string `yaml:"env" env:"APP_ENV" env-default:"dev"`
}

// Initialise reads configuration from configPath when present, falling back to
// the environment. A .env file in the working directory is loaded first.
func Initialise(configPath string, useEnv bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if useEnv {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment variables: %w", err)
		}
		return cfg, nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := cleanenv.ReadConfig(configPath, cfg); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
			return cfg, nil
		}
	}

	// Fallback to environment variables
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	return cfg, nil
}
