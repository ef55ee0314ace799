package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. TRIPBOOKING_DATABASE_HOST.
// Keys are derived from field names. Fields carry no envconfig tag: a tag
// also makes envconfig fall back to the bare name (USER, PORT).
const EnvPrefix = "TRIPBOOKING"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" split_words:"true"`
	SwaggerDir string `yaml:"swagger_dir" split_words:"true"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver" split_words:"true"`
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	MaxConns int32  `yaml:"max_conns" split_words:"true"`
	Migrate  bool   `yaml:"migrate" split_words:"true"`
	// SeedFile preloads the in-memory store; ignored for postgres.
	SeedFile string `yaml:"seed_file" split_words:"true"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

type RedisConfig struct {
	Addr     string `yaml:"addr" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	DB       int    `yaml:"db" split_words:"true"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" split_words:"true"`
	BookingEventsTopic string   `yaml:"booking_events_topic" split_words:"true"`
	GroupID            string   `yaml:"group_id" split_words:"true"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.BookingEventsTopic != ""
}

type BookingConfig struct {
	TaxRate                string `yaml:"tax_rate" split_words:"true"`
	Currency               string `yaml:"currency" split_words:"true"`
	Timezone               string `yaml:"timezone" split_words:"true"`
	CatalogCacheTTLSeconds int    `yaml:"catalog_cache_ttl_seconds" split_words:"true"`
	TxRetryAttempts        int    `yaml:"tx_retry_attempts" split_words:"true"`
	TxRetryBackoffMS       int    `yaml:"tx_retry_backoff_ms" split_words:"true"`
}

func (b BookingConfig) TaxRateDecimal() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(b.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("booking.tax_rate %q: %w", b.TaxRate, err)
	}
	return rate, nil
}

func (b BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking.timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

func (b BookingConfig) CatalogCacheTTL() time.Duration {
	return time.Duration(b.CatalogCacheTTLSeconds) * time.Second
}

func (b BookingConfig) TxRetryBackoff() time.Duration {
	return time.Duration(b.TxRetryBackoffMS) * time.Millisecond
}

type WorkerConfig struct {
	CompletionSweepMinutes int `yaml:"completion_sweep_minutes" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// Default is the configuration used for any value the file and the
// environment leave unset.
func Default() Config {
	return Config{
		HTTP:     HTTPConfig{Address: ":8080"},
		Database: DatabaseConfig{Driver: "memory", Host: "localhost", Port: 5432, SSLMode: "disable", MaxConns: 10},
		Kafka:    KafkaConfig{BookingEventsTopic: "booking-events", GroupID: "tripbooking-worker"},
		Booking: BookingConfig{
			TaxRate:                "0.10",
			Currency:               "USD",
			Timezone:               "UTC",
			CatalogCacheTTLSeconds: 300,
			TxRetryAttempts:        3,
			TxRetryBackoffMS:       20,
		},
		Worker: WorkerConfig{CompletionSweepMinutes: 5},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig reads path over the defaults, then applies TRIPBOOKING_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("database.driver must be memory or postgres, got %q", c.Database.Driver)
	}
	rate, err := c.Booking.TaxRateDecimal()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("booking.tax_rate must not be negative")
	}
	if _, err := c.Booking.Location(); err != nil {
		return err
	}
	if c.Booking.TxRetryAttempts < 1 {
		return fmt.Errorf("booking.tx_retry_attempts must be at least 1")
	}
	if c.Worker.CompletionSweepMinutes < 1 {
		return fmt.Errorf("worker.completion_sweep_minutes must be at least 1")
	}
	return nil
}
