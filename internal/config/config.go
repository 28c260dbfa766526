package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const DefaultBaseURL = "https://prema-dating-app.onrender.com"

// Config holds all configuration for the client
type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Chat      ChatConfig      `yaml:"chat"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Location  LocationConfig  `yaml:"location"`
	Photos    PhotosConfig    `yaml:"photos"`
	Push      PushConfig      `yaml:"push"`
	Mock      MockConfig      `yaml:"mock"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url" split_words:"true"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig selects where client state is persisted
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // sqlite, postgres or memory
	Path     string         `yaml:"path"`
	DeviceID string         `yaml:"device_id" split_words:"true"`
	Postgres DatabaseConfig `yaml:"postgres"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" split_words:"true"`
	SSLMode  string `yaml:"sslmode" split_words:"true"`
}

// ChatConfig holds message polling settings
type ChatConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" split_words:"true"`
	Realtime     bool          `yaml:"realtime"`
}

// DiscoveryConfig holds browse pagination settings
type DiscoveryConfig struct {
	PageSize          int           `yaml:"page_size" split_words:"true"`
	PrefetchThreshold int           `yaml:"prefetch_threshold" split_words:"true"`
	Debounce          time.Duration `yaml:"debounce"`
}

// LocationConfig holds location auto-update settings
type LocationConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval" split_words:"true"`
}

// PhotosConfig selects the photo upload path
type PhotosConfig struct {
	Mode string    `yaml:"mode"` // backend or s3
	AWS  AWSConfig `yaml:"aws"`
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket" split_words:"true"`
	AccessKey string `yaml:"access_key" split_words:"true"`
	SecretKey string `yaml:"secret_key" split_words:"true"`
	Endpoint  string `yaml:"endpoint"` // S3-compatible providers
	PublicURL string `yaml:"public_url" split_words:"true"`
}

// PushConfig holds the device push token and APNs credentials for test
// notifications
type PushConfig struct {
	DeviceToken string `yaml:"device_token" split_words:"true"`
	KeyPath     string `yaml:"key_path" split_words:"true"`
	KeyID       string `yaml:"key_id" split_words:"true"`
	TeamID      string `yaml:"team_id" split_words:"true"`
	Topic       string `yaml:"topic"`
	Production  bool   `yaml:"production"`
}

// MockConfig holds mock backend settings
type MockConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret" split_words:"true"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   "sqlite",
			Path:     defaultStatePath(),
			DeviceID: "default",
			Postgres: DatabaseConfig{Host: "localhost", Port: 5432, SSLMode: "disable"},
		},
		Chat: ChatConfig{PollInterval: 3 * time.Second},
		Discovery: DiscoveryConfig{
			PageSize:          10,
			PrefetchThreshold: 3,
			Debounce:          500 * time.Millisecond,
		},
		Location: LocationConfig{UpdateInterval: 10 * time.Minute},
		Photos:   PhotosConfig{Mode: "backend"},
		Mock: MockConfig{
			Host:      "127.0.0.1",
			Port:      8000,
			JWTSecret: "mock-secret",
		},
		Log: LogConfig{Level: "info"},
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "prema", "state.db")
}

// Load reads configuration from a YAML file on top of the defaults, then
// applies PREMA_* environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("prema", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	switch c.Storage.Driver {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Photos.Mode {
	case "backend":
	case "s3":
		if c.Photos.AWS.S3Bucket == "" || c.Photos.AWS.Region == "" {
			return fmt.Errorf("photos.aws.region and photos.aws.s3_bucket are required in s3 mode")
		}
	default:
		return fmt.Errorf("unknown photos mode %q", c.Photos.Mode)
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.poll_interval must be > 0")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
