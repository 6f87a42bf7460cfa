package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store drivers
const (
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Auth modes
const (
	AuthModePassword = "password"
	AuthModeMock     = "mock"
)

// AI providers
const (
	AIProviderNone      = "none"
	AIProviderOpenAI    = "openai"
	AIProviderAnthropic = "anthropic"
)

// Config holds all configuration for the server.
// Values come from the environment, optionally layered over a YAML file
// named by CONFIG_FILE. Secrets only come from the environment.
type Config struct {
	Env  string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Port string `yaml:"port" env:"PORT" env-default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`

	StoreDriver string `yaml:"store_driver" env:"STORE_DRIVER" env-default:"memory"`
	DBHost      string `yaml:"db_host" env:"DB_HOST" env-default:"localhost"`
	DBPort      string `yaml:"db_port" env:"DB_PORT" env-default:"3306"`
	DBUser      string `yaml:"db_user" env:"DB_USER" env-default:"taskuser"`
	DBPassword  string `yaml:"-" env:"DB_PASSWORD" env-default:"taskpassword"`
	DBName      string `yaml:"db_name" env:"DB_NAME" env-default:"taskpilot"`
	DBPath      string `yaml:"db_path" env:"DB_PATH" env-default:"taskpilot.db"`

	RedisHost     string `yaml:"redis_host" env:"REDIS_HOST" env-default:""`
	RedisPort     string `yaml:"redis_port" env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `yaml:"-" env:"REDIS_PASSWORD" env-default:""`
	RedisEvents   bool   `yaml:"redis_events" env:"REDIS_EVENTS" env-default:"false"`

	SessionSecret string `yaml:"-" env:"SESSION_SECRET" env-default:"default-secret-key-change-me"`
	GinMode       string `yaml:"gin_mode" env:"GIN_MODE" env-default:"debug"`

	AuthMode         string  `yaml:"auth_mode" env:"AUTH_MODE" env-default:"password"`
	SignInRatePerMin float64 `yaml:"sign_in_rate_per_min" env:"SIGN_IN_RATE_PER_MIN" env-default:"5"`
	SignInBurst      int     `yaml:"sign_in_burst" env:"SIGN_IN_BURST" env-default:"5"`
	SeedDemoData     bool    `yaml:"seed_demo_data" env:"SEED_DEMO_DATA" env-default:"true"`
	SeedPassword     string  `yaml:"-" env:"SEED_PASSWORD" env-default:"password"`

	AIProvider      string        `yaml:"ai_provider" env:"AI_PROVIDER" env-default:"openai"`
	AIModel         string        `yaml:"ai_model" env:"AI_MODEL" env-default:""`
	AITimeout       time.Duration `yaml:"ai_timeout" env:"AI_TIMEOUT" env-default:"30s"`
	OpenAIAPIKey    string        `yaml:"-" env:"OPENAI_API_KEY" env-default:""`
	AnthropicAPIKey string        `yaml:"-" env:"ANTHROPIC_API_KEY" env-default:""`
}

// Load reads the configuration from the environment and, when CONFIG_FILE
// is set, from that YAML file first.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreMySQL, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthMode {
	case AuthModePassword, AuthModeMock:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	switch c.AIProvider {
	case AIProviderNone, AIProviderOpenAI, AIProviderAnthropic:
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}

	if c.RedisEvents && c.RedisHost == "" {
		return fmt.Errorf("REDIS_EVENTS requires REDIS_HOST")
	}
	return nil
}

// RedisAddr returns host:port of the Redis server, or "" when unset.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

// AIEnabled reports whether a text suggester backend is configured.
func (c *Config) AIEnabled() bool {
	switch c.AIProvider {
	case AIProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case AIProviderAnthropic:
		return c.AnthropicAPIKey != ""
	default:
		return false
	}
}

// IsProduction reports whether the server runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
