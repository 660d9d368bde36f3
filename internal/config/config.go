package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// Config holds the settings of the response flow and its transports.
type Config struct {
	ParamPrefix      string        `env:"PARAM_PREFIX,required"`
	Provider         string        `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	BedrockMaxTokens int           `env:"BEDROCK_MAX_TOKENS" envDefault:"1024"`
	MaxQuestionLen   int           `env:"MAX_QUESTION_LENGTH" envDefault:"500"`
	BackendTimeout   time.Duration `env:"BACKEND_TIMEOUT" envDefault:"20s"`
	AllowedOrigin    string        `env:"ALLOWED_ORIGIN" envDefault:"*"`
	HTTPPort         int           `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
}

// ClientConfig holds the settings of the terminal chat client.
type ClientConfig struct {
	Endpoint string        `env:"DEVCHAT_ENDPOINT,required"`
	Timeout  time.Duration `env:"DEVCHAT_TIMEOUT" envDefault:"30s"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"warn"`
}

// Load parses Config from the environment.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadWithDotenv reads an optional .env file before parsing. Variables
// already set in the environment win over the file.
func LoadWithDotenv(files ...string) (*Config, error) {
	if err := loadDotenv(files...); err != nil {
		return nil, err
	}
	return Load()
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("config: unsupported LLM_PROVIDER %q", c.Provider)
	}
	if strings.Trim(strings.TrimSpace(c.ParamPrefix), "/") == "" {
		return errors.New("config: PARAM_PREFIX must not be empty")
	}
	if c.MaxQuestionLen <= 0 {
		return errors.New("config: MAX_QUESTION_LENGTH must be positive")
	}
	if c.BackendTimeout <= 0 {
		return errors.New("config: BACKEND_TIMEOUT must be positive")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid HTTP_PORT %d", c.HTTPPort)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadClient parses ClientConfig, reading an optional .env file first.
func LoadClient(files ...string) (*ClientConfig, error) {
	if err := loadDotenv(files...); err != nil {
		return nil, err
	}
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("config: DEVCHAT_TIMEOUT must be positive")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("dotenv file not found", "file", f)
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// ParseLevel maps a LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", s)
	}
	return level, nil
}
