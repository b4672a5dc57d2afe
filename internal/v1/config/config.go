package config

import (
	"context"
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"

	"github.com/kasagi/statesync/internal/v1/logging"
	"go.uber.org/zap"
)

// Config holds validated environment configuration.
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Server basics
	Port int `env:"PORT" envDefault:"8080"`

	// Optional variables with defaults
	GoEnv           string `env:"GO_ENV" envDefault:"production"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	DevelopmentMode bool   `env:"DEVELOPMENT_MODE" envDefault:"false"`
	AllowedOrigins  string `env:"ALLOWED_ORIGINS" envDefault:""`

	// Transport tuning
	SendBufferSize int `env:"SEND_BUFFER_SIZE" envDefault:"256"`
}

// Load parses configuration from the environment and validates it.
// Returns an error if any variable is out of range.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logValidatedConfig(cfg)
	return cfg, nil
}

// ApplyPortArg overrides the configured port with a positional command
// line argument. An unparseable value keeps the configured port and
// logs a warning instead of failing startup.
func (c *Config) ApplyPortArg(arg string) {
	port, err := strconv.Atoi(arg)
	if err != nil || port < 1 || port > 65535 {
		logging.Warn(context.Background(), "Invalid port argument, keeping configured port",
			zap.String("arg", arg), zap.Int("port", c.Port))
		return
	}
	c.Port = port
}

// Addr returns the listen address in ":port" form.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535 (got %d)", c.Port)
	}
	if c.SendBufferSize < 1 {
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive (got %d)", c.SendBufferSize)
	}
	return nil
}

// logValidatedConfig logs the resolved configuration
func logValidatedConfig(cfg *Config) {
	logging.Info(context.Background(), "Environment configuration validated",
		zap.Int("port", cfg.Port),
		zap.String("go_env", cfg.GoEnv),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("development_mode", cfg.DevelopmentMode),
		zap.Int("send_buffer_size", cfg.SendBufferSize),
	)
}
