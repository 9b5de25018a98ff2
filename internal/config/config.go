package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds every setting the onboarding API reads from the environment.
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Token  TokenConfig
	Signup SignupConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `env:"SERVER_PORT"          envDefault:"8080"`
	CookieDomain string        `env:"SERVER_COOKIE_DOMAIN" envDefault:"localhost"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT"  envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
}

// MongoConfig holds connection settings for the user store.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DATABASE" envDefault:"onboarding"`
}

// RedisConfig holds connection settings for the verification code store.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"     envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"       envDefault:"0"`
}

// TokenConfig holds signing settings for access and refresh tokens.
type TokenConfig struct {
	Issuer                string        `env:"TOKEN_ISSUER"                   envDefault:"onboarding-api"`
	AccessTokenSecret     string        `env:"TOKEN_ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret    string        `env:"TOKEN_REFRESH_TOKEN_SECRET"`
	AccessTokenExpiresIn  time.Duration `env:"TOKEN_ACCESS_TOKEN_EXPIRES_IN"  envDefault:"30m"`
	RefreshTokenExpiresIn time.Duration `env:"TOKEN_REFRESH_TOKEN_EXPIRES_IN" envDefault:"168h"`
}

// SignupConfig holds settings for the multi-step signup flow.
type SignupConfig struct {
	StateSecret    string        `env:"SIGNUP_STATE_SECRET"`
	StateExpiresIn time.Duration `env:"SIGNUP_STATE_EXPIRES_IN" envDefault:"30m"`
	CodeExpiresIn  time.Duration `env:"SIGNUP_CODE_EXPIRES_IN"  envDefault:"10m"`
}

// New creates a Config instance from environment variables.
func New(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks that every setting without a usable default is present.
func (c *Config) validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("missing MONGO_URI environment variable")
	}
	if c.Token.AccessTokenSecret == "" {
		return fmt.Errorf("missing TOKEN_ACCESS_TOKEN_SECRET environment variable")
	}
	if c.Token.RefreshTokenSecret == "" {
		return fmt.Errorf("missing TOKEN_REFRESH_TOKEN_SECRET environment variable")
	}
	if c.Signup.StateSecret == "" {
		return fmt.Errorf("missing SIGNUP_STATE_SECRET environment variable")
	}

	return nil
}
