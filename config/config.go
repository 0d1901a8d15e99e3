package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/subosito/gotenv"
)

// Config is built once at startup and passed to the components that need
// it; nothing reads the environment after Load returns.
type Config struct {
	DBUser  string
	DBPass  string
	DBHost  string
	DBPort  string
	DBName  string
	FullDSN string

	JWTSecret     string
	JWTAlgorithm  string
	TokenLifetime time.Duration

	AppPort string
	AppEnv  string
}

func Load() (Config, error) {
	_ = gotenv.Load() // .env is optional, real env wins

	cfg := Config{
		DBUser:       os.Getenv("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       os.Getenv("DB_HOST"),
		DBPort:       os.Getenv("DB_PORT"),
		DBName:       os.Getenv("DB_NAME"),
		FullDSN:      os.Getenv("FULL_DSN"),
		JWTSecret:    os.Getenv("JWT_SECRET_KEY"),
		JWTAlgorithm: os.Getenv("JWT_ALGORITHM"),
		AppPort:      os.Getenv("APP_PORT"),
		AppEnv:       os.Getenv("APP_ENV"),
	}

	if cfg.DBName == "" {
		cfg.DBName = "expense_tracker"
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY environment variable is required")
	}
	if cfg.JWTAlgorithm == "" {
		cfg.JWTAlgorithm = "HS256"
	}
	if cfg.AppPort == "" {
		cfg.AppPort = "8080"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	minutes := 30
	if raw := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES value %q: %w", raw, err)
		}
		minutes = parsed
	}
	cfg.TokenLifetime = time.Duration(minutes) * time.Minute

	return cfg, nil
}
