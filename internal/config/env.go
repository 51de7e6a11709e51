package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageMySQL  = "mysql"

	devJWTSecret = "campusride-dev-secret-change-me"
)

// Env is the process configuration. Precedence: defaults, then the YAML file
// given with --config, then environment variables (including a local .env).
type Env struct {
	AppAddr            string        `yaml:"app_addr"`
	GinMode            string        `yaml:"gin_mode"`
	StorageDriver      string        `yaml:"storage_driver"`
	DatabaseDSN        string        `yaml:"database_dsn"`
	JWTSecret          string        `yaml:"jwt_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	CookieSecure       bool          `yaml:"cookie_secure"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	AMQPURL            string        `yaml:"amqp_url"`
	AMQPExchange       string        `yaml:"amqp_exchange"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
}

func Defaults() Env {
	return Env{
		AppAddr:       ":8080",
		StorageDriver: StorageMemory,
		SessionTTL:    24 * time.Hour,
		CORSAllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AMQPExchange: "campusride.events",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// LoadEnv builds the configuration. configPath may be empty.
func LoadEnv(configPath string) (Env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("load .env: %w", err)
	}

	env := Defaults()
	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return Env{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(raw, &env); err != nil {
			return Env{}, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	if err := env.applyOverrides(os.Getenv); err != nil {
		return Env{}, err
	}
	if err := env.Validate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e *Env) applyOverrides(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("APP_ADDR", &e.AppAddr)
	str("GIN_MODE", &e.GinMode)
	str("STORAGE_DRIVER", &e.StorageDriver)
	str("DATABASE_DSN", &e.DatabaseDSN)
	str("JWT_SECRET", &e.JWTSecret)
	str("AMQP_URL", &e.AMQPURL)
	str("AMQP_EXCHANGE", &e.AMQPExchange)
	str("LOG_LEVEL", &e.LogLevel)
	str("LOG_FORMAT", &e.LogFormat)

	if v := strings.TrimSpace(getenv("SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL: %w", err)
		}
		e.SessionTTL = d
	}
	if v := strings.TrimSpace(getenv("COOKIE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		e.CookieSecure = b
	}
	if v := strings.TrimSpace(getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		origins := []string{}
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		e.CORSAllowedOrigins = origins
	}
	return nil
}

// Validate checks cross-field rules and fills the development JWT secret
// outside release mode.
func (e *Env) Validate() error {
	e.StorageDriver = strings.ToLower(strings.TrimSpace(e.StorageDriver))
	switch e.StorageDriver {
	case StorageMemory:
	case StorageMySQL:
		if e.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required when STORAGE_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want memory or mysql)", e.StorageDriver)
	}

	if e.JWTSecret == "" {
		if e.GinMode == "release" {
			return errors.New("JWT_SECRET is required in release mode")
		}
		e.JWTSecret = devJWTSecret
	}
	if e.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}
