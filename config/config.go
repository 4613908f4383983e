// Package config loads the server configuration from the environment and
// an optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	App   AppConfig
	JWT   JWTConfig
	DB    DBConfig
	Mongo MongoConfig
	Auth  AuthConfig
}

type AppConfig struct {
	Env      string
	Port     int
	LogLevel string
}

// JWTConfig holds the token signing settings. The secret is never logged.
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
	Issuer    string
	Audience  string
}

// DBConfig selects the users store. Driver is sqlite, postgres or mongo.
type DBConfig struct {
	Driver string
	URL    string
	Debug  bool
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	BcryptCost           int
	RequireActive        bool
	RequireVerifiedEmail bool
}

// Addr is the fiber listen address
func (c AppConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads configuration. Outside production the dotenv file is
// .env.local, in production .env; both are optional and the process
// environment always wins.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	file := ".env.local"
	if strings.EqualFold(v.GetString("APP_ENV"), EnvProduction) {
		file = ".env"
	}
	v.SetConfigFile(filepath.Join(dir, file))
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	expiresIn, err := ParseDuration(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:      strings.ToLower(v.GetString("APP_ENV")),
			Port:     v.GetInt("PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("JWT_SECRET"),
			ExpiresIn: expiresIn,
			Issuer:    v.GetString("JWT_ISSUER"),
			Audience:  v.GetString("JWT_AUDIENCE"),
		},
		DB: DBConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			URL:    v.GetString("DATABASE_URL"),
			Debug:  v.GetBool("DB_DEBUG"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGO_URI"),
			Database: v.GetString("MONGO_DATABASE"),
		},
		Auth: AuthConfig{
			BcryptCost:           v.GetInt("BCRYPT_COST"),
			RequireActive:        v.GetBool("AUTH_REQUIRE_ACTIVE"),
			RequireVerifiedEmail: v.GetBool("AUTH_REQUIRE_VERIFIED_EMAIL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("MONGO_DATABASE", "skfsd")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("AUTH_REQUIRE_ACTIVE", true)
	v.SetDefault("AUTH_REQUIRE_VERIFIED_EMAIL", false)
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.JWT,
		validation.Field(&c.JWT.Secret, validation.Required.Error("JWT_SECRET is required")),
		validation.Field(&c.JWT.ExpiresIn, validation.Min(time.Second).Error("JWT_EXPIRES_IN must be at least 1s")),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.App,
		validation.Field(&c.App.Port, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.BcryptCost, validation.Min(4), validation.Max(31)),
	); err != nil {
		return err
	}

	if err := validation.ValidateStruct(&c.DB,
		validation.Field(&c.DB.Driver, validation.In("sqlite", "postgres", "mongo").Error("DB_DRIVER must be one of sqlite, postgres, mongo")),
	); err != nil {
		return err
	}

	switch {
	case c.DB.Driver == "postgres" && c.DB.URL == "":
		return errors.New("DATABASE_URL is required for postgres")
	case c.DB.Driver == "mongo" && c.Mongo.URI == "":
		return errors.New("MONGO_URI is required for mongo")
	}

	return nil
}

// ParseDuration accepts Go durations ("90m", "24h"), days ("7d") and
// plain numbers of seconds ("3600").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}
