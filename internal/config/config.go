// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	cairnerr "github.com/cairn-dev/cairn/pkg/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CAIRN_DATABASE_HOST.
const EnvPrefix = "CAIRN"

// Config is the top-level cairn configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
}

// DatabaseConfig describes the Postgres instance hosting the AGE graph.
type DatabaseConfig struct {
	Host     string      `mapstructure:"host" json:"host"`
	Port     int         `mapstructure:"port" json:"port"`
	User     string      `mapstructure:"user" json:"user"`
	Password string      `mapstructure:"password" json:"-"`
	Name     string      `mapstructure:"name" json:"name"`
	Graph    string      `mapstructure:"graph" json:"graph"`
	MaxConns int32       `mapstructure:"max_conns" json:"max_conns"`
	Retry    RetryConfig `mapstructure:"retry" json:"retry"`
}

// RetryConfig controls startup connectivity retries.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" json:"max_delay"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// SlogLevel maps Level to a slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.graph", "cairn")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.retry.max_attempts", 30)
	v.SetDefault("database.retry.initial_delay", "1s")
	v.SetDefault("database.retry.max_delay", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// SetupEnv enables CAIRN_-prefixed environment overrides on v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix CAIRN_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, cairnerr.Errorf(cairnerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cairnerr.Errorf(cairnerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns every problem found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateDatabase() []error {
	d := &c.Database
	err := validation.ValidateStruct(d,
		validation.Field(&d.Host, validation.Required),
		validation.Field(&d.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&d.User, validation.Required),
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Graph, validation.Required, validation.By(graphName)),
		validation.Field(&d.MaxConns, validation.Min(int32(1))),
	)
	errs := fieldErrors("database", err)

	r := &d.Retry
	err = validation.ValidateStruct(r,
		validation.Field(&r.MaxAttempts, validation.Min(1)),
		validation.Field(&r.InitialDelay, validation.Min(time.Duration(0))),
		validation.Field(&r.MaxDelay, validation.Min(r.InitialDelay)),
	)
	return append(errs, fieldErrors("database.retry", err)...)
}

func (c *Config) validateLog() []error {
	l := &c.Log
	err := validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
	return fieldErrors("log", err)
}

// graphName accepts identifiers AGE allows as graph names.
func graphName(value any) error {
	s, _ := value.(string)
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return errors.New("must be a plain identifier")
		}
	}
	return nil
}

// fieldErrors flattens an ozzo validation.Errors map into coded errors
// keyed by their dotted config path.
func fieldErrors(section string, err error) []error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []error{cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue, "config: %s: %w", section, err)}
	}

	out := make([]error, 0, len(verrs))
	for field, ferr := range verrs {
		out = append(out, cairnerr.Errorf(cairnerr.CodeConfigValidateInvalidValue,
			"config: %s.%s %v", section, field, ferr,
		))
	}
	return out
}

// ConnString returns a postgres:// URL for the database.
func (d DatabaseConfig) ConnString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// DSN returns the key=value form accepted by libpq and pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		dsnValue(d.Host), d.Port, dsnValue(d.User), dsnValue(d.Password), dsnValue(d.Name))
}

func dsnValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// Redacted returns the connection URL without the password, for logs.
func (d DatabaseConfig) Redacted() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(d.User),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	return u.String()
}
