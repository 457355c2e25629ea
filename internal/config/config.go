// Package config provides Viper-based configuration loading for the
// trivia server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP/websocket listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP/websocket listener.
	Port int `mapstructure:"port"`
	// WriteTimeout is the per-message write deadline for client sockets.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// SendBuffer is the per-client outbound event buffer size.
	SendBuffer int `mapstructure:"send_buffer"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings for the question
// bank.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Question source selector values.
const (
	SourcePostgres = "postgres"
	SourceFile     = "file"
)

// GameConfig holds the round rules and the question source selection.
type GameConfig struct {
	// QuestionCount is the number of questions per round.
	QuestionCount int `mapstructure:"question_count"`
	// QuestionSeconds is the fixed answer window per question.
	QuestionSeconds int `mapstructure:"question_seconds"`
	// QuestionSource selects the question bank: "postgres" or "file".
	QuestionSource string `mapstructure:"question_source"`
	// QuestionsDir is the question YAML directory for the file source.
	QuestionsDir string `mapstructure:"questions_dir"`
}

// QuestionDuration returns the answer window as a time.Duration.
func (g GameConfig) QuestionDuration() time.Duration {
	return time.Duration(g.QuestionSeconds) * time.Second
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	// Database settings only matter when the postgres source is selected.
	if c.Game.QuestionSource == SourcePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("server.send_buffer must be >= 1, got %d", s.SendBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.QuestionCount < 1 {
		errs = append(errs, fmt.Sprintf("game.question_count must be >= 1, got %d", g.QuestionCount))
	}
	if g.QuestionSeconds < 1 {
		errs = append(errs, fmt.Sprintf("game.question_seconds must be >= 1, got %d", g.QuestionSeconds))
	}
	switch g.QuestionSource {
	case SourcePostgres:
	case SourceFile:
		if g.QuestionsDir == "" {
			errs = append(errs, "game.questions_dir must not be empty when game.question_source is file")
		}
	default:
		errs = append(errs, fmt.Sprintf("game.question_source must be one of [postgres, file], got %q", g.QuestionSource))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies
// environment variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TRIVIA_ prefix
	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.send_buffer", 64)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "trivia")
	v.SetDefault("database.password", "trivia")
	v.SetDefault("database.name", "trivia")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.question_count", 3)
	v.SetDefault("game.question_seconds", 10)
	v.SetDefault("game.question_source", "postgres")
	v.SetDefault("game.questions_dir", "content/questions")
}
