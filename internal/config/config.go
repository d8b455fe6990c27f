package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type (
	Config struct {
		Database
		Log
		Auth
		UI
	}

	Database struct {
		Path        string
		BusyTimeout time.Duration // Bounded wait for the SQLite write lock
	}
	Log struct {
		Level  slog.Level
		Format string // "text" or "json"
	}
	Auth struct {
		BcryptCost int
	}
	UI struct {
		RecentIssuesLimit int // Rows shown under "recent transactions"
	}
)

// NewConfig reads LIBTRACK_* environment variables and, when configFile is
// not empty, the given config file. Environment values win over the file.
func NewConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("busy_timeout", "5s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("recent_issues_limit", 5)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	format := strings.ToLower(v.GetString("log_format"))
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("log_format: unknown format %q", format)
	}

	cfg := &Config{
		Database: Database{
			Path:        v.GetString("database_path"),
			BusyTimeout: v.GetDuration("busy_timeout"),
		},
		Log: Log{
			Level:  level,
			Format: format,
		},
		Auth: Auth{
			BcryptCost: v.GetInt("bcrypt_cost"),
		},
		UI: UI{
			RecentIssuesLimit: v.GetInt("recent_issues_limit"),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database_path cannot be empty")
	}
	if c.Database.BusyTimeout <= 0 {
		return fmt.Errorf("busy_timeout must be positive, got %s", c.Database.BusyTimeout)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
