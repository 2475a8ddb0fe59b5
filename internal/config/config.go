package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abdirisakgelle/taskplus/internal/adapters/http/middleware"
)

const (
	EnvPrefix  = "TASKPLUS"
	configName = "taskplus"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Port        int              `mapstructure:"port"`
	AWS         AWSConfig        `mapstructure:"aws"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Log         LogConfig        `mapstructure:"log"`
	Scheduler   SchedulerConfig  `mapstructure:"scheduler"`
	Dispatcher  DispatcherConfig `mapstructure:"dispatcher"`
}

type AWSConfig struct {
	Region    string `mapstructure:"region"`
	TableName string `mapstructure:"table_name"`
	Endpoint  string `mapstructure:"endpoint"`
}

type AuthConfig struct {
	Mode      string        `mapstructure:"mode"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SchedulerConfig struct {
	// StuckTickets is a cron spec; empty disables the sweep.
	StuckTickets string `mapstructure:"stuck_tickets"`
}

type DispatcherConfig struct {
	Buffer int `mapstructure:"buffer"`
}

func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c Config) AuthMode() middleware.Mode {
	mode, _ := middleware.ParseAuthMode(c.Auth.Mode)
	return mode
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.table_name", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("auth.mode", string(middleware.ModeJWT))
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("scheduler.stuck_tickets", "@every 30m")
	v.SetDefault("dispatcher.buffer", 256)
}

// Load reads taskplus.yaml from the given directories, when present, and
// applies TASKPLUS_* environment overrides on top.
func Load(paths ...string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if len(paths) > 0 {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.AWS.Region == "" {
		errs = append(errs, errors.New("aws.region is required"))
	}
	if c.AWS.TableName == "" {
		errs = append(errs, errors.New("aws.table_name is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	mode, err := middleware.ParseAuthMode(c.Auth.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("auth.mode %q: %w", c.Auth.Mode, err))
	}
	if mode == middleware.ModeJWT && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 bytes in jwt mode"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Dispatcher.Buffer < 1 {
		errs = append(errs, errors.New("dispatcher.buffer must be at least 1"))
	}
	return errors.Join(errs...)
}
