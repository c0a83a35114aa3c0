package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all process-wide settings, read once at startup.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Validation ValidationConfig `mapstructure:"validation"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	BaseDomain    string `mapstructure:"base_domain" validate:"required,fqdn"`
	UpstreamURL   string `mapstructure:"upstream_url" validate:"required,url"`
	PreviewSuffix string `mapstructure:"preview_suffix"`
	AdminSecret   string `mapstructure:"admin_secret"`
}

// ValidationConfig points the edge at the tenant validation service.
type ValidationConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Secret  string        `mapstructure:"secret" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	NegativeTTL time.Duration `mapstructure:"negative_ttl"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads config.yaml (optional) with EDGE_-prefixed environment
// overrides and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("EDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A config file is optional, the environment can carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.preview_suffix", ".vercel.app")

	v.SetDefault("validation.timeout", 3*time.Second)

	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.negative_ttl", time.Minute)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)

	v.SetDefault("log.level", "info")
}

// RootURL is the canonical URL of the apex site, used as the redirect base
// for reserved identifiers.
func (c *Config) RootURL() string {
	return "https://" + c.Server.BaseDomain
}
