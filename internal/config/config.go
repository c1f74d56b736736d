package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 客户端与本地 devserver 的运行配置
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	DevServer DevServerConfig `mapstructure:"devserver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type APIConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerSec  float64       `mapstructure:"requests_per_sec"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
}

type DevServerConfig struct {
	Addr      string        `mapstructure:"addr"`
	DBDriver  string        `mapstructure:"db_driver"` // sqlite | postgres
	DSN       string        `mapstructure:"dsn"`
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Load reads config file (optional) and environment, env prefix REVEAL_,
// e.g. REVEAL_API_BASE_URL overrides api.base_url.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.requests_per_sec", 20.0)
	v.SetDefault("api.default_page_size", 10)
	v.SetDefault("devserver.addr", ":8080")
	v.SetDefault("devserver.db_driver", "sqlite")
	v.SetDefault("devserver.dsn", "file::memory:?cache=shared")
	v.SetDefault("devserver.jwt_secret", "dev-only-secret")
	v.SetDefault("devserver.token_ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("tracing.service_name", "reveal-client")

	v.SetEnvPrefix("REVEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
