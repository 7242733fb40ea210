package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Media     MediaConfig     `yaml:"media" mapstructure:"media"`
	Map       MapConfig       `yaml:"map" mapstructure:"map"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Satellite SatelliteConfig `yaml:"satellite" mapstructure:"satellite"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the marketplace API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AuthConfig configures session auth.
type AuthConfig struct {
	SessionTTLHours int     `yaml:"session_ttl_hours" mapstructure:"session_ttl_hours"`
	LoginRatePerMin float64 `yaml:"login_rate_per_min" mapstructure:"login_rate_per_min"`
	LoginBurst      int     `yaml:"login_burst" mapstructure:"login_burst"`
}

// MediaConfig configures the S3-compatible image bucket.
type MediaConfig struct {
	Bucket        string `yaml:"bucket" mapstructure:"bucket"`
	Region        string `yaml:"region" mapstructure:"region"`
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle     bool   `yaml:"path_style" mapstructure:"path_style"`
	PublicBaseURL string `yaml:"public_base_url" mapstructure:"public_base_url"`
}

// MapConfig holds the mapping widget access token handed to clients.
type MapConfig struct {
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
}

// AnthropicConfig holds Anthropic API settings for project insights.
type AnthropicConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	Model    string `yaml:"model" mapstructure:"model"`
	MaxChars int    `yaml:"max_chars" mapstructure:"max_chars"`
}

// SatelliteConfig configures the NDWI verification source.
type SatelliteConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	WindowMonths int     `yaml:"window_months" mapstructure:"window_months"`
	NDWIVerified float64 `yaml:"ndwi_verified_below" mapstructure:"ndwi_verified_below"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("AQUANEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("auth.session_ttl_hours", 6)
	v.SetDefault("auth.login_rate_per_min", 10)
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("media.region", "us-east-1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_chars", 200)
	v.SetDefault("satellite.provider", "demo")
	v.SetDefault("satellite.window_months", 6)
	v.SetDefault("satellite.ndwi_verified_below", 0.3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// RequireDatabase fails when no database URL is configured. Commands that
// touch the store call this up front instead of failing mid-operation.
func (c *Config) RequireDatabase() error {
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required (set AQUANEXUS_STORE_DATABASE_URL)")
	}
	return nil
}

// RequireMedia fails when the image bucket is not configured.
func (c *Config) RequireMedia() error {
	if c.Media.Bucket == "" {
		return eris.New("config: media.bucket is required (set AQUANEXUS_MEDIA_BUCKET)")
	}
	return nil
}

// RequireAnthropic fails when no Anthropic API key is configured.
func (c *Config) RequireAnthropic() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (set AQUANEXUS_ANTHROPIC_KEY)")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
