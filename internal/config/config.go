package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Data      DataConfig      `envconfig:"DATA"`
	Analytics AnalyticsConfig `envconfig:"ANALYTICS"`
	Logger    LoggerConfig    `envconfig:"LOG"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
	Tracing   TracingConfig   `envconfig:"TRACING"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DataConfig locates the district extracts. BaseURL, when set, takes
// precedence over Dir.
type DataConfig struct {
	Dir             string `envconfig:"DIR" default:"data"`
	BaseURL         string `envconfig:"BASE_URL"`
	ReferenceFile   string `envconfig:"REFERENCE_FILE"`
	IndustryCatalog string `envconfig:"INDUSTRY_CATALOG" default:"카드소비_업종코드_utf8.csv"`
}

type AnalyticsConfig struct {
	CoverageRatio      float64       `envconfig:"COVERAGE_RATIO" default:"0.175"`
	RepresentativeHour int           `envconfig:"REPRESENTATIVE_HOUR" default:"14"`
	MaxWorkers         int           `envconfig:"MAX_WORKERS" default:"8"`
	FetchTimeout       time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

type TracingConfig struct {
	Enabled     bool    `envconfig:"ENABLED" default:"false"`
	Exporter    string  `envconfig:"EXPORTER" default:"none"`
	SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.Dir == "" && c.Data.BaseURL == "" {
		return fmt.Errorf("either a data directory or a data base URL is required")
	}

	if c.Analytics.CoverageRatio <= 0 || c.Analytics.CoverageRatio > 1 {
		return fmt.Errorf("coverage ratio must be in (0, 1], got %g", c.Analytics.CoverageRatio)
	}

	if c.Analytics.RepresentativeHour < 0 || c.Analytics.RepresentativeHour > 23 {
		return fmt.Errorf("representative hour must be between 0 and 23, got %d", c.Analytics.RepresentativeHour)
	}

	if c.Analytics.MaxWorkers < 1 {
		return fmt.Errorf("max workers must be at least 1")
	}

	if c.Analytics.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	validExporters := []string{"stdout", "none"}
	if !slices.Contains(validExporters, c.Tracing.Exporter) {
		return fmt.Errorf("invalid trace exporter %q, must be one of: %s", c.Tracing.Exporter, strings.Join(validExporters, ", "))
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("trace sample ratio must be in [0, 1]")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
