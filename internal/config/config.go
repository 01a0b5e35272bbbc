package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Auth     AuthConfig     `yaml:"auth"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Broker   BrokerConfig   `yaml:"broker"`
	Seed     SeedConfig     `yaml:"seed"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port               int      `yaml:"port"`
	MetricsPort        int      `yaml:"metrics_port"`
	CORSOrigins        []string `yaml:"cors_origins"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	JWTSecret      string         `yaml:"jwt_secret"`
	Issuer         string         `yaml:"issuer"`
	TokenTTLHours  int            `yaml:"token_ttl_hours"`
	BootstrapAdmin BootstrapAdmin `yaml:"bootstrap_admin"`
}

// BootstrapAdmin names an admin account created at startup when it does not
// exist yet. Either PasswordHash (bcrypt) or Password must be set.
type BootstrapAdmin struct {
	Username     string `yaml:"username"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	Password     string `yaml:"-"`
}

type IngestConfig struct {
	MaxRows        int   `yaml:"max_rows"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

type BrokerConfig struct {
	StatsIntervalMs int `yaml:"stats_interval_ms"`
}

type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) StatsInterval() time.Duration {
	return time.Duration(c.Broker.StatsIntervalMs) * time.Millisecond
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// Default returns the built-in configuration before file and environment
// overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			CORSOrigins:        []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMinute: 120,
		},
		Auth: AuthConfig{
			Issuer:        "collector",
			TokenTTLHours: 24,
		},
		Ingest: IngestConfig{
			MaxRows:        50000,
			MaxUploadBytes: 10 << 20,
		},
		Broker: BrokerConfig{
			StatsIntervalMs: 30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Validate reports configuration that would keep the service from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTLHours <= 0 {
		errs = append(errs, errors.New("auth.token_ttl_hours must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("server.metrics_port out of range: %d", c.Server.MetricsPort))
	}
	if c.Server.Port == c.Server.MetricsPort {
		errs = append(errs, errors.New("server.port and server.metrics_port must differ"))
	}
	if c.Ingest.MaxRows <= 0 {
		errs = append(errs, errors.New("ingest.max_rows must be positive"))
	}
	if c.Broker.StatsIntervalMs <= 0 {
		errs = append(errs, errors.New("broker.stats_interval_ms must be positive"))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COLLECTOR_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("COLLECTOR_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("COLLECTOR_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("COLLECTOR_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("COLLECTOR_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("COLLECTOR_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("COLLECTOR_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("COLLECTOR_TOKEN_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.TokenTTLHours = n
		}
	}
	if v := os.Getenv("COLLECTOR_ADMIN_USERNAME"); v != "" {
		cfg.Auth.BootstrapAdmin.Username = v
	}
	if v := os.Getenv("COLLECTOR_ADMIN_EMAIL"); v != "" {
		cfg.Auth.BootstrapAdmin.Email = v
	}
	if v := os.Getenv("COLLECTOR_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.BootstrapAdmin.Password = v
	}
	if v := os.Getenv("COLLECTOR_INGEST_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.MaxRows = n
		}
	}
	if v := os.Getenv("COLLECTOR_STATS_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Broker.StatsIntervalMs = n
		}
	}
	if v := os.Getenv("COLLECTOR_SEED_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Seed.Enabled = b
		}
	}
	if v := os.Getenv("COLLECTOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("COLLECTOR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
