package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/stowage/internal/logging"
	"github.com/signalsfoundry/stowage/internal/observability"
)

// DateLayout is the format of mission dates in config files.
const DateLayout = "2006-01-02"

// Activity log backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Mission     MissionConfig     `yaml:"mission"`
	ActivityLog ActivityLogConfig `yaml:"activity_log"`
	Manifest    ManifestConfig    `yaml:"manifest"`
}

// ServerConfig holds listener addresses.
type ServerConfig struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // stdout | otlp
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// MissionConfig controls the mission clock.
type MissionConfig struct {
	// StartDate is YYYY-MM-DD and defaults to today.
	StartDate string `yaml:"start_date"`
	// AutoAdvance is the wall time per simulated day. 0 disables it.
	AutoAdvance    time.Duration `yaml:"auto_advance"`
	NearExpiryDays int           `yaml:"near_expiry_days"`
}

// ActivityLogConfig selects the activity log backend.
type ActivityLogConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite
	Path    string `yaml:"path"`
}

// ManifestConfig names an optional JSON manifest imported at startup.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Tracing.Exporter == "" {
		c.Tracing.Exporter = "stdout"
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1.0
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "cargo-grpc"
	}
	if c.Mission.NearExpiryDays == 0 {
		c.Mission.NearExpiryDays = 7
	}
	if c.ActivityLog.Backend == "" {
		c.ActivityLog.Backend = BackendMemory
	}
	if c.ActivityLog.Backend == BackendSQLite && c.ActivityLog.Path == "" {
		c.ActivityLog.Path = "data/activity.db"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	tr := c.TracingConfig().OverrideFromEnv()
	c.Tracing = TracingConfig{
		Enabled:     tr.Enabled,
		Exporter:    tr.Exporter,
		Endpoint:    tr.Endpoint,
		SampleRatio: tr.SampleRatio,
		ServiceName: tr.ServiceName,
	}
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if _, err := c.MissionStart(time.Now()); err != nil {
		return err
	}
	if c.Mission.AutoAdvance < 0 {
		return fmt.Errorf("mission.auto_advance must not be negative, got %s", c.Mission.AutoAdvance)
	}
	if c.Mission.NearExpiryDays < 0 {
		return fmt.Errorf("mission.near_expiry_days must not be negative, got %d", c.Mission.NearExpiryDays)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	switch c.ActivityLog.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("activity_log.backend %q is not one of memory, sqlite", c.ActivityLog.Backend)
	}
	return nil
}

// MissionStart parses mission.start_date, falling back to the UTC date of now.
func (c *Config) MissionStart(now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(c.Mission.StartDate)
	if raw == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	start, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("mission.start_date %q: %w", raw, err)
	}
	return start, nil
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: true,
	}
}

// TracingConfig converts the tracing section for observability.InitTracing.
func (c *Config) TracingConfig() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     c.Tracing.Enabled,
		ServiceName: c.Tracing.ServiceName,
		Exporter:    c.Tracing.Exporter,
		Endpoint:    c.Tracing.Endpoint,
		SampleRatio: c.Tracing.SampleRatio,
	}
}
