// pkg/config/config.go
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the root of the flowsolve configuration tree.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Tracing TracingConfig `koanf:"tracing"`
	Cache   CacheConfig   `koanf:"cache"`
	Solver  SolverConfig  `koanf:"solver"`
	Report  ReportConfig  `koanf:"report"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig mirrors logger.Config.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"` // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig controls Prometheus collection and the optional /metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// CacheConfig selects and configures the solve result cache.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // memory driver only
}

// Address returns host:port of the cache server.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SolverConfig holds solver defaults applied when a request leaves them unset.
// A default algorithm of "auto" is chosen per network from its size and
// density.
type SolverConfig struct {
	DefaultMaxFlow string        `koanf:"default_max_flow"`
	DefaultMinCost string        `koanf:"default_min_cost"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxIterations  int           `koanf:"max_iterations"`
	MaxConcurrency int           `koanf:"max_concurrency"`
	ReturnPaths    bool          `koanf:"return_paths"`
	Verify         bool          `koanf:"verify"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Format    string `koanf:"format"` // csv, markdown, json, xlsx, pdf
	OutputDir string `koanf:"output_dir"`
	MaxRows   int    `koanf:"max_rows"` // 0 means unlimited
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{"json", "text"}
	validLogOutputs    = []string{"stdout", "stderr", "file"}
	validCacheDrivers  = []string{"memory", "redis"}
	validReportFormats = []string{"csv", "markdown", "json", "xlsx", "pdf"}
	maxFlowAlgorithms  = []string{"auto", "push_relabel", "push_relabel_highest", "edmonds_karp", "dinic"}
	minCostAlgorithms  = []string{"auto", "successive_shortest_path", "cycle_canceling"}
)

// Validate checks the whole configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Log.Level != "" && !slices.Contains(validLogLevels, c.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level must be one of: %s, got %s", strings.Join(validLogLevels, ", "), c.Log.Level))
	}
	if c.Log.Format != "" && !slices.Contains(validLogFormats, c.Log.Format) {
		errs = append(errs, fmt.Sprintf("log.format must be one of: %s, got %s", strings.Join(validLogFormats, ", "), c.Log.Format))
	}
	if c.Log.Output != "" && !slices.Contains(validLogOutputs, c.Log.Output) {
		errs = append(errs, fmt.Sprintf("log.output must be one of: %s, got %s", strings.Join(validLogOutputs, ", "), c.Log.Output))
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Sprintf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port))
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errs = append(errs, "tracing.endpoint is required when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			errs = append(errs, fmt.Sprintf("tracing.sample_rate must be within [0, 1], got %g", c.Tracing.SampleRate))
		}
	}

	if c.Cache.Enabled && !slices.Contains(validCacheDrivers, c.Cache.Driver) {
		errs = append(errs, fmt.Sprintf("cache.driver must be one of: %s, got %s", strings.Join(validCacheDrivers, ", "), c.Cache.Driver))
	}

	if c.Solver.DefaultMaxFlow != "" && !slices.Contains(maxFlowAlgorithms, c.Solver.DefaultMaxFlow) {
		errs = append(errs, fmt.Sprintf("solver.default_max_flow must be one of: %s, got %s", strings.Join(maxFlowAlgorithms, ", "), c.Solver.DefaultMaxFlow))
	}
	if c.Solver.DefaultMinCost != "" && !slices.Contains(minCostAlgorithms, c.Solver.DefaultMinCost) {
		errs = append(errs, fmt.Sprintf("solver.default_min_cost must be one of: %s, got %s", strings.Join(minCostAlgorithms, ", "), c.Solver.DefaultMinCost))
	}
	if c.Solver.Timeout < 0 {
		errs = append(errs, "solver.timeout must be non-negative")
	}
	if c.Solver.MaxIterations < 0 {
		errs = append(errs, "solver.max_iterations must be non-negative")
	}
	if c.Solver.MaxConcurrency < 0 {
		errs = append(errs, "solver.max_concurrency must be non-negative")
	}

	if c.Report.Format != "" && !slices.Contains(validReportFormats, c.Report.Format) {
		errs = append(errs, fmt.Sprintf("report.format must be one of: %s, got %s", strings.Join(validReportFormats, ", "), c.Report.Format))
	}
	if c.Report.MaxRows < 0 {
		errs = append(errs, "report.max_rows must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction reports whether the app runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}
