// Package config loads passage_router settings from defaults, an optional
// YAML file and PASSAGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"passage_router/pkg/resolve"
	"passage_router/pkg/routing"
	"passage_router/pkg/synth"
)

// Config holds all application configuration.
type Config struct {
	Grid    GridConfig    `mapstructure:"grid"`
	Search  SearchConfig  `mapstructure:"search"`
	Resolve ResolveConfig `mapstructure:"resolve"`
	Synth   SynthConfig   `mapstructure:"synth"`
	Geocode GeocodeConfig `mapstructure:"geocode"`
	Output  OutputConfig  `mapstructure:"output"`
	Server  ServerConfig  `mapstructure:"server"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Log     LogConfig     `mapstructure:"log"`
}

// GridConfig locates the grid files. Each location is a path or an
// http(s) URL; regional is optional.
type GridConfig struct {
	Global   string `mapstructure:"global"`
	Regional string `mapstructure:"regional"`
}

type SearchConfig struct {
	SnapRadius     int     `mapstructure:"snap_radius"`
	MaxIterations  int     `mapstructure:"max_iterations"`
	SimplifyFactor float64 `mapstructure:"simplify_factor"`
	ComponentCheck bool    `mapstructure:"component_check"`
}

type ResolveConfig struct {
	resolve.Thresholds `mapstructure:",squash"`
	CentroidsPath      string `mapstructure:"centroids_path"` // empty uses the built-in table
}

type SynthConfig struct {
	RatioMin       float64       `mapstructure:"ratio_min"`
	RatioMax       float64       `mapstructure:"ratio_max"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SearouteURL    string        `mapstructure:"searoute_url"` // empty disables the external router
	SearouteAPIKey string        `mapstructure:"searoute_api_key"`
}

type GeocodeConfig struct {
	Gazetteer  string        `mapstructure:"gazetteer"`
	Limit      int           `mapstructure:"limit"`
	ValkeyAddr string        `mapstructure:"valkey_addr"` // empty disables the cache
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// OutputConfig names the record files written by the migration.
type OutputConfig struct {
	Legs   string `mapstructure:"legs"`
	Routes string `mapstructure:"routes"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"` // 0 picks from the CPU count
	CORSOrigin     string        `mapstructure:"cors_origin"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration. An explicit path must exist; otherwise
// config.yaml is looked up in . and ./configs and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// Environment variables: PASSAGE_SEARCH_SNAP_RADIUS → search.snap_radius
	v.SetEnvPrefix("PASSAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	search := routing.DefaultOptions()
	v.SetDefault("grid.global", "grids/global.bin")
	v.SetDefault("grid.regional", "")
	v.SetDefault("search.snap_radius", search.SnapRadius)
	v.SetDefault("search.max_iterations", search.MaxIterations)
	v.SetDefault("search.simplify_factor", search.SimplifyFactor)
	v.SetDefault("search.component_check", true)

	th := resolve.DefaultThresholds()
	v.SetDefault("resolve.continuity_budget_nm", th.ContinuityBudgetNM)
	v.SetDefault("resolve.distance_tolerance", th.DistanceTolerance)
	v.SetDefault("resolve.ambiguity_gap_nm", th.AmbiguityGapNM)
	v.SetDefault("resolve.inherit_threshold_nm", th.InheritThresholdNM)
	v.SetDefault("resolve.centroids_path", "")

	so := synth.DefaultOptions()
	v.SetDefault("synth.ratio_min", so.RatioMin)
	v.SetDefault("synth.ratio_max", so.RatioMax)
	v.SetDefault("synth.timeout", so.Timeout)
	v.SetDefault("synth.searoute_url", "")
	v.SetDefault("synth.searoute_api_key", "")

	v.SetDefault("geocode.gazetteer", "gazetteer.json")
	v.SetDefault("geocode.limit", 10)
	v.SetDefault("geocode.valkey_addr", "")
	v.SetDefault("geocode.cache_ttl", 7*24*time.Hour)

	v.SetDefault("output.legs", "legs.json")
	v.SetDefault("output.routes", "routes.json")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Second)
	v.SetDefault("server.max_concurrent", 0)
	v.SetDefault("server.cors_origin", "")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that configuration fields are sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Search.SnapRadius < 0 {
		errs = append(errs, fmt.Sprintf("search.snap_radius must not be negative, got %d", c.Search.SnapRadius))
	}
	if c.Search.MaxIterations <= 0 {
		errs = append(errs, fmt.Sprintf("search.max_iterations must be positive, got %d", c.Search.MaxIterations))
	}
	if !(c.Search.SimplifyFactor >= 0) {
		errs = append(errs, fmt.Sprintf("search.simplify_factor must not be negative, got %v", c.Search.SimplifyFactor))
	}
	if err := c.Resolve.Thresholds.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			errs = append(errs, "resolve."+line)
		}
	}
	if !(c.Synth.RatioMin > 0) || c.Synth.RatioMax <= c.Synth.RatioMin {
		errs = append(errs, fmt.Sprintf("synth ratio bounds must satisfy 0 < ratio_min < ratio_max, got %v..%v", c.Synth.RatioMin, c.Synth.RatioMax))
	}
	if c.Synth.Timeout < 0 {
		errs = append(errs, "synth.timeout must not be negative")
	}
	if c.Geocode.Limit <= 0 {
		errs = append(errs, fmt.Sprintf("geocode.limit must be positive, got %d", c.Geocode.Limit))
	}
	if c.Geocode.ValkeyAddr != "" && c.Geocode.CacheTTL <= 0 {
		errs = append(errs, "geocode.cache_ttl must be positive when valkey_addr is set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Server.MaxConcurrent < 0 {
		errs = append(errs, "server.max_concurrent must not be negative")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SearchOptions returns the pathfinder options.
func (c *Config) SearchOptions() routing.Options {
	return routing.Options{
		SnapRadius:     c.Search.SnapRadius,
		MaxIterations:  c.Search.MaxIterations,
		SimplifyFactor: c.Search.SimplifyFactor,
		ComponentCheck: c.Search.ComponentCheck,
	}
}

// SynthOptions returns the synthesizer options.
func (c *Config) SynthOptions() synth.Options {
	return synth.Options{
		RatioMin: c.Synth.RatioMin,
		RatioMax: c.Synth.RatioMax,
		Timeout:  c.Synth.Timeout,
	}
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
