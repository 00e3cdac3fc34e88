package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	QuickStats QuickStatsConfig `yaml:"quickstats" mapstructure:"quickstats"`
	Panel      PanelConfig      `yaml:"panel" mapstructure:"panel"`
	NRate      NRateConfig      `yaml:"nrate" mapstructure:"nrate"`
	Boundary   BoundaryConfig   `yaml:"boundary" mapstructure:"boundary"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// QuickStatsConfig configures the USDA QuickStats API and the report mirror.
type QuickStatsConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MirrorURL   string `yaml:"mirror_url" mapstructure:"mirror_url"`
	State       string `yaml:"state" mapstructure:"state"`
	StartYear   int    `yaml:"start_year" mapstructure:"start_year"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// Timeout returns the per-request timeout.
func (c QuickStatsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PanelConfig configures panel construction.
type PanelConfig struct {
	CutoffYear int    `yaml:"cutoff_year" mapstructure:"cutoff_year"`
	Reference  string `yaml:"reference" mapstructure:"reference"` // "crops" or "animals"
}

// NRateConfig locates the fertilizer-rate panel (CSV or XLSX).
type NRateConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BoundaryConfig locates county polygons for GeoJSON output.
type BoundaryConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	URL       string `yaml:"url" mapstructure:"url"`
	StateFIPS string `yaml:"state_fips" mapstructure:"state_fips"`
	NameField string `yaml:"name_field" mapstructure:"name_field"`
}

// StoreConfig configures result persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// CacheConfig configures the SQLite response cache. An empty path disables it.
type CacheConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// OutputConfig configures file exports.
type OutputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Output formats accepted in output.formats.
const (
	FormatCSV     = "csv"
	FormatLongCSV = "long"
	FormatGeoJSON = "geojson"
)

var validFormats = map[string]bool{FormatCSV: true, FormatLongCSV: true, FormatGeoJSON: true}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NSURPLUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("quickstats.api_key", "")
	v.SetDefault("quickstats.base_url", "https://quickstats.nass.usda.gov/api/api_GET/")
	v.SetDefault("quickstats.mirror_url", "https://api.usda-reports.penguinlabs.net/data.csv")
	v.SetDefault("quickstats.state", "IOWA")
	v.SetDefault("quickstats.start_year", 1968)
	v.SetDefault("quickstats.timeout_secs", 60)
	v.SetDefault("quickstats.max_retries", 3)
	v.SetDefault("quickstats.concurrency", 4)
	v.SetDefault("panel.cutoff_year", 2023)
	v.SetDefault("panel.reference", "crops")
	v.SetDefault("nrate.path", "data/nrate.csv")
	v.SetDefault("boundary.path", "")
	v.SetDefault("boundary.url", "https://www2.census.gov/geo/tiger/TIGER2023/COUNTY/tl_2023_us_county.zip")
	v.SetDefault("boundary.state_fips", "19")
	v.SetDefault("boundary.name_field", "NAME")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("cache.path", "nsurplus-cache.db")
	v.SetDefault("cache.ttl_hours", 168)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.formats", []string{FormatCSV})
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

// Validation modes, one per command family.
const (
	ModeBuild = "build" // full pipeline: QuickStats plus optional persistence
	ModeFetch = "fetch" // QuickStats only
	ModeStore = "store" // database commands
)

// Validate checks the settings the given mode depends on and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeBuild, ModeFetch:
		if c.QuickStats.APIKey == "" {
			errs = append(errs, "quickstats.api_key is required")
		}
		if c.QuickStats.StartYear > c.Panel.CutoffYear {
			errs = append(errs, fmt.Sprintf("quickstats.start_year %d is after panel.cutoff_year %d",
				c.QuickStats.StartYear, c.Panel.CutoffYear))
		}
		if c.QuickStats.Concurrency < 1 || c.QuickStats.Concurrency > 16 {
			errs = append(errs, "quickstats.concurrency must be between 1 and 16")
		}
	case ModeStore:
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == ModeBuild {
		switch c.Panel.Reference {
		case "crops", "animals":
		default:
			errs = append(errs, fmt.Sprintf("unknown panel.reference %q", c.Panel.Reference))
		}
		for _, f := range c.Output.Formats {
			if !validFormats[strings.ToLower(f)] {
				errs = append(errs, fmt.Sprintf("unknown output format %q", f))
			}
		}
	}

	if mode == ModeBuild || mode == ModeStore {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required for the postgres driver")
			}
		case "none":
			if mode == ModeStore {
				errs = append(errs, "store.driver none has no database")
			}
		default:
			errs = append(errs, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
