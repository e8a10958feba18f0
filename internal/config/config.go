package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"trendwatch/internal/logging"
)

// historyBuffer is added on top of the widest lookback window when sizing
// per-indicator rolling history.
const historyBuffer = 5

// Config materialises application configuration.
type Config struct {
	App        AppConfig         `mapstructure:"app"`
	Logging    logging.Config    `mapstructure:"logging"`
	Fetch      FetchConfig       `mapstructure:"fetch"`
	State      StateConfig       `mapstructure:"state"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Scheduler  SchedulerConfig   `mapstructure:"scheduler"`
	Pushover   PushoverConfig    `mapstructure:"pushover"`
	Gemini     GeminiConfig      `mapstructure:"gemini"`
	Alerting   AlertingConfig    `mapstructure:"alerting"`
	Indicators []IndicatorConfig `mapstructure:"indicators"`
	EnvFile    string            `mapstructure:"env_file"`
	DryRun     bool              `mapstructure:"dry_run"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// FetchConfig tunes the time-series API client.
type FetchConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Retries     int           `mapstructure:"retries"`
	BackoffBase float64       `mapstructure:"backoff_base"`
	Insecure    bool          `mapstructure:"insecure"`
	UserAgent   string        `mapstructure:"user_agent"`
}

// StateConfig locates the durable run state.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates the optional PostgreSQL audit store.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs the optional in-process polling loop.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// PushoverConfig carries notification credentials and routing.
type PushoverConfig struct {
	UserKey  string        `mapstructure:"user_key"`
	APIToken string        `mapstructure:"api_token"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// GeminiConfig parameterises the optional AI digest.
type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Models  []string      `mapstructure:"models"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AlertingConfig holds global signal defaults applied when an indicator
// does not override them.
type AlertingConfig struct {
	DefaultThreshold float64 `mapstructure:"default_threshold"`
	DefaultNPeriods  int     `mapstructure:"default_n_periods"`
}

// IndicatorConfig describes one monitored series. Threshold and NPeriods
// fall back to the alerting defaults when zero.
type IndicatorConfig struct {
	ID        string  `mapstructure:"id"`
	Threshold float64 `mapstructure:"threshold"`
	NPeriods  int     `mapstructure:"n_periods"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "trendwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("fetch.base_url", "https://datatrack-finwhale.trendforce.com:8000/api/v1")
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.retries", 3)
	v.SetDefault("fetch.backoff_base", 1.5)
	v.SetDefault("fetch.user_agent", "trendwatch/1.0")

	v.SetDefault("state.path", "data/state.json")
	v.SetDefault("env_file", ".env")

	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x74726e64))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("pushover.api_base", "https://api.pushover.net")
	v.SetDefault("pushover.timeout", "30s")

	v.SetDefault("gemini.models", []string{
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemini-2.5-flash",
	})
	v.SetDefault("gemini.timeout", "60s")

	v.SetDefault("alerting.default_threshold", 10.0)
	v.SetDefault("alerting.default_n_periods", 3)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		// Indicator ids may be written unquoted in YAML; decode them as strings.
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// applyDefaults resolves per-indicator fallbacks from the global alerting
// section.
func (c *Config) applyDefaults() {
	for i := range c.Indicators {
		if c.Indicators[i].Threshold <= 0 {
			c.Indicators[i].Threshold = c.Alerting.DefaultThreshold
		}
		if c.Indicators[i].NPeriods < 1 {
			c.Indicators[i].NPeriods = c.Alerting.DefaultNPeriods
		}
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Indicators) == 0 {
		return fmt.Errorf("indicators list must not be empty")
	}
	seen := make(map[string]struct{}, len(c.Indicators))
	for _, ind := range c.Indicators {
		if ind.ID == "" {
			return fmt.Errorf("indicator id must not be empty")
		}
		if _, dup := seen[ind.ID]; dup {
			return fmt.Errorf("duplicate indicator id %q", ind.ID)
		}
		seen[ind.ID] = struct{}{}
		if ind.Threshold <= 0 {
			return fmt.Errorf("indicator %s: threshold must be greater than zero", ind.ID)
		}
		if ind.NPeriods < 1 {
			return fmt.Errorf("indicator %s: n_periods must be at least 1", ind.ID)
		}
	}
	if c.Fetch.BaseURL == "" {
		return fmt.Errorf("fetch.base_url is required")
	}
	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch.concurrency must be greater than zero")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries cannot be negative")
	}
	if c.Fetch.BackoffBase <= 0 {
		return fmt.Errorf("fetch.backoff_base must be greater than zero")
	}
	if c.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	return nil
}

// IndicatorByID returns the configuration for one indicator.
func (c *Config) IndicatorByID(id string) (IndicatorConfig, bool) {
	for _, ind := range c.Indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return IndicatorConfig{}, false
}

// HistoryCapacity returns the rolling history bound shared by all
// indicators: the widest lookback window plus a fixed buffer.
func (c *Config) HistoryCapacity() int {
	max := c.Alerting.DefaultNPeriods
	for _, ind := range c.Indicators {
		if ind.NPeriods > max {
			max = ind.NPeriods
		}
	}
	return max + historyBuffer
}
