// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/pagescrape/internal/browser"
	"github.com/JakeFAU/pagescrape/internal/scrape"
)

// EnvPrefix namespaces every environment override, e.g. SCRAPER_SERVER_PORT.
const EnvPrefix = "SCRAPER"

// Launch strategies accepted by browser.strategy.
const (
	StrategyAuto       = "auto"
	StrategyLocal      = browser.StrategyLocal
	StrategyServerless = browser.StrategyServerless
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Browser    BrowserConfig    `mapstructure:"browser"`
	Loader     LoaderConfig     `mapstructure:"loader"`
	Validation ValidationConfig `mapstructure:"validation"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	PathPrefix        string        `mapstructure:"path_prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BrowserConfig selects how Chrome is provisioned and how pages present
// themselves to sites.
type BrowserConfig struct {
	Strategy         string            `mapstructure:"strategy"`
	ExecPath         string            `mapstructure:"exec_path"`
	DownloadDir      string            `mapstructure:"download_dir"`
	LaunchTimeout    time.Duration     `mapstructure:"launch_timeout"`
	UserAgent        string            `mapstructure:"user_agent"`
	ViewportWidth    int               `mapstructure:"viewport_width"`
	ViewportHeight   int               `mapstructure:"viewport_height"`
	IgnoreCertErrors bool              `mapstructure:"ignore_cert_errors"`
	Flags            []string          `mapstructure:"flags"`
	Headers          map[string]string `mapstructure:"headers"`
}

// LoaderConfig sets the page wait policy.
type LoaderConfig struct {
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout"`
	SettleDelay        time.Duration `mapstructure:"settle_delay"`
}

// ValidationConfig bounds accepted input.
type ValidationConfig struct {
	MaxURLLength int `mapstructure:"max_url_length"`
}

// RateLimitConfig throttles scrapes per target host. PerHostRPS 0 disables
// throttling.
type RateLimitConfig struct {
	PerHostRPS float64 `mapstructure:"per_host_rps"`
	Burst      int     `mapstructure:"burst"`
}

// TracingConfig controls OpenTelemetry spans. ProjectID, when set, exports
// them to Google Cloud Trace.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from defaults, an optional file, the environment and,
// when fs is non-nil, explicitly set command-line flags (--port,
// --development, --prefix).
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	return load(path, fs, os.LookupEnv)
}

func load(path string, fs *pflag.FlagSet, lookupEnv func(string) (string, bool)) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	portFromFlag, err := bindFlags(v, fs)
	if err != nil {
		return Config{}, err
	}
	if port, ok := lookupEnv("PORT"); ok && port != "" && !portFromFlag {
		v.Set("server.port", port)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Browser.Strategy = ResolveStrategy(cfg.Browser.Strategy, lookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FunctionPathPrefix is the route prefix the serverless entrypoints are
// mounted under.
const FunctionPathPrefix = "/api"

// LoadFunction builds the configuration for the serverless entrypoints: no
// file and no flags, routes under FunctionPathPrefix unless
// SCRAPER_SERVER_PATH_PREFIX says otherwise, and no /metrics endpoint.
func LoadFunction() (Config, error) {
	return loadFunction(os.LookupEnv)
}

func loadFunction(lookupEnv func(string) (string, bool)) (Config, error) {
	cfg, err := load("", nil, lookupEnv)
	if err != nil {
		return Config{}, err
	}
	if _, ok := lookupEnv(EnvPrefix + "_SERVER_PATH_PREFIX"); !ok {
		cfg.Server.PathPrefix = FunctionPathPrefix
	}
	cfg.Metrics.Enabled = false
	return cfg, nil
}

var flagKeys = map[string]string{
	"port":        "server.port",
	"development": "logging.development",
	"prefix":      "server.path_prefix",
}

// bindFlags binds only flags the user actually set, so unset flag defaults
// never shadow the environment or the config file.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) (bool, error) {
	if fs == nil {
		return false, nil
	}
	portSet := false
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return false, fmt.Errorf("bind flag %s: %w", name, err)
		}
		if name == "port" {
			portSet = true
		}
	}
	return portSet, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.path_prefix", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("browser.strategy", StrategyAuto)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.download_dir", browser.DefaultDownloadDir)
	v.SetDefault("browser.launch_timeout", browser.DefaultLaunchTimeout)
	v.SetDefault("browser.user_agent", browser.DefaultUserAgent)
	v.SetDefault("browser.viewport_width", browser.DefaultViewportWidth)
	v.SetDefault("browser.viewport_height", browser.DefaultViewportHeight)
	v.SetDefault("browser.ignore_cert_errors", true)
	v.SetDefault("browser.flags", browser.DefaultFlags())
	v.SetDefault("browser.headers", browser.DefaultHeaders())
	v.SetDefault("loader.navigation_timeout", scrape.DefaultNavigationTimeout)
	v.SetDefault("loader.network_idle_timeout", scrape.DefaultNetworkIdleTimeout)
	v.SetDefault("loader.settle_delay", scrape.DefaultSettleDelay)
	v.SetDefault("validation.max_url_length", scrape.DefaultMaxURLLength)
	v.SetDefault("ratelimit.per_host_rps", 0.0)
	v.SetDefault("ratelimit.burst", 1)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.project_id", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// ResolveStrategy turns "auto" (or an empty value) into a concrete strategy:
// serverless when a function runtime is detected, local otherwise.
func ResolveStrategy(strategy string, lookupEnv func(string) (string, bool)) string {
	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy != "" && strategy != StrategyAuto {
		return strategy
	}
	for _, key := range []string{"VERCEL", "AWS_LAMBDA_FUNCTION_NAME"} {
		if val, ok := lookupEnv(key); ok && val != "" {
			return StrategyServerless
		}
	}
	return StrategyLocal
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("server.read_header_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	switch c.Browser.Strategy {
	case StrategyLocal, StrategyServerless:
	default:
		return fmt.Errorf("browser.strategy must be one of auto, local, serverless; got %q", c.Browser.Strategy)
	}
	if c.Browser.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be > 0")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser.viewport_width and browser.viewport_height must be > 0")
	}
	if c.Loader.NavigationTimeout <= 0 {
		return fmt.Errorf("loader.navigation_timeout must be > 0")
	}
	if c.Loader.NetworkIdleTimeout <= 0 {
		return fmt.Errorf("loader.network_idle_timeout must be > 0")
	}
	if c.Loader.SettleDelay < 0 {
		return fmt.Errorf("loader.settle_delay must be >= 0")
	}
	if c.Validation.MaxURLLength <= 0 {
		return fmt.Errorf("validation.max_url_length must be > 0")
	}
	if c.RateLimit.PerHostRPS < 0 {
		return fmt.Errorf("ratelimit.per_host_rps must be >= 0")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit.burst must be >= 0")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	return nil
}

// BrowserOptions converts the browser section into launch options.
func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		ExecPath:         c.Browser.ExecPath,
		DownloadDir:      c.Browser.DownloadDir,
		LaunchTimeout:    c.Browser.LaunchTimeout,
		UserAgent:        c.Browser.UserAgent,
		ViewportWidth:    c.Browser.ViewportWidth,
		ViewportHeight:   c.Browser.ViewportHeight,
		IgnoreCertErrors: c.Browser.IgnoreCertErrors,
		Flags:            append([]string(nil), c.Browser.Flags...),
		Headers:          browser.HeadersFromMap(c.Browser.Headers),
	}
}

// ServiceConfig converts the loader and validation sections into pipeline
// settings.
func (c Config) ServiceConfig() scrape.ServiceConfig {
	return scrape.ServiceConfig{
		Loader: scrape.LoaderConfig{
			NavigationTimeout:  c.Loader.NavigationTimeout,
			NetworkIdleTimeout: c.Loader.NetworkIdleTimeout,
			SettleDelay:        c.Loader.SettleDelay,
		},
		MaxURLLength: c.Validation.MaxURLLength,
	}
}
