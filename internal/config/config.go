// Package config loads pakto.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/pakto/internal/bundler"
	"github.com/fluxbase-eu/pakto/internal/source"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "pakto.toml"

// EnvPrefix prefixes every environment override, e.g. PAKTO_NPM_REGISTRY.
const EnvPrefix = "PAKTO"

// Config represents the tool configuration
type Config struct {
	NPM       NPMConfig      `mapstructure:"npm"`
	Output    OutputConfig   `mapstructure:"output"`
	Polyfills PolyfillConfig `mapstructure:"polyfills"`
	Bundle    BundleConfig   `mapstructure:"bundle"`
	Cache     CacheConfig    `mapstructure:"cache"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	Logging   LoggingConfig  `mapstructure:"logging"`
}

// NPMConfig contains registry access settings
type NPMConfig struct {
	Registry    string        `mapstructure:"registry"`
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	AuthToken   string        `mapstructure:"auth_token"`
	Workers     int           `mapstructure:"workers"`
	RateLimit   float64       `mapstructure:"rate_limit"` // requests per second per registry host
	Burst       int           `mapstructure:"burst"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	// LimitBackend shares the request quota between processes when set to
	// "redis".
	LimitBackend  string `mapstructure:"limit_backend"`
	LimitRedisURL string `mapstructure:"limit_redis_url"`
}

// OutputConfig contains bundle output settings
type OutputConfig struct {
	Directory      string `mapstructure:"directory"`
	Naming         string `mapstructure:"naming"`
	Minify         bool   `mapstructure:"minify"`
	Target         string `mapstructure:"target"`
	Namespace      string `mapstructure:"namespace"`
	Banner         bool   `mapstructure:"banner"`
	BannerTemplate string `mapstructure:"banner_template"` // path to a text/template file
}

// PolyfillConfig contains polyfill selection settings
type PolyfillConfig struct {
	DefaultIncludes []string          `mapstructure:"default_includes"`
	DefaultExcludes []string          `mapstructure:"default_excludes"`
	Mappings        map[string]string `mapstructure:"mappings"`
}

// BundleConfig contains bundling strategy settings
type BundleConfig struct {
	Strategy            string            `mapstructure:"strategy"`
	MaxSize             int64             `mapstructure:"max_size"`
	ExcludeDependencies []string          `mapstructure:"exclude_dependencies"`
	ForceInline         []string          `mapstructure:"force_inline"`
	Globals             map[string]string `mapstructure:"globals"`
}

// CacheConfig contains fetch cache settings
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"` // memory, disk, redis or s3
	Dir        string        `mapstructure:"dir"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	RedisURL   string        `mapstructure:"redis_url"`
	S3         S3Config      `mapstructure:"s3"`
}

// S3Config contains the S3-compatible cache bucket
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig contains metrics export settings
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Load reads configuration from path, or from the nearest pakto.toml when
// path is empty, layered over defaults and PAKTO_* environment variables.
// A missing file is not an error.
func Load(fs afero.Fs, path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := newViper(fs, true)

	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path = Find(fs, wd)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(fs, path) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
			log.Debug().Str("file", path).Msg("Config file not found, using defaults")
		} else {
			log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var config Config
	// Decoding defaults only fails on programming errors.
	if err := newViper(afero.NewMemMapFs(), false).Unmarshal(&config); err != nil {
		panic(err)
	}
	return &config
}

// Find walks from dir to the filesystem root and returns the first
// pakto.toml, or "".
func Find(fs afero.Fs, dir string) string {
	for {
		candidate := filepath.Join(dir, FileName)
		if ok, _ := afero.Exists(fs, candidate); ok {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// WriteDefault writes the default configuration to dir/pakto.toml. It fails
// if the file exists.
func WriteDefault(fs afero.Fs, dir string) (string, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)
	if ok, _ := afero.Exists(fs, path); ok {
		return "", fmt.Errorf("%s already exists", path)
	}
	v := newViper(fs, false)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func newViper(fs afero.Fs, env bool) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("toml")
	setDefaults(v)

	if env {
		// Enable environment variable support with underscore replacer
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return v
}

func isNotExist(fs afero.Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && !ok
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// NPM defaults
	v.SetDefault("npm.registry", "https://registry.npmjs.org")
	v.SetDefault("npm.timeout", "30s")
	v.SetDefault("npm.user_agent", "pakto/1.0")
	v.SetDefault("npm.auth_token", "")
	v.SetDefault("npm.workers", 8)
	v.SetDefault("npm.rate_limit", 20.0)
	v.SetDefault("npm.burst", 10)
	v.SetDefault("npm.max_attempts", 3)
	v.SetDefault("npm.limit_backend", "local")
	v.SetDefault("npm.limit_redis_url", "")

	// Output defaults
	v.SetDefault("output.directory", "./dist")
	v.SetDefault("output.naming", "{name}.bundle.js")
	v.SetDefault("output.minify", false)
	v.SetDefault("output.target", "es5")
	v.SetDefault("output.namespace", "")
	v.SetDefault("output.banner", true)
	v.SetDefault("output.banner_template", "")

	// Polyfill defaults
	v.SetDefault("polyfills.default_includes", []string{})
	v.SetDefault("polyfills.default_excludes", []string{"fs", "child_process"})
	v.SetDefault("polyfills.mappings", map[string]string{})

	// Bundle defaults
	v.SetDefault("bundle.strategy", "inline")
	v.SetDefault("bundle.max_size", 5*1024*1024) // 5MB
	v.SetDefault("bundle.exclude_dependencies", []string{"fsevents", "node-gyp"})
	v.SetDefault("bundle.force_inline", []string{})
	v.SetDefault("bundle.globals", map[string]string{})

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", "disk")
	v.SetDefault("cache.dir", defaultCacheDir())
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.s3.endpoint", "")
	v.SetDefault("cache.s3.access_key", "")
	v.SetDefault("cache.s3.secret_key", "")
	v.SetDefault("cache.s3.bucket", "pakto-cache")
	v.SetDefault("cache.s3.region", "us-east-1")
	v.SetDefault("cache.s3.use_ssl", true)
	v.SetDefault("cache.s3.prefix", "")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pakto")
	}
	return ".cache/pakto"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.NPM.Validate(); err != nil {
		return fmt.Errorf("npm configuration error: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output configuration error: %w", err)
	}
	if err := c.Bundle.Validate(); err != nil {
		return fmt.Errorf("bundle configuration error: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache configuration error: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration error: %w", err)
	}
	return nil
}

// Validate validates registry settings
func (nc *NPMConfig) Validate() error {
	if !strings.HasPrefix(nc.Registry, "http://") && !strings.HasPrefix(nc.Registry, "https://") {
		return fmt.Errorf("registry must be an http(s) URL, got: %q", nc.Registry)
	}
	if nc.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", nc.Timeout)
	}
	if nc.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got: %d", nc.Workers)
	}
	if nc.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative, got: %v", nc.RateLimit)
	}
	if nc.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got: %d", nc.MaxAttempts)
	}
	switch nc.LimitBackend {
	case "local", "":
	case "redis":
		if nc.LimitRedisURL == "" {
			return fmt.Errorf("limit_redis_url is required when limit_backend is redis")
		}
	default:
		return fmt.Errorf("invalid limit_backend: %s (must be one of: local, redis)", nc.LimitBackend)
	}
	return nil
}

// Validate validates output settings
func (oc *OutputConfig) Validate() error {
	if oc.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	if oc.Naming != "" && !strings.Contains(oc.Naming, "{name}") && !strings.HasSuffix(oc.Naming, ".js") {
		return fmt.Errorf("naming must contain {name} or end in .js, got: %q", oc.Naming)
	}
	if _, err := source.ParseTarget(oc.Target); err != nil {
		return err
	}
	return nil
}

// ESTarget returns the parsed output target.
func (oc *OutputConfig) ESTarget() source.Target {
	t, _ := source.ParseTarget(oc.Target)
	return t
}

// Validate validates bundling settings
func (bc *BundleConfig) Validate() error {
	if _, err := bundler.ParseStrategy(bc.Strategy); err != nil {
		return err
	}
	if bc.MaxSize < 0 {
		return fmt.Errorf("max_size cannot be negative, got: %d", bc.MaxSize)
	}
	return nil
}

// ParsedStrategy returns the configured strategy.
func (bc *BundleConfig) ParsedStrategy() bundler.Strategy {
	s, _ := bundler.ParseStrategy(bc.Strategy)
	return s
}

// Validate validates cache settings
func (cc *CacheConfig) Validate() error {
	if !cc.Enabled {
		return nil // No validation needed if disabled
	}

	validBackends := []string{"memory", "disk", "redis", "s3"}
	valid := false
	for _, b := range validBackends {
		if cc.Backend == b {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid cache backend: %s (must be one of: %v)", cc.Backend, validBackends)
	}

	if cc.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got: %v", cc.TTL)
	}

	switch cc.Backend {
	case "memory":
		if cc.MaxEntries < 1 {
			return fmt.Errorf("max_entries must be at least 1, got: %d", cc.MaxEntries)
		}
	case "disk":
		if cc.Dir == "" {
			return fmt.Errorf("dir is required when using the disk backend")
		}
	case "redis":
		if cc.RedisURL == "" {
			return fmt.Errorf("redis_url is required when using the redis backend")
		}
	case "s3":
		if cc.S3.Endpoint == "" || cc.S3.Bucket == "" {
			return fmt.Errorf("s3 endpoint and bucket are required when using the s3 backend")
		}
	}

	return nil
}

// Validate validates logging settings
func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", lc.Level)
	}
	if lc.Format != "console" && lc.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be console or json)", lc.Format)
	}
	return nil
}
