package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type (
	// Config holds configuration settings for the reflection server
	Config struct {
		// API Server
		APIHost              string
		APIPort              int
		IgnoreStartupFailure bool
		LogLevel             string
		ShutdownTimeout      time.Duration

		// Environments
		Env    string
		Envs   []string
		Stores map[string]StoreConfig

		// Stores
		MemoryStoreSize int
	}

	// StoreConfig selects and configures the backend holding the trace and
	// flow-state stores of one environment
	StoreConfig struct {
		Type      string `toml:"type"`
		Addr      string `toml:"addr"`
		Password  string `toml:"password"`
		DB        int    `toml:"db"`
		Prefix    string `toml:"prefix"`
		BucketURL string `toml:"bucket_url"`
	}

	fileConfig struct {
		Host                 string                 `toml:"host"`
		Port                 int                    `toml:"port"`
		IgnoreStartupFailure bool                   `toml:"ignore_startup_failure"`
		LogLevel             string                 `toml:"log_level"`
		ShutdownTimeout      string                 `toml:"shutdown_timeout"`
		Env                  string                 `toml:"env"`
		Envs                 []string               `toml:"envs"`
		MemoryStoreSize      int                    `toml:"memory_store_size"`
		Stores               map[string]StoreConfig `toml:"stores"`
	}
)

const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
	StoreTypeBlob   = "blob"
)

const (
	DefaultAPIPort         = 3100
	DefaultAPIHost         = "127.0.0.1"
	DefaultEnv             = "dev"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMemoryStoreSize = 1000
	DefaultRedisEndpoint   = "localhost:6379"
	DefaultRedisPrefix     = "reflector"
	MaxTCPPort             = 65535
	MaxMemoryStoreSize     = 1_000_000

	// StartupFailureIgnore is the value of REFLECTION_ON_STARTUP_FAILURE
	// that turns bind failures into warnings
	StartupFailureIgnore = "ignore"
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrNoEnvs                 = errors.New("at least one environment is required")
	ErrEnvNotConfigured       = errors.New("current environment is not configured")
	ErrInvalidStoreType       = errors.New("invalid store type")
	ErrRedisAddrRequired      = errors.New("redis store requires an address")
	ErrBucketURLRequired      = errors.New("blob store requires a bucket URL")
	ErrLoadConfigFile         = errors.New("failed to load config file")
)

// NewDefaultConfig creates a configuration for a single dev environment
// backed by in-memory stores
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:         DefaultAPIHost,
		APIPort:         DefaultAPIPort,
		LogLevel:        "info",
		ShutdownTimeout: DefaultShutdownTimeout,
		Env:             DefaultEnv,
		Envs:            []string{DefaultEnv},
		Stores:          map[string]StoreConfig{},
		MemoryStoreSize: DefaultMemoryStoreSize,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// A config file named by REFLECTION_CONFIG is applied first, so variables
// override it. Returns an error if any value cannot be parsed
func (c *Config) LoadFromEnv() error {
	if path := os.Getenv("REFLECTION_CONFIG"); path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}

	if apiHost := os.Getenv("REFLECTION_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if env := os.Getenv("REFLECTION_ENV"); env != "" {
		c.Env = env
	}
	if envs := os.Getenv("REFLECTION_ENVS"); envs != "" {
		c.Envs = splitList(envs)
	}
	if os.Getenv("REFLECTION_ON_STARTUP_FAILURE") == StartupFailureIgnore {
		c.IgnoreStartupFailure = true
	}

	if err := loadEnvInt(
		"REFLECTION_PORT", &c.APIPort, 0, MaxTCPPort,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MEMORY_STORE_SIZE", &c.MemoryStoreSize, 0, MaxMemoryStoreSize,
	); err != nil {
		return err
	}

	for _, env := range c.Envs {
		st := c.StoreFor(env)
		LoadStoreConfigFromEnv(&st, strings.ToUpper(env))
		c.Stores[env] = st
	}
	return nil
}

// LoadFile applies the settings present in a TOML file
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfigFile, err)
	}

	if meta.IsDefined("host") {
		c.APIHost = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		c.APIPort = raw.Port
	}
	if meta.IsDefined("ignore_startup_failure") {
		c.IgnoreStartupFailure = raw.IgnoreStartupFailure
	}
	if meta.IsDefined("log_level") {
		c.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return fmt.Errorf("%w: shutdown_timeout: %w", ErrLoadConfigFile, err)
		}
		c.ShutdownTimeout = d
	}
	if meta.IsDefined("env") {
		c.Env = strings.TrimSpace(raw.Env)
	}
	if meta.IsDefined("envs") {
		c.Envs = normalizeList(raw.Envs)
	}
	if meta.IsDefined("memory_store_size") {
		c.MemoryStoreSize = raw.MemoryStoreSize
	}
	if c.Stores == nil {
		c.Stores = map[string]StoreConfig{}
	}
	for env, st := range raw.Stores {
		c.Stores[env] = st
	}
	return nil
}

// StoreFor returns the store configuration of an environment, defaulting
// to in-memory stores
func (c *Config) StoreFor(env string) StoreConfig {
	if st, ok := c.Stores[env]; ok {
		if st.Type == "" {
			st.Type = StoreTypeMemory
		}
		return st
	}
	return StoreConfig{Type: StoreTypeMemory}
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.Envs) == 0 {
		return ErrNoEnvs
	}

	if !slices.Contains(c.Envs, c.Env) {
		return fmt.Errorf("%w: %s", ErrEnvNotConfigured, c.Env)
	}

	for _, env := range c.Envs {
		if err := c.StoreFor(env).Validate(); err != nil {
			return fmt.Errorf("env %s: %w", env, err)
		}
	}
	return nil
}

// Validate checks that the selected backend has what it needs
func (s StoreConfig) Validate() error {
	switch s.Type {
	case StoreTypeMemory, "":
		return nil
	case StoreTypeRedis:
		if s.Addr == "" {
			return ErrRedisAddrRequired
		}
		return nil
	case StoreTypeBlob:
		if s.BucketURL == "" {
			return ErrBucketURLRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStoreType, s.Type)
	}
}

// LoadStoreConfigFromEnv loads store configuration from environment
// variables with the given prefix (e.g., "DEV" or "PROD")
func LoadStoreConfigFromEnv(s *StoreConfig, prefix string) {
	if typ := os.Getenv(prefix + "_STORE_TYPE"); typ != "" {
		s.Type = typ
	}
	if addr := os.Getenv(prefix + "_REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv(prefix + "_REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv(prefix + "_REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			s.DB = db
		}
	}
	if envPrefix := os.Getenv(prefix + "_STORE_PREFIX"); envPrefix != "" {
		s.Prefix = envPrefix
	}
	if bucketURL := os.Getenv(prefix + "_BUCKET_URL"); bucketURL != "" {
		s.BucketURL = bucketURL
	}
	if s.Type == StoreTypeRedis && s.Prefix == "" {
		s.Prefix = DefaultRedisPrefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

func splitList(s string) []string {
	return normalizeList(strings.Split(s, ","))
}

func normalizeList(in []string) []string {
	res := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.TrimSpace(item)
		if item != "" && !slices.Contains(res, item) {
			res = append(res, item)
		}
	}
	return res
}
