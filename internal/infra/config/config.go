package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tavily-mcp/internal/domain"
)

// EnvPrefix is the prefix for every environment override.
const EnvPrefix = "TAVILY_MCP_"

// DefaultAPIKeyEnv names the variable holding the Tavily credential.
const DefaultAPIKeyEnv = "TAVILY_API_KEY"

// Config is the top-level application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Search SearchConfig `yaml:"search"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Logger LoggerConfig `yaml:"logger"`
	Tracer TracerConfig `yaml:"tracer"`
}

// ServerConfig holds MCP server identity and transport settings.
type ServerConfig struct {
	Name      string          `yaml:"name"`
	Transport string          `yaml:"transport"` // "stdio" or "http"
	Addr      string          `yaml:"addr"`      // listen address for "http"
	Path      string          `yaml:"path"`      // endpoint path for "http"
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-client request limits for the HTTP transport.
type RateLimitConfig struct {
	Enabled        bool     `yaml:"enabled"`
	RequestsPerMin int      `yaml:"requests_per_min"`
	Burst          int      `yaml:"burst"`
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// SearchConfig holds search provider settings.
// The query-time profile (depth, result count) is fixed in code; only the
// operator-facing connection settings live here.
type SearchConfig struct {
	Provider       string               `yaml:"provider"`
	BaseURL        string               `yaml:"base_url"`
	APIKeyEnv      string               `yaml:"api_key_env"`
	Timeout        time.Duration        `yaml:"timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for the search provider.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// FetchConfig holds URL fetch settings.
type FetchConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	UserAgent            string        `yaml:"user_agent"`
	MaxBodyBytes         int64         `yaml:"max_body_bytes"`
	MaxRedirects         int           `yaml:"max_redirects"`
	BlockPrivateNetworks bool          `yaml:"block_private_networks"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// DefaultUserAgent identifies fetch requests as a browser-compatible client.
const DefaultUserAgent = "Mozilla/5.0 (compatible; tavily-mcp/1.0; +https://github.com/tavily-mcp/tavily-mcp)"

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "simple-tavily-search",
			Transport: "stdio",
			Addr:      ":8080",
			Path:      "/mcp",
			RateLimit: RateLimitConfig{
				Enabled:        false,
				RequestsPerMin: 120,
				Burst:          20,
			},
		},
		Search: SearchConfig{
			Provider:  "tavily",
			BaseURL:   "https://api.tavily.com",
			APIKeyEnv: DefaultAPIKeyEnv,
			Timeout:   15 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Fetch: FetchConfig{
			Timeout:      10 * time.Second,
			UserAgent:    DefaultUserAgent,
			MaxBodyBytes: 5 * 1024 * 1024,
			MaxRedirects: 5,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.WrapOp("parse config", fmt.Errorf("%w: %v", domain.ErrConfigLoad, err))
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables that are already set win. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnvOverrides maps TAVILY_MCP_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := getenv("SERVER_NAME"); v != "" {
		cfg.Server.Name = v
	}
	if v := getenv("SERVER_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("SERVER_PATH"); v != "" {
		cfg.Server.Path = v
	}
	if v := getenv("SERVER_RATE_LIMIT_ENABLED"); v == "true" {
		cfg.Server.RateLimit.Enabled = true
	} else if v == "false" {
		cfg.Server.RateLimit.Enabled = false
	}
	if v := getenv("SERVER_RATE_LIMIT_REQUESTS_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.RateLimit.RequestsPerMin = n
		}
	}
	if v := getenv("SERVER_RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.RateLimit.Burst = n
		}
	}
	if v := getenv("SERVER_RATE_LIMIT_TRUSTED_PROXIES"); v != "" {
		cfg.Server.RateLimit.TrustedProxies = splitAndTrim(v, ",")
	}

	if v := getenv("SEARCH_BASE_URL"); v != "" {
		cfg.Search.BaseURL = v
	}
	if v := getenv("SEARCH_API_KEY_ENV"); v != "" {
		cfg.Search.APIKeyEnv = v
	}
	if v := getenv("SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Search.Timeout = d
		}
	}
	if v := getenv("SEARCH_CIRCUIT_BREAKER_ENABLED"); v == "true" {
		cfg.Search.CircuitBreaker.Enabled = true
	} else if v == "false" {
		cfg.Search.CircuitBreaker.Enabled = false
	}
	if v := getenv("SEARCH_CIRCUIT_BREAKER_MAX_FAILURES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Search.CircuitBreaker.MaxFailures = uint32(n)
		}
	}
	if v := getenv("SEARCH_CIRCUIT_BREAKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Search.CircuitBreaker.Timeout = d
		}
	}
	if v := getenv("SEARCH_CIRCUIT_BREAKER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Search.CircuitBreaker.Interval = d
		}
	}

	if v := getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Fetch.Timeout = d
		}
	}
	// 0 is meaningful here: it disables redirects.
	if v := getenv("FETCH_MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Fetch.MaxRedirects = n
		}
	}
	if v := getenv("FETCH_USER_AGENT"); v != "" {
		cfg.Fetch.UserAgent = v
	}
	if v := getenv("FETCH_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Fetch.MaxBodyBytes = n
		}
	}
	if v := getenv("FETCH_BLOCK_PRIVATE_NETWORKS"); v == "true" {
		cfg.Fetch.BlockPrivateNetworks = true
	} else if v == "false" {
		cfg.Fetch.BlockPrivateNetworks = false
	}

	if v := getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := getenv("LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := getenv("LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := getenv("TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	} else if v == "false" {
		cfg.Tracer.Enabled = false
	}
	if v := getenv("TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// EnvCredential returns a credential source that reads the named variable on
// every call, so a rotated key is picked up without a restart.
func EnvCredential(name string) domain.CredentialSource {
	return domain.CredentialFunc(func(context.Context) (string, error) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("%w: set %s", domain.ErrMissingCredential, name)
	})
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644: group and others may read, never write or execute.
	if mode&0o033 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
