package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateServer(cfg, ve)
	validateSearch(cfg, ve)
	validateFetch(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

var validTransports = map[string]bool{
	"stdio": true,
	"http":  true,
}

func validateServer(cfg *Config, ve *ValidationError) {
	s := cfg.Server
	if s.Name == "" {
		ve.Add("server.name must not be empty")
	}
	if !validTransports[s.Transport] {
		ve.Add("server.transport %q is invalid (want stdio or http)", s.Transport)
	}
	if s.Transport == "http" {
		if _, _, err := net.SplitHostPort(s.Addr); err != nil {
			ve.Add("server.addr %q is invalid: %v", s.Addr, err)
		}
		if !strings.HasPrefix(s.Path, "/") {
			ve.Add("server.path must start with /")
		}
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerMin <= 0 {
			ve.Add("server.rate_limit.requests_per_min must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.Burst <= 0 {
			ve.Add("server.rate_limit.burst must be > 0 when rate limiting is enabled")
		}
	}
}

var validSearchProviders = map[string]bool{
	"tavily": true,
}

func validateSearch(cfg *Config, ve *ValidationError) {
	s := cfg.Search
	if !validSearchProviders[s.Provider] {
		ve.Add("search.provider %q is invalid (want tavily)", s.Provider)
	}
	if u, err := url.Parse(s.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		ve.Add("search.base_url %q must be an absolute http(s) URL", s.BaseURL)
	}
	if s.APIKeyEnv == "" {
		ve.Add("search.api_key_env must not be empty")
	}
	if s.Timeout <= 0 {
		ve.Add("search.timeout must be > 0")
	}
	if s.CircuitBreaker.Enabled && s.CircuitBreaker.MaxFailures == 0 {
		ve.Add("search.circuit_breaker.max_failures must be > 0 when the breaker is enabled")
	}
}

func validateFetch(cfg *Config, ve *ValidationError) {
	f := cfg.Fetch
	if f.Timeout <= 0 {
		ve.Add("fetch.timeout must be > 0")
	}
	if f.UserAgent == "" {
		ve.Add("fetch.user_agent must not be empty")
	}
	if f.MaxBodyBytes <= 0 {
		ve.Add("fetch.max_body_bytes must be > 0")
	}
	if f.MaxRedirects < 0 {
		ve.Add("fetch.max_redirects must be >= 0")
	}
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

func validateLogger(cfg *Config, ve *ValidationError) {
	if !validLogLevels[strings.ToLower(cfg.Logger.Level)] {
		ve.Add("logger.level %q is invalid (want debug, info, warn or error)", cfg.Logger.Level)
	}
	if !validLogFormats[strings.ToLower(cfg.Logger.Format)] {
		ve.Add("logger.format %q is invalid (want text or json)", cfg.Logger.Format)
	}
	if cfg.Server.Transport == "stdio" && strings.EqualFold(cfg.Logger.Output, "stdout") {
		ve.Add("logger.output must not be stdout with the stdio transport")
	}
}

var validExporters = map[string]bool{
	"":       true,
	"noop":   true,
	"stdout": true,
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !validExporters[cfg.Tracer.Exporter] {
		ve.Add("tracer.exporter %q is invalid (want noop or stdout)", cfg.Tracer.Exporter)
	}
}
