// Package config has the configuration file for the app
package config

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"slices"
	"strconv"
	"strings"
)

// Environment is the deployment environment name
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

const mb = 1024 * 1024

var (
	environments   = []string{string(EnvDevelopment), string(EnvStaging), string(EnvProduction), string(EnvTest)}
	logLevels      = []string{"debug", "info", "warn", "error"}
	validProtocols = []string{"tiered", "exponential"}
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes
	AllowedOrigins    []string
	TrustedProxies    []string // IPs or CIDRs whose X-Forwarded-For is honoured

	TaperProtocol       string // Protocol used when a request does not name one
	SafetyCeilingDrops  int    // Largest initial drop count for the tiered protocol
	ExponentialMaxWeeks int    // Week cap for the exponential protocol
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", "dev"))),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default
		AllowedOrigins:    splitList(getEnvWithDefault("ALLOWED_ORIGINS", "*")),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),

		TaperProtocol:       strings.ToLower(getEnvWithDefault("TAPER_PROTOCOL", "tiered")),
		SafetyCeilingDrops:  getIntEnvWithDefault("SAFETY_CEILING_DROPS", 100),
		ExponentialMaxWeeks: getIntEnvWithDefault("EXPONENTIAL_MAX_WEEKS", 520),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig runs every field check and returns the first failure
func validateConfig(cfg *Config) error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"PORT", func() error { return validatePort(cfg.Port) }},
		{"ADDRESS", func() error { return validateAddress(cfg.Address) }},
		{"ENV", func() error { return validateOneOf(string(cfg.Env), environments, "ENV") }},
		{"LOG_LEVEL", func() error { return validateOneOf(strings.ToLower(cfg.LogLevel), logLevels, "LOG_LEVEL") }},
		{"MAX_REQUEST_BODY", func() error { return validateBounds(cfg.MaxRequestBody, 1, 100*mb, "MAX_REQUEST_BODY") }},
		{"MAX_HEADER_SIZE", func() error { return validateBounds(cfg.MaxHeaderSize, 1, 100*mb, "MAX_HEADER_SIZE") }},
		{"LOG_RETENTION_WEEKS", func() error { return validateBounds(int64(cfg.LogRetentionWeeks), 1, 52, "LOG_RETENTION_WEEKS") }},
		{"MAX_LOG_FILE_SIZE", func() error { return validateBounds(cfg.MaxLogFileSize, mb, 1024*mb, "MAX_LOG_FILE_SIZE") }},
		{"ALLOWED_ORIGINS", func() error {
			if len(cfg.AllowedOrigins) == 0 {
				return fmt.Errorf("at least one origin is required")
			}
			return nil
		}},
		{"TRUSTED_PROXIES", func() error {
			_, err := ParseTrustedProxies(cfg.TrustedProxies)
			return err
		}},
		{"TAPER_PROTOCOL", func() error { return validateOneOf(cfg.TaperProtocol, validProtocols, "TAPER_PROTOCOL") }},
		{"SAFETY_CEILING_DROPS", func() error { return validateRange(cfg.SafetyCeilingDrops, 1, 1000, "SAFETY_CEILING_DROPS") }},
		// 20 years at most
		{"EXPONENTIAL_MAX_WEEKS", func() error { return validateRange(cfg.ExponentialMaxWeeks, 1, 1040, "EXPONENTIAL_MAX_WEEKS") }},
	}

	for _, c := range checks {
		if err := c.check(); err != nil {
			return fmt.Errorf("invalid %s: %w", c.name, err)
		}
	}
	return nil
}

// validatePort accepts unprivileged ports only
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}
	return nil
}

// validateAddress accepts loopback, unspecified and private addresses
func validateAddress(address string) error {
	switch address {
	case "":
		return fmt.Errorf("ADDRESS cannot be empty")
	case "localhost", "0.0.0.0", "::":
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, use a loopback or private address", address)
	}
	return nil
}

func validateOneOf(value string, valid []string, configName string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of: %v, got: %q", configName, valid, value)
}

// validateBounds checks minValue <= size <= maxValue for byte sizes and
// week counts
func validateBounds(size, minValue, maxValue int64, configName string) error {
	switch {
	case size <= 0:
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	case size < minValue:
		return fmt.Errorf("%s is too small (min %d), got: %d", configName, minValue, size)
	case size > maxValue:
		return fmt.Errorf("%s is too large (max %d), got: %d", configName, maxValue, size)
	}
	return nil
}

// ParseTrustedProxies turns IPs and CIDRs into prefixes. A bare IP becomes a
// single address prefix.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		if strings.Contains(v, "/") {
			prefix, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid CIDR: %w", v, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid IP: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// validateRange checks min <= value <= max
func validateRange(value, minValue, maxValue int, configName string) error {
	if value < minValue || value > maxValue {
		return fmt.Errorf("%s must be between %d and %d, got: %d", configName, minValue, maxValue, value)
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// splitList splits a comma separated list, dropping empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"ALLOWED_ORIGINS",
		"TRUSTED_PROXIES",
		"TAPER_PROTOCOL",
		"SAFETY_CEILING_DROPS",
		"EXPONENTIAL_MAX_WEEKS",
	}
}
