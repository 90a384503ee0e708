// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pkgindex/internal/service/index"
)

// AuthConfig controls the authorization feature and the built-in admin.
type AuthConfig struct {
	// Enabled exposes the principal and permission endpoints. When false the
	// index serves packages only and the auth API answers 404.
	Enabled bool
	// AdminEnabled activates the configured admin account.
	AdminEnabled  bool
	AdminUsername string
	AdminPassword string

	// JWTSecret signs HS256 session tokens issued by /login.
	JWTSecret string
	// SessionTTL bounds session token lifetime (default: 12h).
	SessionTTL time.Duration
}

// insecureJWTSecret is the development fallback; fatal in production.
const insecureJWTSecret = "dev-insecure-jwt-secret"

// Config holds the configuration for the package index server.
type Config struct {
	DBPath     string // path to the SQLite database file
	IndexRoot  string // directory holding local package metadata and files
	ListenAddr string // HTTP listen address (default ":8080")
	BaseURL    string // external base URL for rewriting file links (default: derived from request)
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// Upstream proxies, in fallback order.
	ProxiesFile string
	Proxies     []index.Proxy
	// ProxyTimeout bounds each upstream lookup (default: 10s).
	ProxyTimeout time.Duration

	// AuditRetention is how long audit entries are kept (default: 90 days,
	// 0 disables pruning).
	AuditRetention time.Duration

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Auth AuthConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:      os.Getenv("DB_PATH"),
		IndexRoot:   os.Getenv("INDEX_ROOT"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		BaseURL:     os.Getenv("BASE_URL"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
		ProxiesFile: os.Getenv("PROXIES_FILE"),
		Auth: AuthConfig{
			Enabled:       parseBoolEnvDefault("AUTH_ENABLED", true),
			AdminEnabled:  parseBoolEnvDefault("ADMIN_ENABLED", true),
			AdminUsername: os.Getenv("ADMIN_USERNAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			JWTSecret:     os.Getenv("JWT_SECRET"),
		},
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}
	if v := os.Getenv("PROXY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProxyTimeout = d
		}
	}
	if v := os.Getenv("AUDIT_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.AuditRetention = d
		}
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "pkgindex.sqlite"
	}
	if cfg.IndexRoot == "" {
		cfg.IndexRoot = "index"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.SessionTTL == 0 {
		cfg.Auth.SessionTTL = 12 * time.Hour
	}
	if cfg.ProxyTimeout == 0 {
		cfg.ProxyTimeout = index.DefaultProxyTimeout
	}
	if cfg.AuditRetention == 0 {
		cfg.AuditRetention = 90 * 24 * time.Hour
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = insecureJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.Auth.AdminEnabled && cfg.Auth.AdminUsername == "" {
		cfg.Auth.AdminUsername = "admin"
	}
	if cfg.Auth.AdminEnabled && cfg.Auth.AdminPassword == "" {
		cfg.Auth.AdminEnabled = false
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD not set, the admin account is disabled")
	}

	if cfg.ProxiesFile != "" {
		proxies, err := LoadProxies(cfg.ProxiesFile)
		if err != nil {
			return nil, err
		}
		cfg.Proxies = proxies
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == insecureJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// proxiesFile is the YAML shape of PROXIES_FILE.
type proxiesFile struct {
	Proxies []index.Proxy `yaml:"proxies"`
}

// LoadProxies reads the upstream proxy list from a YAML file. Order in the
// file is fallback order.
func LoadProxies(path string) ([]index.Proxy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read proxies file: %w", err)
	}
	var f proxiesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse proxies file %s: %w", path, err)
	}
	for i, p := range f.Proxies {
		if p.URL == "" {
			return nil, fmt.Errorf("proxies file %s: proxy %d has no url", path, i)
		}
		if !strings.Contains(p.URL, "{project}") {
			return nil, fmt.Errorf("proxies file %s: proxy %q url must contain {project}", path, p.Name)
		}
	}
	return f.Proxies, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
