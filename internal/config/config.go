package config

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Shopify     ShopifyConfig
	Airbyte     AirbyteConfig
	Security    SecurityConfig
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URI             string
	Name            string
	ConnectAttempts int
	ConnectDelay    time.Duration
	SlowCommand     time.Duration
}

type RedisConfig struct {
	URL        string
	WebhookTTL time.Duration
}

type ShopifyConfig struct {
	APIKey    string
	APISecret string
	AppURL    string
	Scopes    []string
}

type AirbyteConfig struct {
	URL     string
	Timeout time.Duration
}

type SecurityConfig struct {
	EncryptionKey string
}

const localDevEncryptionSeed = "growthhit-local-dev"

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("app_env", "")
	v.SetDefault("node_env", "")
	v.SetDefault("log_level", "")
	v.SetDefault("port", 8080)
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("mongodb_uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "growthhit")
	v.SetDefault("db_connect_attempts", 3)
	v.SetDefault("db_connect_delay", "2s")
	v.SetDefault("db_slow_command", "500ms")
	v.SetDefault("redis_url", "")
	v.SetDefault("webhook_dedupe_ttl", "168h")
	v.SetDefault("shopify_api_key", "")
	v.SetDefault("shopify_api_secret", "")
	v.SetDefault("shopify_app_url", "")
	v.SetDefault("scopes", "")
	v.SetDefault("airbyte_api_url", "https://your-airbyte-handler.com/api")
	v.SetDefault("airbyte_timeout", "30s")
	v.SetDefault("encryption_key", "")

	env := resolveEnvironment(v)
	port := v.GetInt("port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %d", port)
	}

	attempts := v.GetInt("db_connect_attempts")
	if attempts <= 0 {
		attempts = 3
	}

	logLevel := strings.ToLower(strings.TrimSpace(v.GetString("log_level")))

	cfg := Config{
		Environment: env,
		LogLevel:    logLevel,
		Server: ServerConfig{
			Port:            port,
			ShutdownTimeout: positiveDuration(v.GetDuration("shutdown_timeout"), 10*time.Second),
		},
		Database: DatabaseConfig{
			URI:             strings.TrimSpace(v.GetString("mongodb_uri")),
			Name:            strings.TrimSpace(v.GetString("mongodb_database")),
			ConnectAttempts: attempts,
			ConnectDelay:    positiveDuration(v.GetDuration("db_connect_delay"), 2*time.Second),
			SlowCommand:     v.GetDuration("db_slow_command"),
		},
		Redis: RedisConfig{
			URL:        strings.TrimSpace(v.GetString("redis_url")),
			WebhookTTL: positiveDuration(v.GetDuration("webhook_dedupe_ttl"), 7*24*time.Hour),
		},
		Shopify: ShopifyConfig{
			APIKey:    strings.TrimSpace(v.GetString("shopify_api_key")),
			APISecret: strings.TrimSpace(v.GetString("shopify_api_secret")),
			AppURL:    strings.TrimRight(strings.TrimSpace(v.GetString("shopify_app_url")), "/"),
			Scopes:    splitList(v.GetString("scopes")),
		},
		Airbyte: AirbyteConfig{
			URL:     strings.TrimSpace(v.GetString("airbyte_api_url")),
			Timeout: positiveDuration(v.GetDuration("airbyte_timeout"), 30*time.Second),
		},
		Security: SecurityConfig{
			EncryptionKey: strings.TrimSpace(v.GetString("encryption_key")),
		},
	}

	if cfg.Database.Name == "" {
		cfg.Database.Name = "growthhit"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
		if cfg.IsLocalDevelopment() {
			cfg.LogLevel = "debug"
		}
	}

	if !cfg.IsLocalDevelopment() {
		if cfg.Shopify.APIKey == "" || cfg.Shopify.APISecret == "" {
			return Config{}, fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required outside local/dev environments")
		}
		if cfg.Security.EncryptionKey == "" {
			return Config{}, fmt.Errorf("ENCRYPTION_KEY is required outside local/dev environments")
		}
	}
	if cfg.Security.EncryptionKey == "" {
		sum := sha256.Sum256([]byte(localDevEncryptionSeed))
		cfg.Security.EncryptionKey = base64.StdEncoding.EncodeToString(sum[:])
	}

	return cfg, nil
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

// DebugLogging reports whether debug records should be emitted
func (c Config) DebugLogging() bool {
	return c.LogLevel == "debug" || c.LogLevel == "trace"
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"app_env", "node_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
