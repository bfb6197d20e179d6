// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported values for DATABASE_DRIVER and PASSWORD_ALGORITHM.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	PasswordBcrypt   = "bcrypt"
	PasswordArgon2id = "argon2id"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// DatabaseDriver selects the store: "postgres" (default) or "sqlite".
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	// DatabaseURL is the Postgres DSN. Required when DatabaseDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SQLitePath is the SQLite file (or ":memory:") used when DatabaseDriver is sqlite.
	SQLitePath string `mapstructure:"SQLITE_PATH"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file. Derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTLRaw is the session token lifetime (e.g. "720h"). Each refresh grants a full TTL.
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`

	// PasswordAlgorithm is the algorithm used for new digests. Digests from the other algorithm still verify.
	PasswordAlgorithm string `mapstructure:"PASSWORD_ALGORITHM"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost        int `mapstructure:"BCRYPT_COST"`
	Argon2MemoryKB    int `mapstructure:"ARGON2_MEMORY_KB"`
	Argon2Time        int `mapstructure:"ARGON2_TIME"`
	Argon2Parallelism int `mapstructure:"ARGON2_PARALLELISM"`
	// HashWorkers bounds concurrent password verifications; 0 means one per CPU.
	HashWorkers int `mapstructure:"HASH_WORKERS"`

	// LinkRequireAccountIDMatch denies a provider sign-in whose account id differs from the one
	// already linked for that provider.
	LinkRequireAccountIDMatch bool `mapstructure:"LINK_REQUIRE_ACCOUNT_ID_MATCH"`
	// LinkPolicyRego is an optional path to a Rego module that replaces the built-in linking policy.
	LinkPolicyRego string `mapstructure:"LINK_POLICY_REGO"`

	// OIDCProviderNames is the comma-separated list of configured identity providers (e.g. "google,keycloak").
	OIDCProviderNames string `mapstructure:"OIDC_PROVIDERS"`
	// Providers is populated from OIDC_<NAME>_* for each entry of OIDCProviderNames.
	Providers []OIDCProvider `mapstructure:"-"`

	// RedisURL enables session sign-out by storing revoked token ids (redis://host:port/db).
	RedisURL string `mapstructure:"REDIS_URL"`
	// AuditLokiURL is an optional Grafana Loki base URL receiving audit events in addition to OTel logs.
	AuditLokiURL string `mapstructure:"AUDIT_LOKI_URL"`

	// OTelEndpoint is the OTLP gRPC collector address. Telemetry is disabled when empty.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// OIDCProvider is one OpenID Connect identity provider.
type OIDCProvider struct {
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SQLITE_PATH", "auth.db")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "next-auth-practice")
	v.SetDefault("JWT_AUDIENCE", "next-auth-practice")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("PASSWORD_ALGORITHM", PasswordBcrypt)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ARGON2_MEMORY_KB", 64*1024)
	v.SetDefault("ARGON2_TIME", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("HASH_WORKERS", 0)
	v.SetDefault("LINK_REQUIRE_ACCOUNT_ID_MATCH", false)
	v.SetDefault("LINK_POLICY_REGO", "")
	v.SetDefault("OIDC_PROVIDERS", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("AUDIT_LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "next-auth-practice")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	for _, name := range splitList(cfg.OIDCProviderNames) {
		key := "OIDC_" + strings.ToUpper(name) + "_"
		cfg.Providers = append(cfg.Providers, OIDCProvider{
			Name:         name,
			IssuerURL:    v.GetString(key + "ISSUER"),
			ClientID:     v.GetString(key + "CLIENT_ID"),
			ClientSecret: v.GetString(key + "CLIENT_SECRET"),
			RedirectURL:  v.GetString(key + "REDIRECT_URL"),
		})
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be %s or %s, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return errors.New("config: SQLITE_PATH must be set when DATABASE_DRIVER=sqlite")
	}

	switch c.PasswordAlgorithm {
	case PasswordBcrypt, PasswordArgon2id:
	default:
		return fmt.Errorf("config: PASSWORD_ALGORITHM must be %s or %s, got %q", PasswordBcrypt, PasswordArgon2id, c.PasswordAlgorithm)
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.Argon2MemoryKB < 8*1024 {
		return errors.New("config: ARGON2_MEMORY_KB must be at least 8192")
	}
	if c.Argon2Time < 1 {
		return errors.New("config: ARGON2_TIME must be at least 1")
	}
	if c.Argon2Parallelism < 1 || c.Argon2Parallelism > 255 {
		return errors.New("config: ARGON2_PARALLELISM must be between 1 and 255")
	}
	if c.HashWorkers < 0 {
		return errors.New("config: HASH_WORKERS must not be negative")
	}

	if d, err := time.ParseDuration(c.SessionTTLRaw); err != nil || d <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be a positive duration, got %q", c.SessionTTLRaw)
	}

	seen := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if seen[p.Name] {
			return fmt.Errorf("config: OIDC provider %q listed twice", p.Name)
		}
		seen[p.Name] = true
		prefix := "OIDC_" + strings.ToUpper(p.Name)
		if p.IssuerURL == "" || p.ClientID == "" || p.RedirectURL == "" {
			return fmt.Errorf("config: %s_ISSUER, %s_CLIENT_ID and %s_REDIRECT_URL must be set", prefix, prefix, prefix)
		}
	}

	if c.RedisURL != "" && !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
		return errors.New("config: REDIS_URL must start with redis:// or rediss://")
	}

	if c.Env == "production" && strings.TrimSpace(c.JWTPrivateKey) == "" {
		return errors.New("config: JWT_PRIVATE_KEY must be set when APP_ENV=production")
	}
	return nil
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// Provider returns the configured OIDC provider with the given name.
func (c *Config) Provider(name string) (OIDCProvider, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return OIDCProvider{}, false
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
