package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Permission source modes for staff permission resolution.
const (
	PermissionSourceIdentityFirst = "identity_first"
	PermissionSourceRoleOnly      = "role_only"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	RBAC          RBACConfig
	RateLimit     RateLimitConfig
	Notifications NotificationsConfig
	Grades        GradesConfig
	Security      SecurityConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ConnectRetries  int
	RetryDelay      time.Duration
}

// URL renders the connection settings as a postgres:// URL for tools that
// do not accept key/value DSNs.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RBACConfig selects how staff permission sets are resolved.
type RBACConfig struct {
	PermissionSource string
}

// RateLimitConfig configures the fixed window per-IP limiter.
type RateLimitConfig struct {
	Enabled bool
	Window  time.Duration
	Max     int
}

// NotificationsConfig governs realtime fan-out.
type NotificationsConfig struct {
	Enabled bool
	Workers int
	Channel string
}

// GradesConfig tunes grade ledger read caching.
type GradesConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type SecurityConfig struct {
	BcryptCost int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnMaxIdleTime: parseDuration(v.GetString("DB_CONN_MAX_IDLE_TIME"), 30*time.Minute),
		ConnectRetries:  v.GetInt("DB_CONNECT_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("DB_CONNECT_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}
	if cfg.Env == EnvProduction && (cfg.JWT.Secret == "" || cfg.JWT.Secret == "dev_secret") {
		return nil, errors.New("JWT_SECRET must be set in production")
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.RBAC = RBACConfig{PermissionSource: strings.ToLower(v.GetString("RBAC_PERMISSION_SOURCE"))}
	switch cfg.RBAC.PermissionSource {
	case PermissionSourceIdentityFirst, PermissionSourceRoleOnly:
	default:
		return nil, fmt.Errorf("unsupported RBAC_PERMISSION_SOURCE %q", cfg.RBAC.PermissionSource)
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
		Window:  parseDuration(v.GetString("RATE_LIMIT_WINDOW"), 15*time.Minute),
		Max:     v.GetInt("RATE_LIMIT_MAX"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		Workers: v.GetInt("NOTIFICATIONS_WORKERS"),
		Channel: v.GetString("NOTIFICATIONS_CHANNEL"),
	}

	cfg.Grades = GradesConfig{
		CacheEnabled: v.GetBool("GRADES_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("GRADES_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Security = SecurityConfig{BcryptCost: v.GetInt("BCRYPT_COST")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "30m")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_CONNECT_RETRY_DELAY", "2s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "720h")
	v.SetDefault("JWT_ISSUER", "school-portal-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RBAC_PERMISSION_SOURCE", PermissionSourceIdentityFirst)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_MAX", 100)

	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_CHANNEL", "school-portal:notifications")

	v.SetDefault("GRADES_CACHE_ENABLED", false)
	v.SetDefault("GRADES_CACHE_TTL", "5m")

	v.SetDefault("BCRYPT_COST", 12)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
