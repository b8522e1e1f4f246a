package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Transport modes for the issued token pair.
const (
	TransportCookie = "cookie"
	TransportBearer = "bearer"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Referral ReferralConfig
	CORS     CORSConfig
	Log      LogConfig
	Metrics  MetricsConfig
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
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig governs the dual-token authentication subsystem.
type AuthConfig struct {
	Secret            string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RefreshTokenBytes int
	RefreshKeyPrefix  string
	RequireVerified   bool
	Transport         string
	Cookie            CookieConfig
}

// CookieConfig carries the flags shared by both token cookies. Max-age is
// not configured here: each cookie mirrors its own token TTL.
type CookieConfig struct {
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite string
}

// ReferralConfig governs referral code minting.
type ReferralConfig struct {
	CodeLength int
	DefaultTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

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
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		Secret:            v.GetString("JWT_SECRET"),
		AccessTokenTTL:    parseDuration(v.GetString("ACCESS_TOKEN_TTL"), 5*time.Minute),
		RefreshTokenTTL:   parseDuration(v.GetString("REFRESH_TOKEN_TTL"), 2629746*time.Second),
		RefreshTokenBytes: v.GetInt("REFRESH_TOKEN_BYTES"),
		RefreshKeyPrefix:  v.GetString("REFRESH_TOKEN_KEY_PREFIX"),
		RequireVerified:   v.GetBool("REQUIRE_VERIFIED"),
		Transport:         v.GetString("AUTH_TRANSPORT"),
		Cookie: CookieConfig{
			Path:     v.GetString("AUTH_COOKIE_PATH"),
			Domain:   v.GetString("AUTH_COOKIE_DOMAIN"),
			Secure:   v.GetBool("AUTH_COOKIE_SECURE"),
			HTTPOnly: v.GetBool("AUTH_COOKIE_HTTPONLY"),
			SameSite: v.GetString("AUTH_COOKIE_SAMESITE"),
		},
	}

	cfg.Referral = ReferralConfig{
		CodeLength: v.GetInt("REFERRAL_CODE_LENGTH"),
		DefaultTTL: parseDuration(v.GetString("REFERRAL_CODE_DEFAULT_TTL"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "referral_program")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("ACCESS_TOKEN_TTL", "300s")
	v.SetDefault("REFRESH_TOKEN_TTL", "2629746s")
	v.SetDefault("REFRESH_TOKEN_BYTES", 48)
	v.SetDefault("REFRESH_TOKEN_KEY_PREFIX", "refresh_token:")
	v.SetDefault("REQUIRE_VERIFIED", false)
	v.SetDefault("AUTH_TRANSPORT", TransportCookie)
	v.SetDefault("AUTH_COOKIE_PATH", "/")
	v.SetDefault("AUTH_COOKIE_DOMAIN", "")
	v.SetDefault("AUTH_COOKIE_SECURE", true)
	v.SetDefault("AUTH_COOKIE_HTTPONLY", true)
	v.SetDefault("AUTH_COOKIE_SAMESITE", "lax")

	v.SetDefault("REFERRAL_CODE_LENGTH", 16)
	v.SetDefault("REFERRAL_CODE_DEFAULT_TTL", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
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
