package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	MongoURI string
	MongoDB  string

	AccessSecret   string
	RefreshSecret  string
	AccessTokenTTL time.Duration
	RefreshTTL     time.Duration
	CookieSecure   bool

	OTPExpiry       time.Duration
	ResetLinkExpiry time.Duration
	VerifyExpiry    time.Duration

	RedisAddr          string
	RedisPassword      string
	RateLimitWindow    time.Duration
	RateLimitThreshold int

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	MediaEndpoint  string
	MediaAccessKey string
	MediaSecretKey string
	MediaBucket    string
	MediaUseSSL    bool

	FrontendOrigin string
	CORSOrigins    []string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppName: getEnv("APP_NAME", "Pulsegram API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "pulsegram"),

		AccessSecret:   os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshSecret:  os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL: time.Duration(getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 15)) * time.Minute,
		RefreshTTL:     time.Duration(getEnvAsInt("REFRESH_TOKEN_EXPIRE_DAYS", 30)) * 24 * time.Hour,
		CookieSecure:   getEnvAsBool("COOKIE_SECURE", false),

		OTPExpiry:       time.Duration(getEnvAsInt("OTP_EXPIRE_MINUTES", 10)) * time.Minute,
		ResetLinkExpiry: time.Duration(getEnvAsInt("RESET_LINK_EXPIRE_MINUTES", 15)) * time.Minute,
		VerifyExpiry:    time.Duration(getEnvAsInt("VERIFY_LINK_EXPIRE_MINUTES", 24*60)) * time.Minute,

		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RateLimitWindow:    time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		RateLimitThreshold: getEnvAsInt("RATE_LIMIT_THRESHOLD", 30),

		SMTPHost: getEnv("SMTP_HOST", "localhost"),
		SMTPPort: getEnvAsInt("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: getEnv("MAIL_FROM", "no-reply@pulsegram.app"),

		MediaEndpoint:  getEnv("MEDIA_ENDPOINT", "localhost:9000"),
		MediaAccessKey: os.Getenv("MEDIA_ACCESS_KEY"),
		MediaSecretKey: os.Getenv("MEDIA_SECRET_KEY"),
		MediaBucket:    getEnv("MEDIA_BUCKET", "pulsegram-media"),
		MediaUseSSL:    getEnvAsBool("MEDIA_USE_SSL", false),

		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
	}

	origins := getEnv("CORS_ORIGINS", "")
	if origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{cfg.FrontendOrigin}
	}

	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET is required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
