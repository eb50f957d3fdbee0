package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	AppPort    string
	AppEnv     string
	AppBaseURL string
	LogLevel   string

	DBDSN         string
	JWTSecret     string
	JWTExpiresMin int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EsewaSecretKey      string
	EsewaProductCode    string
	EsewaFormURL        string
	EsewaVerifyResponse bool

	AdminUsername string
	AdminEmail    string
	AdminPassword string

	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	CORSOrigins     string
	RateLimitPerMin int
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	redisDB, _ := strconv.Atoi(get("REDIS_DB", "0"))
	perMin, _ := strconv.Atoi(get("RATE_LIMIT_PER_MIN", "30"))

	cfg := Config{
		AppPort:    get("APP_PORT", "8080"),
		AppEnv:     get("APP_ENV", "production"),
		AppBaseURL: strings.TrimRight(get("APP_BASE_URL", ""), "/"),
		LogLevel:   get("LOG_LEVEL", "info"),

		DBDSN:         must("DB_DSN"),
		JWTSecret:     must("JWT_SECRET"),
		JWTExpiresMin: expires,

		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// sandbox credentials published by the gateway for the EPAYTEST merchant
		EsewaSecretKey:      get("ESEWA_SECRET_KEY", "8gBm/:&EnhH.1/q"),
		EsewaProductCode:    get("ESEWA_PRODUCT_CODE", "EPAYTEST"),
		EsewaFormURL:        get("ESEWA_FORM_URL", "https://rc-epay.esewa.com.np/api/epay/main/v2/form"),
		EsewaVerifyResponse: getBool("ESEWA_VERIFY_RESPONSE", true),

		AdminUsername: get("ADMIN_USERNAME", "admin"),
		AdminEmail:    get("ADMIN_EMAIL", ""),
		AdminPassword: get("ADMIN_PASSWORD", ""),

		GoogleClientID:  get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:    get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:  get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL: get("FRONTEND_BASE_URL", "http://localhost:3000"),

		CORSOrigins:     get("CORS_ORIGINS", "http://127.0.0.1:3000, http://localhost:3000"),
		RateLimitPerMin: perMin,
	}
	// gateway callback URLs must not be derived from the request Host
	if !cfg.IsDevelopment() && cfg.AppBaseURL == "" {
		panic("missing env: APP_BASE_URL")
	}
	return cfg
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getBool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
