package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr string
	GinMode string

	DBUser     string
	DBPassword string
	DBHost     string
	DBName     string

	JWTSecret          string
	CORSAllowedOrigins []string

	CloudinaryURL string

	GatewayName          string
	GatewayBaseURL       string
	GatewayAPIKey        string
	GatewayWebhookSecret string

	PaymentExpiryAfter time.Duration
	PaymentExpiryCron  string
}

// LoadEnv membaca .env (jika ada) lalu environment proses.
func LoadEnv() Env {
	_ = godotenv.Load()

	return Env{
		AppAddr: getEnv("APP_ADDR", ":8080"),
		GinMode: getEnv("GIN_MODE", ""),

		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", "127.0.0.1:3306"),
		DBName:     getEnv("DB_NAME", "showroom"),

		JWTSecret:          getEnv("JWT_SECRET", "super-secret-key-change-me"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),

		GatewayName:          getEnv("GATEWAY_NAME", "Adyen"),
		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "http://127.0.0.1:9090"),
		GatewayAPIKey:        getEnv("GATEWAY_API_KEY", ""),
		GatewayWebhookSecret: getEnv("GATEWAY_WEBHOOK_SECRET", ""),

		PaymentExpiryAfter: getEnvDuration("PAYMENT_EXPIRY_AFTER", 24*time.Hour),
		PaymentExpiryCron:  getEnv("PAYMENT_EXPIRY_CRON", "*/15 * * * *"),
	}
}

func getEnv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
