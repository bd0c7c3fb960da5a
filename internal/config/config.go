package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port     string
	MongoURI string
	MongoDB  string

	SessionSecret string
	SessionTTLMin int
	ResetSecret   string
	OTPTTLMin     int

	SMTPHost  string
	SMTPPort  string
	EmailUser string
	EmailPass string

	GeminiAPIKey string
	GeminiModel  string

	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	OAuthStateSecret   string
	OAuthRedirectBase  string

	CloudinaryCloud  string
	CloudinaryKey    string
	CloudinarySecret string

	RedisAddr       string
	RateLimitPerMin int

	RabbitURL      string
	RabbitExchange string
}

func Load() Config {
	return Config{
		Port:     getenv("APP_PORT", "8080"),
		MongoURI: getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getenv("MONGO_DB", "fitplanner"),

		SessionSecret: getenv("SESSION_SECRET", "default_secret_key"),
		SessionTTLMin: atoi(getenv("SESSION_TTL_MIN", "1440")),
		ResetSecret:   getenv("RESET_SECRET", "default_reset_key"),
		OTPTTLMin:     atoi(getenv("OTP_TTL_MIN", "10")),

		SMTPHost:  getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:  getenv("SMTP_PORT", "465"),
		EmailUser: os.Getenv("EMAIL_USER"),
		EmailPass: os.Getenv("EMAIL_PASS"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.0-flash"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		OAuthStateSecret:   getenv("OAUTH_STATE_SECRET", "default_state_key"),
		OAuthRedirectBase:  getenv("OAUTH_REDIRECT_BASE", "http://localhost:8080"),

		CloudinaryCloud:  os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinarySecret: os.Getenv("CLOUDINARY_API_SECRET"),

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RateLimitPerMin: atoi(getenv("RATE_LIMIT_PER_MIN", "5")),

		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "fitplanner.events"),
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
