package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/markjakearzadon/homigo-gobackend/internal/money"
)

// Gateway holds the PayMongo settings. SecretKey may be empty: the client
// reports that per request as a configuration error instead of refusing to boot.
type Gateway struct {
	SecretKey     string
	BaseURL       string
	PaymentMethod string
	Currency      string
	Timeout       time.Duration
}

// Config is built once in main and handed to constructors. Nothing reads the
// environment after start-up.
type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	PublicBaseURL  string
	AllowedOrigins []string
	NightlyRate    money.Minor
	JWTSecret      string
	LogLevel       string
	Gateway        Gateway
}

func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		MongoURI:       strings.TrimSpace(os.Getenv("MONGOURI")),
		MongoDB:        getenv("MONGO_DB", "homigodb"),
		PublicBaseURL:  strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		Gateway: Gateway{
			SecretKey:     strings.TrimSpace(os.Getenv("PAYMONGO_SECRET_KEY")),
			BaseURL:       strings.TrimRight(getenv("PAYMONGO_BASE_URL", "https://api.paymongo.com"), "/"),
			PaymentMethod: getenv("PAYMONGO_PAYMENT_METHOD", "gcash"),
			Currency:      strings.ToUpper(getenv("PAYMONGO_CURRENCY", "PHP")),
		},
	}

	if cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGOURI environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	u, err := url.Parse(cfg.PublicBaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return Config{}, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", cfg.PublicBaseURL)
	}

	rate, err := money.ParseMajor(getenv("NIGHTLY_RATE", "1399.50"))
	if err != nil {
		return Config{}, fmt.Errorf("NIGHTLY_RATE: %w", err)
	}
	cfg.NightlyRate = rate

	timeout, err := time.ParseDuration(getenv("PAYMONGO_TIMEOUT", "15s"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("PAYMONGO_TIMEOUT must be a positive duration, got %q", os.Getenv("PAYMONGO_TIMEOUT"))
	}
	cfg.Gateway.Timeout = timeout

	return cfg, nil
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
