package config

import (
	"fmt"
	"os"
)

// Config is the full environment the process needs, read once at
// startup. Nothing below the handler layer touches os.Getenv.
type Config struct {
	Port         string
	MongoURI     string
	DatabaseName string

	PaystackSecretKey string
	FrontendURL       string
	Currency          string

	JWTSecret string

	Debug   bool
	LogPath string
}

// FromEnv builds a Config from the environment. Call godotenv.Load
// first if a .env file is in play.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		MongoURI:          os.Getenv("MONGOURI"),
		DatabaseName:      getenv("MONGO_DATABASE", "hostelpay"),
		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		FrontendURL:       os.Getenv("FRONTEND_URL"),
		Currency:          getenv("CURRENCY", "GHS"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		Debug:             os.Getenv("DEBUG") == "true",
		LogPath:           getenv("LOG_PATH", "logs/"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGOURI environment variable not set")
	}
	if cfg.PaystackSecretKey == "" {
		return nil, fmt.Errorf("PAYSTACK_SECRET_KEY environment variable not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
