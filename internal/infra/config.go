package infra

import (
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	GeminiBaseURL    string
	GeminiModel      string
	GeminiVideoModel string
	CredentialFile   string
	OutputDir        string
	Locale           string
	PollInterval     time.Duration
	MaxPollAttempts  int
	HTTPTimeout      time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The API key is deliberately absent here: it is
// resolved through the credentials store so a missing key only fails once a
// remote call is about to happen.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiVideoModel: getEnv("GEMINI_VIDEO_MODEL", "veo-3.0-generate-001"),
		CredentialFile:   os.Getenv("CREDENTIAL_FILE"),
		OutputDir:        getEnv("OUTPUT_DIR", "."),
		Locale:           os.Getenv("LOCALE"),
		PollInterval:     time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 10)),
		MaxPollAttempts:  getEnvInt("MAX_POLL_ATTEMPTS", 90),
		HTTPTimeout:      time.Second * time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 120)),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
