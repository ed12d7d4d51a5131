package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GitHub  GitHubConfig
	Store   StoreConfig
	Comment CommentConfig
	Dedupe  DedupeConfig
	OTel    OTelConfig
	Env     string
	Port    string
	AppName string
}

type GitHubConfig struct {
	AppID            int64
	PrivateKey       []byte // PEM
	WebhookSecret    string
	APIBaseURL       string
	TokenRefreshSkew time.Duration
}

type StoreConfig struct {
	MaxIssues         int
	BodyPreviewLength int
}

type CommentConfig struct {
	TemplateFile string // optional; the built-in guidelines are used when empty
}

type DedupeConfig struct {
	Window   time.Duration // 0 disables delivery dedupe
	RedisURL string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from environment variables.
// In development it first loads .env.server, falling back to .env.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		if err := godotenv.Load(".env.server"); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:     getEnv("APP_ENV", "development"),
		Port:    getEnv("PORT", "8000"),
		AppName: getEnv("APP_NAME", "GitHub Issue Commenter Bot"),
		GitHub: GitHubConfig{
			WebhookSecret:    getEnv("GITHUB_WEBHOOK_SECRET", ""),
			APIBaseURL:       getEnv("GITHUB_API_URL", "https://api.github.com/"),
			TokenRefreshSkew: getEnvDuration("TOKEN_REFRESH_SKEW", 60*time.Second),
		},
		Store: StoreConfig{
			MaxIssues:         getEnvInt("MAX_STORED_ISSUES", 100),
			BodyPreviewLength: getEnvInt("BODY_PREVIEW_LENGTH", 200),
		},
		Comment: CommentConfig{
			TemplateFile: getEnv("COMMENT_TEMPLATE_FILE", ""),
		},
		Dedupe: DedupeConfig{
			Window:   getEnvDuration("WEBHOOK_DEDUPE_WINDOW", 0),
			RedisURL: getEnv("REDIS_URL", ""),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "issue-commenter"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	appID := getEnv("GITHUB_APP_ID", "")
	if appID == "" {
		return Config{}, fmt.Errorf("GITHUB_APP_ID is required")
	}
	id, err := strconv.ParseInt(appID, 10, 64)
	if err != nil || id <= 0 {
		return Config{}, fmt.Errorf("GITHUB_APP_ID must be a positive integer, got %q", appID)
	}
	cfg.GitHub.AppID = id

	if cfg.GitHub.WebhookSecret == "" {
		return Config{}, fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}

	key, err := loadPrivateKey()
	if err != nil {
		return Config{}, err
	}
	cfg.GitHub.PrivateKey = key

	if cfg.Store.MaxIssues < 1 {
		return Config{}, fmt.Errorf("MAX_STORED_ISSUES must be at least 1, got %d", cfg.Store.MaxIssues)
	}

	return cfg, nil
}

// loadPrivateKey reads the App key from GITHUB_PRIVATE_KEY (with literal \n
// sequences expanded, as most secret stores flatten newlines) or from the
// file named by GITHUB_PRIVATE_KEY_FILE.
func loadPrivateKey() ([]byte, error) {
	if key := getEnv("GITHUB_PRIVATE_KEY", ""); key != "" {
		return []byte(strings.ReplaceAll(key, `\n`, "\n")), nil
	}

	path := getEnv("GITHUB_PRIVATE_KEY_FILE", "")
	if path == "" {
		return nil, fmt.Errorf("GITHUB_PRIVATE_KEY or GITHUB_PRIVATE_KEY_FILE is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key from %s: %w", path, err)
	}
	return data, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c DedupeConfig) Enabled() bool {
	return c.Window > 0
}

func (c DedupeConfig) Shared() bool {
	return c.Enabled() && c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
