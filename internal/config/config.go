package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	DefaultMetricsAPIURL   = "http://localhost:8080/api"
	DefaultHederaMirrorURL = "https://mainnet-public.mirrornode.hedera.com/api/v1"
	DefaultFearGreedURL    = "https://api.alternative.me"
	DefaultUSDCTokenID     = "0.0.456858"
)

type Config struct {
	MetricsAPIURL        string
	DashboardRefreshSecs int

	DatabaseURL      string
	RedisURL         string
	CollectPollSecs  int
	HederaMirrorURL  string
	HederaUSDCToken  string
	FearGreedURL     string
	HTTPPort         int
	TelegramBotToken string

	IngestStartTimestamp string
	IngestMaxPages       int

	SSHPort        int
	SSHHostKeyPath string

	LogLevel  string
	LogPretty bool
}

func Load() *Config {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	cfg.MetricsAPIURL = strings.TrimRight(strings.TrimSpace(os.Getenv("METRICS_API_URL")), "/")
	if cfg.MetricsAPIURL == "" {
		cfg.MetricsAPIURL = DefaultMetricsAPIURL
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.DashboardRefreshSecs = positiveInt("DASHBOARD_REFRESH_SECS", 60)
	cfg.CollectPollSecs = positiveInt("COLLECT_POLL_SECS", 300)
	cfg.HTTPPort = positiveInt("HTTP_PORT", 8080)
	cfg.SSHPort = positiveInt("SSH_PORT", 2222)
	cfg.IngestMaxPages = positiveInt("HEDERA_INGEST_MAX_PAGES", 50)
	cfg.IngestStartTimestamp = strings.TrimSpace(os.Getenv("HEDERA_INGEST_START"))

	cfg.HederaMirrorURL = stringOr("HEDERA_MIRROR_URL", DefaultHederaMirrorURL)
	cfg.HederaUSDCToken = stringOr("HEDERA_USDC_TOKEN_ID", DefaultUSDCTokenID)
	cfg.FearGreedURL = stringOr("FEAR_GREED_URL", DefaultFearGreedURL)
	cfg.SSHHostKeyPath = stringOr("SSH_HOST_KEY_PATH", ".ssh/id_ed25519")

	cfg.LogLevel = strings.ToLower(stringOr("LOG_LEVEL", "info"))
	cfg.LogPretty = strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_PRETTY")), "true")

	return cfg
}

func positiveInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, defaulting to %d", key, v, def)
	}
	return def
}

func stringOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
